package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	Create(ctx context.Context, user User) (User, error)
	SetEmailVerified(ctx context.Context, id uuid.UUID, verified bool) error
	SetRole(ctx context.Context, id uuid.UUID, role Role) error
}

// User represents a registered reader or author.
type User struct {
	ID            uuid.UUID
	Email         string
	Name          string
	Role          Role
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}
