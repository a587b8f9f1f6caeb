package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ArticleStore defines persistence operations for articles.
type ArticleStore interface {
	GetBySlug(ctx context.Context, slug string) (Article, error)
	GetByID(ctx context.Context, id uuid.UUID) (Article, error)
	Create(ctx context.Context, article Article) (Article, error)
	Update(ctx context.Context, article Article) (Article, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListPublished(ctx context.Context, limit, offset int) ([]Article, error)
	ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]Article, error)
}

// Article represents a content item. Content is served only when the
// access engine grants the read; Excerpt and the other metadata fields
// are always safe to expose.
type Article struct {
	ID        uuid.UUID
	Slug      string
	Title     string
	Excerpt   string
	Content   string
	Tags      []string
	CoverKey  string
	AuthorID  uuid.UUID
	Premium   bool
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}
