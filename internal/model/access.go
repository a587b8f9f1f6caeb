package model

import (
	"github.com/google/uuid"
)

// LockReason explains why full content was withheld from a response.
type LockReason string

const (
	LockReasonNone          LockReason = "none"
	LockReasonAuthRequired  LockReason = "authentication_required"
	LockReasonPremium       LockReason = "premium_required"
	LockReasonLimitReached  LockReason = "limit_reached"
)

// Reader identifies the caller of a content read. UserID is uuid.Nil for
// anonymous readers; AnonID is empty for authenticated ones.
type Reader struct {
	Role   Role
	UserID uuid.UUID
	AnonID string
}

// IdentityKey returns the KV namespacing component for this reader:
// "user:<id>" for authenticated readers, "anon:<uuid>" otherwise.
func (r Reader) IdentityKey() string {
	if r.UserID != uuid.Nil {
		return "user:" + r.UserID.String()
	}
	return "anon:" + r.AnonID
}

// IsOwner reports whether the reader is the article's author.
func (r Reader) IsOwner(a Article) bool {
	return r.UserID != uuid.Nil && r.UserID == a.AuthorID
}

// ArticleView is the outcome of an access decision for one read. When
// Locked, Content is empty and LockReason says why; metadata fields stay
// populated so listings and previews keep working.
type ArticleView struct {
	Article           Article
	Content           string
	Locked            bool
	LockReason        LockReason
	MonthlyLimit      int
	ViewsThisMonth    int64
	RemainingArticles int
}
