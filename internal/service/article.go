package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pressbox/pressbox/internal/logger"
	"github.com/pressbox/pressbox/internal/model"
)

// ErrForbidden is returned when a writer operates on content they do
// not own.
var ErrForbidden = fmt.Errorf("forbidden")

// Articles provides authoring operations. Read-path access decisions
// live in the Quota engine; this service only enforces write ownership:
// authors manage their own articles, admins manage any.
type Articles struct {
	store  model.ArticleStore
	logger *logger.Logger
}

func NewArticles(store model.ArticleStore, logger *logger.Logger) *Articles {
	return &Articles{store: store, logger: logger}
}

// CreateParams contains parameters to create an article.
type CreateParams struct {
	Slug      string
	Title     string
	Excerpt   string
	Content   string
	Tags      []string
	CoverKey  string
	Premium   bool
	Published bool
}

func (s *Articles) Create(ctx context.Context, writer model.Reader, p CreateParams) (model.Article, error) {
	if writer.Role != model.RoleAdmin && writer.Role != model.RoleAuthor {
		return model.Article{}, ErrForbidden
	}

	now := time.Now()
	article := model.Article{
		ID:        uuid.New(),
		Slug:      p.Slug,
		Title:     p.Title,
		Excerpt:   p.Excerpt,
		Content:   p.Content,
		Tags:      p.Tags,
		CoverKey:  p.CoverKey,
		AuthorID:  writer.UserID,
		Premium:   p.Premium,
		Published: p.Published,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.store.Create(ctx, article)
	if err != nil {
		return model.Article{}, fmt.Errorf("failed to create article: %w", err)
	}

	s.logger.Info("Articles service: article created",
		"article_id", created.ID,
		"slug", created.Slug,
		"author_id", created.AuthorID)

	return created, nil
}

func (s *Articles) Update(ctx context.Context, writer model.Reader, id uuid.UUID, p CreateParams) (model.Article, error) {
	article, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.Article{}, err
	}
	if writer.Role != model.RoleAdmin && !writer.IsOwner(article) {
		return model.Article{}, ErrForbidden
	}

	article.Slug = p.Slug
	article.Title = p.Title
	article.Excerpt = p.Excerpt
	article.Content = p.Content
	article.Tags = p.Tags
	article.CoverKey = p.CoverKey
	article.Premium = p.Premium
	article.Published = p.Published
	article.UpdatedAt = time.Now()

	updated, err := s.store.Update(ctx, article)
	if err != nil {
		return model.Article{}, fmt.Errorf("failed to update article: %w", err)
	}

	return updated, nil
}

func (s *Articles) Delete(ctx context.Context, writer model.Reader, id uuid.UUID) error {
	article, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if writer.Role != model.RoleAdmin && !writer.IsOwner(article) {
		return ErrForbidden
	}

	if err := s.store.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}

	s.logger.Info("Articles service: article deleted", "article_id", id)
	return nil
}

// ListPublished returns published article metadata for listings. Content
// bodies are cleared: listings never carry full content.
func (s *Articles) ListPublished(ctx context.Context, limit, offset int) ([]model.Article, error) {
	articles, err := s.store.ListPublished(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	for i := range articles {
		articles[i].Content = ""
	}
	return articles, nil
}
