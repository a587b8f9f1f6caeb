package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pressbox/pressbox/internal/model"
)

var _ model.ArticleStore = (*ArticleRepository)(nil)

type ArticleRepository struct {
	db *Connection
}

func NewArticleRepository(db *Connection) *ArticleRepository {
	return &ArticleRepository{
		db: db,
	}
}

const articleColumns = `id, slug, title, excerpt, content, tags, cover_key, author_id, premium, published, created_at, updated_at, deleted_at`

func scanArticle(row pgx.Row) (model.Article, error) {
	var a model.Article
	err := row.Scan(
		&a.ID, &a.Slug, &a.Title, &a.Excerpt, &a.Content, &a.Tags, &a.CoverKey,
		&a.AuthorID, &a.Premium, &a.Published, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt,
	)
	return a, err
}

func (r *ArticleRepository) GetBySlug(ctx context.Context, slug string) (model.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE slug = $1 AND deleted_at IS NULL`

	article, err := scanArticle(r.db.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Article{}, model.ErrNotFound
		}
		return model.Article{}, fmt.Errorf("failed to get article by slug: %w", err)
	}

	return article, nil
}

func (r *ArticleRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1 AND deleted_at IS NULL`

	article, err := scanArticle(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Article{}, model.ErrNotFound
		}
		return model.Article{}, fmt.Errorf("failed to get article by id: %w", err)
	}

	return article, nil
}

func (r *ArticleRepository) Create(ctx context.Context, article model.Article) (model.Article, error) {
	query := `INSERT INTO articles (id, slug, title, excerpt, content, tags, cover_key, author_id, premium, published, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			  RETURNING ` + articleColumns

	saved, err := scanArticle(r.db.QueryRow(ctx, query,
		article.ID, article.Slug, article.Title, article.Excerpt, article.Content,
		article.Tags, article.CoverKey, article.AuthorID, article.Premium, article.Published,
		article.CreatedAt, article.UpdatedAt,
	))
	if err != nil {
		return model.Article{}, fmt.Errorf("failed to create article: %w", err)
	}

	return saved, nil
}

func (r *ArticleRepository) Update(ctx context.Context, article model.Article) (model.Article, error) {
	query := `UPDATE articles
			  SET slug = $2, title = $3, excerpt = $4, content = $5, tags = $6, cover_key = $7,
			      premium = $8, published = $9, updated_at = NOW()
			  WHERE id = $1 AND deleted_at IS NULL
			  RETURNING ` + articleColumns

	saved, err := scanArticle(r.db.QueryRow(ctx, query,
		article.ID, article.Slug, article.Title, article.Excerpt, article.Content,
		article.Tags, article.CoverKey, article.Premium, article.Published,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Article{}, model.ErrNotFound
		}
		return model.Article{}, fmt.Errorf("failed to update article: %w", err)
	}

	return saved, nil
}

func (r *ArticleRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE articles SET deleted_at = NOW(), updated_at = NOW()
			  WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *ArticleRepository) ListPublished(ctx context.Context, limit, offset int) ([]model.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles
			  WHERE published AND deleted_at IS NULL
			  ORDER BY created_at DESC
			  LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	return collectArticles(rows)
}

func (r *ArticleRepository) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles
			  WHERE author_id = $1 AND deleted_at IS NULL
			  ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles by author: %w", err)
	}
	defer rows.Close()

	return collectArticles(rows)
}

func collectArticles(rows pgx.Rows) ([]model.Article, error) {
	var articles []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate articles: %w", err)
	}
	return articles, nil
}
