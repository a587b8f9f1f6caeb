package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pressbox/pressbox/internal/api/http/middleware"
	"github.com/pressbox/pressbox/internal/logger"
	"github.com/pressbox/pressbox/internal/model"
	"github.com/pressbox/pressbox/internal/service"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// AccessEngine decides whether a reader gets full article content.
type AccessEngine interface {
	ReadArticle(ctx context.Context, slug string, reader model.Reader) (model.ArticleView, error)
}

// ArticleService defines authoring operations.
type ArticleService interface {
	Create(ctx context.Context, writer model.Reader, p service.CreateParams) (model.Article, error)
	Update(ctx context.Context, writer model.Reader, id uuid.UUID, p service.CreateParams) (model.Article, error)
	Delete(ctx context.Context, writer model.Reader, id uuid.UUID) error
	ListPublished(ctx context.Context, limit, offset int) ([]model.Article, error)
}

// MediaService defines article asset operations.
type MediaService interface {
	Upload(ctx context.Context, reader io.Reader) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Article handles HTTP endpoints for content reads and authoring.
type Article struct {
	access   AccessEngine
	articles ArticleService
	media    MediaService
	logger   *logger.Logger
}

// NewArticle creates a new Article handler.
func NewArticle(access AccessEngine, articles ArticleService, media MediaService, logger *logger.Logger) *Article {
	return &Article{
		access:   access,
		articles: articles,
		media:    media,
		logger:   logger,
	}
}

type articleResponse struct {
	ID        uuid.UUID `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Excerpt   string    `json:"excerpt"`
	Content   string    `json:"content,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CoverKey  string    `json:"cover_key,omitempty"`
	AuthorID  uuid.UUID `json:"author_id"`
	Premium   bool      `json:"premium"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type articleViewResponse struct {
	articleResponse
	Locked     bool             `json:"locked"`
	LockReason model.LockReason `json:"lock_reason,omitempty"`
	Meta       viewMeta         `json:"meta"`
}

type viewMeta struct {
	MonthlyLimit      int   `json:"monthly_limit"`
	ViewsThisMonth    int64 `json:"views_this_month"`
	RemainingArticles int   `json:"remaining_articles"`
}

func toArticleResponse(a model.Article, content string) articleResponse {
	return articleResponse{
		ID:        a.ID,
		Slug:      a.Slug,
		Title:     a.Title,
		Excerpt:   a.Excerpt,
		Content:   content,
		Tags:      a.Tags,
		CoverKey:  a.CoverKey,
		AuthorID:  a.AuthorID,
		Premium:   a.Premium,
		Published: a.Published,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// Get serves a single article through the access engine. The readable
// views cookie mirrors the server-side counter so clients can show the
// remaining allowance without an extra request; the server never trusts
// it back.
func (h *Article) Get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	reader, ok := middleware.ReaderFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	view, err := h.access.ReadArticle(r.Context(), slug, reader)
	if err != nil {
		h.logger.Error("Article handler: read failed",
			"slug", slug,
			"error", err.Error())
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     service.ViewsCookieName,
		Value:    strconv.FormatInt(view.ViewsThisMonth, 10),
		Path:     "/",
		MaxAge:   service.AnonCookieMaxAge,
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, articleViewResponse{
		articleResponse: toArticleResponse(view.Article, view.Content),
		Locked:          view.Locked,
		LockReason:      view.LockReason,
		Meta: viewMeta{
			MonthlyLimit:      view.MonthlyLimit,
			ViewsThisMonth:    view.ViewsThisMonth,
			RemainingArticles: view.RemainingArticles,
		},
	})
}

// List serves published article metadata. Content is never included.
func (h *Article) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	articles, err := h.articles.ListPublished(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Article handler: list failed",
			"error", err.Error())
		writeError(w, err)
		return
	}

	responses := make([]articleResponse, 0, len(articles))
	for _, a := range articles {
		responses = append(responses, toArticleResponse(a, ""))
	}

	writeJSON(w, http.StatusOK, responses)
}

type articleRequest struct {
	Slug      string   `json:"slug"`
	Title     string   `json:"title"`
	Excerpt   string   `json:"excerpt"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
	CoverKey  string   `json:"cover_key"`
	Premium   bool     `json:"premium"`
	Published bool     `json:"published"`
}

func (req articleRequest) toParams() service.CreateParams {
	return service.CreateParams{
		Slug:      req.Slug,
		Title:     req.Title,
		Excerpt:   req.Excerpt,
		Content:   req.Content,
		Tags:      req.Tags,
		CoverKey:  req.CoverKey,
		Premium:   req.Premium,
		Published: req.Published,
	}
}

// Create stores a new article for the authenticated writer.
func (h *Article) Create(w http.ResponseWriter, r *http.Request) {
	reader, ok := middleware.ReaderFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Slug == "" || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "slug and title are required"})
		return
	}

	created, err := h.articles.Create(r.Context(), reader, req.toParams())
	if err != nil {
		h.logger.Error("Article handler: create failed",
			"slug", req.Slug,
			"error", err.Error())
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toArticleResponse(created, created.Content))
}

// Update replaces an article's fields, subject to ownership.
func (h *Article) Update(w http.ResponseWriter, r *http.Request) {
	reader, ok := middleware.ReaderFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid article id"})
		return
	}

	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Slug == "" || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "slug and title are required"})
		return
	}

	updated, err := h.articles.Update(r.Context(), reader, id, req.toParams())
	if err != nil {
		h.logger.Error("Article handler: update failed",
			"article_id", id,
			"error", err.Error())
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toArticleResponse(updated, updated.Content))
}

// Delete soft-deletes an article, subject to ownership.
func (h *Article) Delete(w http.ResponseWriter, r *http.Request) {
	reader, ok := middleware.ReaderFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid article id"})
		return
	}

	if err := h.articles.Delete(r.Context(), reader, id); err != nil {
		h.logger.Error("Article handler: delete failed",
			"article_id", id,
			"error", err.Error())
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type uploadResponse struct {
	Key string `json:"key"`
}

// UploadMedia stores an asset from the request body and returns its key.
func (h *Article) UploadMedia(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	key, err := h.media.Upload(r.Context(), r.Body)
	if err != nil {
		h.logger.Error("Article handler: media upload failed",
			"error", err.Error())
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{Key: key})
}

// DownloadMedia streams an asset by key. Keys contain slashes, so the
// route uses a wildcard parameter.
func (h *Article) DownloadMedia(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")

	rc, err := h.media.Download(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Error("Article handler: media download interrupted",
			"key", key,
			"error", err.Error())
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
