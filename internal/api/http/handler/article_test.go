package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressbox/pressbox/internal/api/http/middleware"
	"github.com/pressbox/pressbox/internal/model"
	"github.com/pressbox/pressbox/internal/service"
	"github.com/pressbox/pressbox/internal/testutil"
)

type fakeAccessEngine struct {
	view model.ArticleView
	err  error

	gotSlug   string
	gotReader model.Reader
}

func (f *fakeAccessEngine) ReadArticle(_ context.Context, slug string, reader model.Reader) (model.ArticleView, error) {
	f.gotSlug = slug
	f.gotReader = reader
	return f.view, f.err
}

type fakeArticleService struct {
	article model.Article
	list    []model.Article
	err     error

	gotParams service.CreateParams
	gotID     uuid.UUID
	gotLimit  int
	gotOffset int
}

func (f *fakeArticleService) Create(_ context.Context, _ model.Reader, p service.CreateParams) (model.Article, error) {
	f.gotParams = p
	return f.article, f.err
}

func (f *fakeArticleService) Update(_ context.Context, _ model.Reader, id uuid.UUID, p service.CreateParams) (model.Article, error) {
	f.gotID = id
	f.gotParams = p
	return f.article, f.err
}

func (f *fakeArticleService) Delete(_ context.Context, _ model.Reader, id uuid.UUID) error {
	f.gotID = id
	return f.err
}

func (f *fakeArticleService) ListPublished(_ context.Context, limit, offset int) ([]model.Article, error) {
	f.gotLimit = limit
	f.gotOffset = offset
	return f.list, f.err
}

type fakeMediaService struct {
	key  string
	data string
	err  error

	gotKey string
}

func (f *fakeMediaService) Upload(_ context.Context, r io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	return f.key, f.err
}

func (f *fakeMediaService) Download(_ context.Context, key string) (io.ReadCloser, error) {
	f.gotKey = key
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.data)), nil
}

func (f *fakeMediaService) Delete(_ context.Context, key string) error {
	f.gotKey = key
	return f.err
}

// mountArticle mounts the handler on a chi mux with the reader injected,
// so URL parameters resolve the way they do in the real route tree.
func mountArticle(h *Article, reader model.Reader) http.Handler {
	inject := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.SetReader(r.Context(), reader)))
		})
	}

	mux := chi.NewRouter()
	mux.Use(inject)
	mux.Get("/api/articles", h.List)
	mux.Get("/api/articles/{slug}", h.Get)
	mux.Post("/api/articles", h.Create)
	mux.Put("/api/articles/{id}", h.Update)
	mux.Delete("/api/articles/{id}", h.Delete)
	mux.Post("/api/media", h.UploadMedia)
	mux.Get("/api/media/*", h.DownloadMedia)
	return mux
}

func publishedArticle() model.Article {
	return model.Article{
		ID:        uuid.New(),
		Slug:      "go-generics",
		Title:     "Go Generics",
		Excerpt:   "excerpt",
		Content:   "full content",
		AuthorID:  uuid.New(),
		Published: true,
	}
}

func TestArticle_Get(t *testing.T) {
	t.Run("granted read includes content and meta", func(t *testing.T) {
		article := publishedArticle()
		access := &fakeAccessEngine{view: model.ArticleView{
			Article:           article,
			Content:           article.Content,
			MonthlyLimit:      3,
			ViewsThisMonth:    2,
			RemainingArticles: 1,
		}}
		h := NewArticle(access, &fakeArticleService{}, &fakeMediaService{}, testutil.MakeNoopLogger())
		reader := model.Reader{Role: model.RoleAnonymous, AnonID: uuid.NewString()}

		req := httptest.NewRequest(http.MethodGet, "/api/articles/go-generics", nil)
		rec := httptest.NewRecorder()
		mountArticle(h, reader).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "go-generics", access.gotSlug)
		assert.Equal(t, reader, access.gotReader)

		var resp articleViewResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "full content", resp.Content)
		assert.False(t, resp.Locked)
		assert.Equal(t, 3, resp.Meta.MonthlyLimit)
		assert.Equal(t, int64(2), resp.Meta.ViewsThisMonth)
		assert.Equal(t, 1, resp.Meta.RemainingArticles)
	})

	t.Run("views cookie mirrors the counter", func(t *testing.T) {
		access := &fakeAccessEngine{view: model.ArticleView{
			Article:        publishedArticle(),
			Content:        "c",
			MonthlyLimit:   3,
			ViewsThisMonth: 2,
		}}
		h := NewArticle(access, &fakeArticleService{}, &fakeMediaService{}, testutil.MakeNoopLogger())

		req := httptest.NewRequest(http.MethodGet, "/api/articles/go-generics", nil)
		rec := httptest.NewRecorder()
		mountArticle(h, model.Reader{Role: model.RoleAnonymous, AnonID: uuid.NewString()}).ServeHTTP(rec, req)

		var viewsCookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == service.ViewsCookieName {
				viewsCookie = c
			}
		}
		require.NotNil(t, viewsCookie)
		assert.Equal(t, "2", viewsCookie.Value)
		assert.False(t, viewsCookie.HttpOnly, "mirror cookie must stay client-readable")
	})

	t.Run("locked read has no content", func(t *testing.T) {
		article := publishedArticle()
		access := &fakeAccessEngine{view: model.ArticleView{
			Article:        article,
			Locked:         true,
			LockReason:     model.LockReasonLimitReached,
			MonthlyLimit:   3,
			ViewsThisMonth: 3,
		}}
		h := NewArticle(access, &fakeArticleService{}, &fakeMediaService{}, testutil.MakeNoopLogger())

		req := httptest.NewRequest(http.MethodGet, "/api/articles/go-generics", nil)
		rec := httptest.NewRecorder()
		mountArticle(h, model.Reader{Role: model.RoleAnonymous, AnonID: uuid.NewString()}).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp articleViewResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Locked)
		assert.Equal(t, model.LockReasonLimitReached, resp.LockReason)
		assert.Empty(t, resp.Content)
		assert.Equal(t, article.Excerpt, resp.Excerpt)
	})

	t.Run("missing article", func(t *testing.T) {
		access := &fakeAccessEngine{err: model.ErrNotFound}
		h := NewArticle(access, &fakeArticleService{}, &fakeMediaService{}, testutil.MakeNoopLogger())

		req := httptest.NewRequest(http.MethodGet, "/api/articles/ghost", nil)
		rec := httptest.NewRecorder()
		mountArticle(h, model.Reader{Role: model.RoleAnonymous, AnonID: uuid.NewString()}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("counter store unavailable", func(t *testing.T) {
		access := &fakeAccessEngine{err: model.ErrStoreUnavailable}
		h := NewArticle(access, &fakeArticleService{}, &fakeMediaService{}, testutil.MakeNoopLogger())

		req := httptest.NewRequest(http.MethodGet, "/api/articles/go-generics", nil)
		rec := httptest.NewRecorder()
		mountArticle(h, model.Reader{Role: model.RoleAnonymous, AnonID: uuid.NewString()}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestArticle_List(t *testing.T) {
	articles := &fakeArticleService{list: []model.Article{publishedArticle(), publishedArticle()}}
	h := NewArticle(&fakeAccessEngine{}, articles, &fakeMediaService{}, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/articles?limit=5&offset=10", nil)
	rec := httptest.NewRecorder()
	mountArticle(h, model.Reader{Role: model.RoleAnonymous, AnonID: uuid.NewString()}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, articles.gotLimit)
	assert.Equal(t, 10, articles.gotOffset)

	var resp []articleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestArticle_List_ClampsBadPaging(t *testing.T) {
	articles := &fakeArticleService{}
	h := NewArticle(&fakeAccessEngine{}, articles, &fakeMediaService{}, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/articles?limit=9999&offset=-3", nil)
	rec := httptest.NewRecorder()
	mountArticle(h, model.Reader{Role: model.RoleAnonymous, AnonID: uuid.NewString()}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultListLimit, articles.gotLimit)
	assert.Equal(t, 0, articles.gotOffset)
}

func TestArticle_Create(t *testing.T) {
	author := model.Reader{Role: model.RoleAuthor, UserID: uuid.New()}

	t.Run("success", func(t *testing.T) {
		created := publishedArticle()
		articles := &fakeArticleService{article: created}
		h := NewArticle(&fakeAccessEngine{}, articles, &fakeMediaService{}, testutil.MakeNoopLogger())

		body, _ := json.Marshal(articleRequest{Slug: "go-generics", Title: "Go Generics", Tags: []string{"go"}})
		req := httptest.NewRequest(http.MethodPost, "/api/articles", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		mountArticle(h, author).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, []string{"go"}, articles.gotParams.Tags)
	})

	t.Run("missing required fields", func(t *testing.T) {
		h := NewArticle(&fakeAccessEngine{}, &fakeArticleService{}, &fakeMediaService{}, testutil.MakeNoopLogger())

		body, _ := json.Marshal(articleRequest{Title: "no slug"})
		req := httptest.NewRequest(http.MethodPost, "/api/articles", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		mountArticle(h, author).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("service refusal maps to 403", func(t *testing.T) {
		articles := &fakeArticleService{err: service.ErrForbidden}
		h := NewArticle(&fakeAccessEngine{}, articles, &fakeMediaService{}, testutil.MakeNoopLogger())

		body, _ := json.Marshal(articleRequest{Slug: "s", Title: "t"})
		req := httptest.NewRequest(http.MethodPost, "/api/articles", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		mountArticle(h, model.Reader{Role: model.RoleFreeUser, UserID: uuid.New()}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestArticle_Update(t *testing.T) {
	author := model.Reader{Role: model.RoleAuthor, UserID: uuid.New()}

	t.Run("success", func(t *testing.T) {
		updated := publishedArticle()
		articles := &fakeArticleService{article: updated}
		h := NewArticle(&fakeAccessEngine{}, articles, &fakeMediaService{}, testutil.MakeNoopLogger())

		body, _ := json.Marshal(articleRequest{Slug: "go-generics", Title: "Go Generics v2"})
		req := httptest.NewRequest(http.MethodPut, "/api/articles/"+updated.ID.String(), bytes.NewReader(body))
		rec := httptest.NewRecorder()
		mountArticle(h, author).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, updated.ID, articles.gotID)
	})

	t.Run("invalid id", func(t *testing.T) {
		h := NewArticle(&fakeAccessEngine{}, &fakeArticleService{}, &fakeMediaService{}, testutil.MakeNoopLogger())

		body, _ := json.Marshal(articleRequest{Slug: "s", Title: "t"})
		req := httptest.NewRequest(http.MethodPut, "/api/articles/not-a-uuid", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		mountArticle(h, author).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestArticle_Delete(t *testing.T) {
	id := uuid.New()
	articles := &fakeArticleService{}
	h := NewArticle(&fakeAccessEngine{}, articles, &fakeMediaService{}, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodDelete, "/api/articles/"+id.String(), nil)
	rec := httptest.NewRecorder()
	mountArticle(h, model.Reader{Role: model.RoleAdmin, UserID: uuid.New()}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, id, articles.gotID)
}

func TestArticle_Media(t *testing.T) {
	author := model.Reader{Role: model.RoleAuthor, UserID: uuid.New()}

	t.Run("upload returns key", func(t *testing.T) {
		media := &fakeMediaService{key: "media/abc"}
		h := NewArticle(&fakeAccessEngine{}, &fakeArticleService{}, media, testutil.MakeNoopLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/media", strings.NewReader("image-bytes"))
		rec := httptest.NewRecorder()
		mountArticle(h, author).ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp uploadResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "media/abc", resp.Key)
	})

	t.Run("download streams the asset", func(t *testing.T) {
		media := &fakeMediaService{data: "image-bytes"}
		h := NewArticle(&fakeAccessEngine{}, &fakeArticleService{}, media, testutil.MakeNoopLogger())

		req := httptest.NewRequest(http.MethodGet, "/api/media/media/abc", nil)
		rec := httptest.NewRecorder()
		mountArticle(h, author).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "media/abc", media.gotKey)
		assert.Equal(t, "image-bytes", rec.Body.String())
	})

	t.Run("download missing asset", func(t *testing.T) {
		media := &fakeMediaService{err: model.ErrNotFound}
		h := NewArticle(&fakeAccessEngine{}, &fakeArticleService{}, media, testutil.MakeNoopLogger())

		req := httptest.NewRequest(http.MethodGet, "/api/media/media/ghost", nil)
		rec := httptest.NewRecorder()
		mountArticle(h, author).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
