// Package mocks contains hand-rolled testify mocks for the store and
// collaborator interfaces defined in internal/model.
package mocks

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/pressbox/pressbox/internal/model"
)

// UserStore is a mock of model.UserStore.
type UserStore struct {
	mock.Mock
}

func (m *UserStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserStore) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserStore) Create(ctx context.Context, user model.User) (model.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserStore) SetEmailVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	args := m.Called(ctx, id, verified)
	return args.Error(0)
}

func (m *UserStore) SetRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

// ArticleStore is a mock of model.ArticleStore.
type ArticleStore struct {
	mock.Mock
}

func (m *ArticleStore) GetBySlug(ctx context.Context, slug string) (model.Article, error) {
	args := m.Called(ctx, slug)
	return args.Get(0).(model.Article), args.Error(1)
}

func (m *ArticleStore) GetByID(ctx context.Context, id uuid.UUID) (model.Article, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Article), args.Error(1)
}

func (m *ArticleStore) Create(ctx context.Context, article model.Article) (model.Article, error) {
	args := m.Called(ctx, article)
	return args.Get(0).(model.Article), args.Error(1)
}

func (m *ArticleStore) Update(ctx context.Context, article model.Article) (model.Article, error) {
	args := m.Called(ctx, article)
	return args.Get(0).(model.Article), args.Error(1)
}

func (m *ArticleStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ArticleStore) ListPublished(ctx context.Context, limit, offset int) ([]model.Article, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]model.Article), args.Error(1)
}

func (m *ArticleStore) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Article, error) {
	args := m.Called(ctx, authorID)
	return args.Get(0).([]model.Article), args.Error(1)
}

// RefreshTokenStore is a mock of model.RefreshTokenStore.
type RefreshTokenStore struct {
	mock.Mock
}

func (m *RefreshTokenStore) Create(ctx context.Context, token model.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *RefreshTokenStore) GetByJTI(ctx context.Context, jti string) (model.RefreshToken, error) {
	args := m.Called(ctx, jti)
	return args.Get(0).(model.RefreshToken), args.Error(1)
}

func (m *RefreshTokenStore) RevokeByJTI(ctx context.Context, jti string) error {
	args := m.Called(ctx, jti)
	return args.Error(0)
}

func (m *RefreshTokenStore) RevokeAllByUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// TokenManager is a mock of model.TokenManager.
type TokenManager struct {
	mock.Mock
}

func (m *TokenManager) GenerateAccessToken(userID uuid.UUID, role model.Role) (string, error) {
	args := m.Called(userID, role)
	return args.String(0), args.Error(1)
}

func (m *TokenManager) GenerateRefreshToken(userID uuid.UUID) (string, string, error) {
	args := m.Called(userID)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *TokenManager) ParseAccessToken(token string) (uuid.UUID, model.Role, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.Get(1).(model.Role), args.Error(2)
}

func (m *TokenManager) ParseRefreshToken(token string) (uuid.UUID, string, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.String(1), args.Error(2)
}

// EmailSender is a mock of model.EmailSender.
type EmailSender struct {
	mock.Mock
}

func (m *EmailSender) Send(ctx context.Context, msg model.EmailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// CaptchaVerifier is a mock of model.CaptchaVerifier.
type CaptchaVerifier struct {
	mock.Mock
}

func (m *CaptchaVerifier) Validate(ctx context.Context, token, remoteIP string) (bool, error) {
	args := m.Called(ctx, token, remoteIP)
	return args.Bool(0), args.Error(1)
}

// Storage is a mock of model.Storage.
type Storage struct {
	mock.Mock
}

func (m *Storage) Upload(ctx context.Context, key string, reader io.Reader) error {
	args := m.Called(ctx, key, reader)
	return args.Error(0)
}

func (m *Storage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if rc := args.Get(0); rc != nil {
		return rc.(io.ReadCloser), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Storage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *Storage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}
