package service

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/pressbox/pressbox/internal/logger"
	"github.com/pressbox/pressbox/internal/model"
)

// Media manages article assets in object storage. Keys are opaque and
// owned by the server; callers get them back from upload and store them
// on the article record.
type Media struct {
	storage model.Storage
	logger  *logger.Logger
}

func NewMedia(storage model.Storage, logger *logger.Logger) *Media {
	return &Media{storage: storage, logger: logger}
}

// Upload stores an asset and returns its generated key.
func (m *Media) Upload(ctx context.Context, reader io.Reader) (string, error) {
	key := "media/" + uuid.NewString()

	if err := m.storage.Upload(ctx, key, reader); err != nil {
		m.logger.Error("Media service: upload failed",
			"key", key,
			"error", err.Error())
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}

	m.logger.Info("Media service: asset uploaded", "key", key)
	return key, nil
}

// Download streams an asset by key.
func (m *Media) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	exists, err := m.storage.Exists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check asset: %w", err)
	}
	if !exists {
		return nil, model.ErrNotFound
	}
	return m.storage.Download(ctx, key)
}

// Delete removes an asset by key.
func (m *Media) Delete(ctx context.Context, key string) error {
	if err := m.storage.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return nil
}
