package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pressbox/pressbox/internal/mocks"
	"github.com/pressbox/pressbox/internal/model"
	"github.com/pressbox/pressbox/internal/testutil"
)

func TestMedia_Upload(t *testing.T) {
	t.Run("generates a fresh key per upload", func(t *testing.T) {
		storage := &mocks.Storage{}
		storage.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		m := NewMedia(storage, testutil.MakeNoopLogger())

		key1, err := m.Upload(context.Background(), strings.NewReader("a"))
		require.NoError(t, err)
		key2, err := m.Upload(context.Background(), strings.NewReader("b"))
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(key1, "media/"))
		assert.NotEqual(t, key1, key2)
	})

	t.Run("storage error", func(t *testing.T) {
		storage := &mocks.Storage{}
		storage.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("minio down"))
		m := NewMedia(storage, testutil.MakeNoopLogger())

		_, err := m.Upload(context.Background(), strings.NewReader("a"))
		assert.ErrorContains(t, err, "failed to upload asset")
	})
}

func TestMedia_Download(t *testing.T) {
	t.Run("existing asset", func(t *testing.T) {
		storage := &mocks.Storage{}
		storage.On("Exists", mock.Anything, "media/abc").Return(true, nil)
		storage.On("Download", mock.Anything, "media/abc").
			Return(io.NopCloser(strings.NewReader("bytes")), nil)
		m := NewMedia(storage, testutil.MakeNoopLogger())

		rc, err := m.Download(context.Background(), "media/abc")
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "bytes", string(data))
	})

	t.Run("missing asset", func(t *testing.T) {
		storage := &mocks.Storage{}
		storage.On("Exists", mock.Anything, "media/ghost").Return(false, nil)
		m := NewMedia(storage, testutil.MakeNoopLogger())

		_, err := m.Download(context.Background(), "media/ghost")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestMedia_Delete(t *testing.T) {
	storage := &mocks.Storage{}
	storage.On("Delete", mock.Anything, "media/abc").Return(nil)
	m := NewMedia(storage, testutil.MakeNoopLogger())

	assert.NoError(t, m.Delete(context.Background(), "media/abc"))
	storage.AssertExpectations(t)
}
