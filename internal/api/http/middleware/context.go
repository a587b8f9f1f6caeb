package middleware

import (
	"context"

	"github.com/pressbox/pressbox/internal/model"
)

type ctxKey int

const readerKey ctxKey = iota

// SetReader returns a context carrying the resolved reader identity.
func SetReader(ctx context.Context, reader model.Reader) context.Context {
	return context.WithValue(ctx, readerKey, reader)
}

// ReaderFromContext retrieves the reader identity resolved by the
// Authenticate middleware.
func ReaderFromContext(ctx context.Context) (model.Reader, bool) {
	reader, ok := ctx.Value(readerKey).(model.Reader)
	return reader, ok
}
