package history

import (
	"context"
	"errors"
)

// ErrNotFound is returned by KV implementations when a key is absent.
var ErrNotFound = errors.New("key not found")

// KV is the minimal key-value surface the history needs. The production
// backend is Redis; tests use the in-memory implementation. Keeping the
// interface this small keeps the history portable to any storage backend.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}
