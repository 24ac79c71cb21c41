package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the reference resolves to nothing.
var ErrNotFound = errors.New("blob not found")

// Store is the capability contract over the cloud blob tier. Put is an
// idempotent upsert per key: re-putting the same key overwrites, so the
// at-least-once delivery model converges.
type Store interface {
	// Put stores data under key and returns an opaque reference usable
	// with the other operations.
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get fetches the bytes behind a reference previously returned by Put.
	Get(ctx context.Context, ref string) ([]byte, error)
	Exists(ctx context.Context, ref string) (bool, error)
	// Delete removes the blob; reports whether anything was deleted.
	Delete(ctx context.Context, ref string) (bool, error)
}
