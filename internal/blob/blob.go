// Package blob abstracts the object store holding L0 objects and L1
// segments. Keys are hierarchical strings; there are no cross-key
// transactions.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no object exists at the requested key.
var ErrNotFound = errors.New("blob: object not found")

// Store is the object-store contract. RangeGet bounds are inclusive on
// both ends, matching the bytes=<start>-<end> header form.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	RangeGet(ctx context.Context, key string, startInclusive, endInclusive int64) ([]byte, error)
}
