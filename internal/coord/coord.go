// Package coord is the fast coordination store: per-conversation sequence
// counters, idempotency claims, and the segment-key mapping. All mutation
// goes through the store's native atomic primitives; the system never takes
// an application-level lock.
package coord

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when no value exists for the key.
var ErrNotFound = errors.New("coord: key not found")

// Store is the coordination-store contract.
type Store interface {
	// Increment atomically increments the counter at key and returns the
	// new value, linearizable per key.
	Increment(ctx context.Context, key string) (int64, error)
	// SetIfAbsent installs value with a TTL iff the key has no value, and
	// reports whether this call installed it.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Key formats shared across writers, compactors, and readers.

// SeqKey is the per-conversation sequence counter key.
func SeqKey(conversationID string) string {
	return fmt.Sprintf("seq:%s", conversationID)
}

// SeenKey maps a client idempotency key to the msgId it produced.
func SeenKey(clientKey string) string {
	return fmt.Sprintf("seen:%s", clientKey)
}

// SegKey maps a segmentId to its data object's storage key.
func SegKey(segmentID string) string {
	return fmt.Sprintf("segKey:%s", segmentID)
}
