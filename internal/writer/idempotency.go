package writer

import (
	"context"
	"errors"
	"time"

	"github.com/tranHoang-Phuc/chat-storage-arch/internal/coord"
)

// IdempotencyGuard deduplicates client-supplied idempotency keys with a
// bounded TTL. First writer wins; losers must treat the winner's msgId as
// authoritative.
type IdempotencyGuard struct {
	coords coord.Store
	ttl    time.Duration
}

// NewIdempotencyGuard wraps a coordination store with the configured TTL.
func NewIdempotencyGuard(coords coord.Store, ttl time.Duration) *IdempotencyGuard {
	return &IdempotencyGuard{coords: coords, ttl: ttl}
}

// AlreadySeen reports the msgId previously claimed for clientKey, if any.
func (g *IdempotencyGuard) AlreadySeen(ctx context.Context, clientKey string) (string, bool, error) {
	msgID, err := g.coords.Get(ctx, coord.SeenKey(clientKey))
	if errors.Is(err, coord.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return msgID, true, nil
}

// ClaimIfFirst atomically installs clientKey -> msgID and reports whether
// this caller made the claim.
func (g *IdempotencyGuard) ClaimIfFirst(ctx context.Context, clientKey, msgID string) (bool, error) {
	return g.coords.SetIfAbsent(ctx, coord.SeenKey(clientKey), msgID, g.ttl)
}
