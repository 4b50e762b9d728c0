package writer

import (
	"context"

	"github.com/tranHoang-Phuc/chat-storage-arch/internal/coord"
)

// SequenceAllocator hands out strictly increasing per-conversation sequence
// numbers. Linearizability comes from the coordination store's atomic
// increment; allocated numbers are never reused, so a crash after
// allocation burns the number (gaps are acceptable, duplicates are not).
type SequenceAllocator struct {
	coords coord.Store
}

// NewSequenceAllocator wraps a coordination store.
func NewSequenceAllocator(coords coord.Store) *SequenceAllocator {
	return &SequenceAllocator{coords: coords}
}

// NextSeq atomically increments and returns the conversation's counter.
func (a *SequenceAllocator) NextSeq(ctx context.Context, conversationID string) (int64, error) {
	return a.coords.Increment(ctx, coord.SeqKey(conversationID))
}
