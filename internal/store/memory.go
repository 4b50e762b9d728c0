package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tranHoang-Phuc/chat-storage-arch/internal/models"
)

// MemoryStore is an in-process metadata store for tests and single-node
// development mode.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]models.MessageRef
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]models.MessageRef)}
}

// Close is a no-op.
func (s *MemoryStore) Close() {}

// Ping is a no-op.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Save inserts a new message reference row.
func (s *MemoryStore) Save(_ context.Context, ref *models.MessageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[ref.MsgID]; exists {
		return fmt.Errorf("duplicate message id %s", ref.MsgID)
	}
	s.rows[ref.MsgID] = *ref
	return nil
}

// FindByID retrieves a reference by message id.
func (s *MemoryStore) FindByID(_ context.Context, msgID string) (*models.MessageRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.rows[msgID]
	if !ok {
		return nil, nil
	}
	return &ref, nil
}

// FindAllByID retrieves references for a set of message ids.
func (s *MemoryStore) FindAllByID(_ context.Context, msgIDs []string) (map[string]*models.MessageRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.MessageRef, len(msgIDs))
	for _, id := range msgIDs {
		if ref, ok := s.rows[id]; ok {
			copied := ref
			out[id] = &copied
		}
	}
	return out, nil
}

func (s *MemoryStore) conversation(conversationID string) []models.MessageRef {
	var refs []models.MessageRef
	for _, ref := range s.rows {
		if ref.ConversationID == conversationID {
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Seq < refs[j].Seq })
	return refs
}

// PageBySeqAsc returns up to limit rows with seq > afterSeq, ascending.
func (s *MemoryStore) PageBySeqAsc(_ context.Context, conversationID string, afterSeq int64, limit int) ([]models.MessageRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.MessageRef
	for _, ref := range s.conversation(conversationID) {
		if ref.Seq > afterSeq {
			out = append(out, ref)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// PageBySeqDesc returns up to limit rows with seq < beforeSeq, descending.
func (s *MemoryStore) PageBySeqDesc(_ context.Context, conversationID string, beforeSeq int64, limit int) ([]models.MessageRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs := s.conversation(conversationID)
	var out []models.MessageRef
	for i := len(refs) - 1; i >= 0; i-- {
		if refs[i].Seq < beforeSeq {
			out = append(out, refs[i])
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// FindEligibleForCompaction returns cas:* rows older than the cutoff.
func (s *MemoryStore) FindEligibleForCompaction(_ context.Context, olderThan time.Time) ([]models.MessageRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.MessageRef
	for _, ref := range s.rows {
		if models.IsCASRef(ref.RefID) && ref.CreatedAt.Before(olderThan) {
			out = append(out, ref)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConversationID != out[j].ConversationID {
			return out[i].ConversationID < out[j].ConversationID
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

// SaveAll rewrites the refId of existing rows.
func (s *MemoryStore) SaveAll(_ context.Context, refs []models.MessageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ref := range refs {
		row, ok := s.rows[ref.MsgID]
		if !ok {
			continue
		}
		row.RefID = ref.RefID
		s.rows[ref.MsgID] = row
	}
	return nil
}

// Stats returns reference counts per storage tier.
func (s *MemoryStore) Stats(context.Context) (*models.StorageStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &models.StorageStats{}
	for _, ref := range s.rows {
		stats.TotalMessages++
		switch {
		case models.IsCASRef(ref.RefID):
			stats.CASRefs++
		case models.IsSegRef(ref.RefID):
			stats.SegRefs++
		}
	}
	return stats, nil
}
