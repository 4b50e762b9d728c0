package store

import (
	"context"
	"time"

	"github.com/tranHoang-Phuc/chat-storage-arch/internal/models"
)

// MetadataStore is the relational store for message references.
// PostgresStore, SQLiteStore, and MemoryStore implement this interface.
//
// Lookup methods return (nil, nil) when no row exists.
type MetadataStore interface {
	Close()
	Ping(ctx context.Context) error

	Save(ctx context.Context, ref *models.MessageRef) error
	FindByID(ctx context.Context, msgID string) (*models.MessageRef, error)
	FindAllByID(ctx context.Context, msgIDs []string) (map[string]*models.MessageRef, error)

	// Sequence-ordered range scans: seq > afterSeq ascending, or
	// seq < beforeSeq descending, at most limit rows.
	PageBySeqAsc(ctx context.Context, conversationID string, afterSeq int64, limit int) ([]models.MessageRef, error)
	PageBySeqDesc(ctx context.Context, conversationID string, beforeSeq int64, limit int) ([]models.MessageRef, error)

	// FindEligibleForCompaction returns rows still pointing at cas:*
	// objects created before olderThan, ordered by conversation then seq.
	FindEligibleForCompaction(ctx context.Context, olderThan time.Time) ([]models.MessageRef, error)

	// SaveAll rewrites the refId of existing rows in bulk (the compaction
	// repoint). Each row update is atomic: readers see either the old or
	// the new pointer, never a torn one.
	SaveAll(ctx context.Context, refs []models.MessageRef) error

	Stats(ctx context.Context) (*models.StorageStats, error)
}
