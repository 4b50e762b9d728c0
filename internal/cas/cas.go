// Package cas content-addresses L0 message objects: SHA-256 over the
// canonical encoding, zstd-compressed, stored at a hash-derived key.
// Identical logical content always maps to the identical key, so repeat
// writes dedup naturally.
package cas

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/tranHoang-Phuc/chat-storage-arch/internal/blob"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/canonical"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/codec"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/models"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/objectkey"
)

// ContentStore reads and writes single-object blobs keyed by content hash.
type ContentStore struct {
	blobs  blob.Store
	prefix string
}

// NewContentStore wraps a blob store under the given key prefix.
func NewContentStore(blobs blob.Store, prefix string) *ContentStore {
	return &ContentStore{blobs: blobs, prefix: prefix}
}

// HashRecord returns the content address of a record: hex SHA-256 of its
// canonical encoding, plus the canonical bytes themselves.
func HashRecord(rec *models.MessageRecord) (hash string, canonicalBytes []byte, err error) {
	canonicalBytes, err = canonical.Encode(rec.CanonicalValue())
	if err != nil {
		return "", nil, fmt.Errorf("canonicalize record %s: %w", rec.MsgID, err)
	}
	sum := sha256.Sum256(canonicalBytes)
	return hex.EncodeToString(sum[:]), canonicalBytes, nil
}

// Put content-addresses and stores the record, returning its hash and the
// storage key. Writing the same logical value twice rewrites the same key
// with the same bytes; correctness does not depend on skipping the write.
func (s *ContentStore) Put(ctx context.Context, rec *models.MessageRecord) (hash, key string, err error) {
	hash, canonicalBytes, err := HashRecord(rec)
	if err != nil {
		return "", "", err
	}

	key = objectkey.CAS(s.prefix, hash)
	compressed := codec.Compress(canonicalBytes, codec.LevelDefault)
	if err := s.blobs.Put(ctx, key, compressed, objectkey.ContentTypeZstd); err != nil {
		return "", "", fmt.Errorf("cas put %s: %w", key, err)
	}
	return hash, key, nil
}

// GetBytes fetches and decompresses the canonical JSON bytes for a hash.
func (s *ContentStore) GetBytes(ctx context.Context, hash string) ([]byte, error) {
	key := objectkey.CAS(s.prefix, hash)
	compressed, err := s.blobs.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	data, err := codec.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("cas object %s: %w", hash, err)
	}
	return data, nil
}

// Get fetches, decompresses, and decodes the record for a hash.
func (s *ContentStore) Get(ctx context.Context, hash string) (*models.MessageRecord, error) {
	data, err := s.GetBytes(ctx, hash)
	if err != nil {
		return nil, err
	}
	rec, err := models.DecodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("cas object %s: %w: %v", hash, codec.ErrCorrupt, err)
	}
	return rec, nil
}
