package cas

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/tranHoang-Phuc/chat-storage-arch/internal/blob"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/codec"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/models"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/objectkey"
)

func testRecord(t *testing.T) *models.MessageRecord {
	t.Helper()
	return &models.MessageRecord{
		MsgID:          "01J5TESTMSG",
		ConversationID: "c1",
		Seq:            1,
		Role:           "user",
		Body:           "hello",
		Meta:           map[string]any{"provider": "openai", "tokens": json.Number("12")},
		CreatedAt:      time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestPutIsContentAddressed(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemoryStore()
	store := NewContentStore(blobs, "chat")

	hash1, key1, err := store.Put(ctx, testRecord(t))
	if err != nil {
		t.Fatal(err)
	}
	hash2, key2, err := store.Put(ctx, testRecord(t))
	if err != nil {
		t.Fatal(err)
	}

	if hash1 != hash2 || key1 != key2 {
		t.Fatalf("identical records produced different addresses: %s vs %s", key1, key2)
	}
	if blobs.Len() != 1 {
		t.Fatalf("expected 1 stored object, got %d", blobs.Len())
	}
	if key1 != objectkey.CAS("chat", hash1) {
		t.Fatalf("key %s does not match hash-derived key", key1)
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewContentStore(blob.NewMemoryStore(), "chat")

	rec := testRecord(t)
	hash, _, err := store.Put(ctx, rec)
	if err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, hash)
	if err != nil {
		t.Fatal(err)
	}
	if got.MsgID != rec.MsgID || got.Seq != rec.Seq || got.Body != rec.Body {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	// The fetched record must hash to the same address.
	rehash, _, err := HashRecord(got)
	if err != nil {
		t.Fatal(err)
	}
	if rehash != hash {
		t.Fatalf("rehash %s != original %s", rehash, hash)
	}
}

func TestGetNotFound(t *testing.T) {
	store := NewContentStore(blob.NewMemoryStore(), "chat")
	_, err := store.Get(context.Background(), "ab00000000000000000000000000000000000000000000000000000000000000")
	if !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetCorrupt(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemoryStore()
	store := NewContentStore(blobs, "chat")

	hash := "ab00000000000000000000000000000000000000000000000000000000000000"
	if err := blobs.Put(ctx, objectkey.CAS("chat", hash), []byte("not zstd"), objectkey.ContentTypeZstd); err != nil {
		t.Fatal(err)
	}

	_, err := store.Get(ctx, hash)
	if !errors.Is(err, codec.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}
