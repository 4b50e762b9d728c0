package reader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tranHoang-Phuc/chat-storage-arch/internal/blob"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/cas"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/coord"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/models"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/segment"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/store"
)

type readerFixture struct {
	meta     *store.MemoryStore
	blobs    *blob.MemoryStore
	coords   *coord.MemoryStore
	contents *cas.ContentStore
	reader   *Reader
}

func newReaderFixture(t *testing.T) *readerFixture {
	t.Helper()
	blobs := blob.NewMemoryStore()
	meta := store.NewMemoryStore()
	coords := coord.NewMemoryStore()
	contents := cas.NewContentStore(blobs, "test")
	return &readerFixture{
		meta:     meta,
		blobs:    blobs,
		coords:   coords,
		contents: contents,
		reader:   New(meta, contents, blobs, coords, 4, zerolog.Nop()),
	}
}

func testRecord(msgID, conversationID string, seq int64) *models.MessageRecord {
	return &models.MessageRecord{
		MsgID:          msgID,
		ConversationID: conversationID,
		Seq:            seq,
		Role:           "user",
		Body:           map[string]any{"text": "message " + msgID},
		CreatedAt:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).Add(time.Duration(seq) * time.Second),
	}
}

// addCAS writes a record to the content tier and registers its reference.
func (f *readerFixture) addCAS(t *testing.T, rec *models.MessageRecord) {
	t.Helper()
	ctx := context.Background()
	hash, _, err := f.contents.Put(ctx, rec)
	if err != nil {
		t.Fatalf("put content: %v", err)
	}
	err = f.meta.Save(ctx, &models.MessageRef{
		MsgID:          rec.MsgID,
		ConversationID: rec.ConversationID,
		Seq:            rec.Seq,
		Role:           rec.Role,
		RefID:          models.CASRef(hash),
		CreatedAt:      rec.CreatedAt,
	})
	if err != nil {
		t.Fatalf("save ref: %v", err)
	}
}

// addSegment builds a segment from records, stores it under dataKey,
// publishes the mapping and registers segment references.
func (f *readerFixture) addSegment(t *testing.T, segmentID, dataKey string, recs []*models.MessageRecord) {
	t.Helper()
	ctx := context.Background()
	data, index, err := segment.Build(recs)
	if err != nil {
		t.Fatalf("build segment: %v", err)
	}
	if err := f.blobs.Put(ctx, dataKey, data, "application/zstd"); err != nil {
		t.Fatalf("put segment: %v", err)
	}
	if err := f.coords.Set(ctx, coord.SegKey(segmentID), dataKey); err != nil {
		t.Fatalf("publish mapping: %v", err)
	}
	for i, rec := range recs {
		err := f.meta.Save(ctx, &models.MessageRef{
			MsgID:          rec.MsgID,
			ConversationID: rec.ConversationID,
			Seq:            rec.Seq,
			Role:           rec.Role,
			RefID:          models.SegRef(segmentID, index[i].Offset, index[i].Length),
			CreatedAt:      rec.CreatedAt,
		})
		if err != nil {
			t.Fatalf("save ref: %v", err)
		}
	}
}

func TestReadWindowMixedTiersKeepsOrder(t *testing.T) {
	f := newReaderFixture(t)
	conv := "conv-mixed"

	// seq 1 and 4 live in a segment, seq 2 and 3 in the content tier.
	f.addSegment(t, "seg-1", "test/seg/data-1", []*models.MessageRecord{
		testRecord("m1", conv, 1),
		testRecord("m4", conv, 4),
	})
	f.addCAS(t, testRecord("m2", conv, 2))
	f.addCAS(t, testRecord("m3", conv, 3))

	recs, err := f.reader.ReadWindow(context.Background(), conv, 0, 10, true)
	if err != nil {
		t.Fatalf("read window: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("expected 4 records, got %d", len(recs))
	}
	for i, want := range []string{"m1", "m2", "m3", "m4"} {
		if recs[i].MsgID != want {
			t.Errorf("position %d: got %s, want %s", i, recs[i].MsgID, want)
		}
		if recs[i].Seq != int64(i+1) {
			t.Errorf("position %d: seq %d, want %d", i, recs[i].Seq, i+1)
		}
	}
	body, ok := recs[0].Body.(map[string]any)
	if !ok || body["text"] != "message m1" {
		t.Errorf("segment record body not preserved: %v", recs[0].Body)
	}
}

func TestReadWindowDescending(t *testing.T) {
	f := newReaderFixture(t)
	conv := "conv-desc"
	for seq := int64(1); seq <= 5; seq++ {
		f.addCAS(t, testRecord("d"+string(rune('0'+seq)), conv, seq))
	}

	recs, err := f.reader.ReadWindow(context.Background(), conv, 4, 2, false)
	if err != nil {
		t.Fatalf("read window: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Seq != 3 || recs[1].Seq != 2 {
		t.Errorf("got seqs %d,%d, want 3,2", recs[0].Seq, recs[1].Seq)
	}
}

func TestReadWindowMissingMappingFailsPage(t *testing.T) {
	f := newReaderFixture(t)
	conv := "conv-gone"

	f.addCAS(t, testRecord("ok1", conv, 1))
	err := f.meta.Save(context.Background(), &models.MessageRef{
		MsgID:          "orphan",
		ConversationID: conv,
		Seq:            2,
		Role:           "assistant",
		RefID:          models.SegRef("seg-vanished", 0, 10),
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("save ref: %v", err)
	}

	_, err = f.reader.ReadWindow(context.Background(), conv, 0, 10, true)
	if !errors.Is(err, ErrMissingMapping) {
		t.Fatalf("expected ErrMissingMapping, got %v", err)
	}
}

func TestReadWindowOmitsUnresolvableRef(t *testing.T) {
	f := newReaderFixture(t)
	conv := "conv-partial"

	f.addCAS(t, testRecord("p1", conv, 1))
	// Points at a hash that was never written.
	err := f.meta.Save(context.Background(), &models.MessageRef{
		MsgID:          "p2",
		ConversationID: conv,
		Seq:            2,
		Role:           "user",
		RefID:          models.CASRef("deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"),
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("save ref: %v", err)
	}
	f.addCAS(t, testRecord("p3", conv, 3))

	recs, err := f.reader.ReadWindow(context.Background(), conv, 0, 10, true)
	if err != nil {
		t.Fatalf("read window: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records after omission, got %d", len(recs))
	}
	if recs[0].MsgID != "p1" || recs[1].MsgID != "p3" {
		t.Errorf("wrong survivors: %s, %s", recs[0].MsgID, recs[1].MsgID)
	}
}

func TestReadWindowValidation(t *testing.T) {
	f := newReaderFixture(t)
	ctx := context.Background()

	if _, err := f.reader.ReadWindow(ctx, "", 0, 10, true); !errors.Is(err, ErrValidation) {
		t.Errorf("empty conversation: got %v", err)
	}
	if _, err := f.reader.ReadWindow(ctx, "c", 0, 0, true); !errors.Is(err, ErrValidation) {
		t.Errorf("zero limit: got %v", err)
	}
	if _, err := f.reader.ReadWindow(ctx, "c", 0, MaxLimit+1, true); !errors.Is(err, ErrValidation) {
		t.Errorf("limit above cap: got %v", err)
	}
}

func TestReadWindowEmptyConversation(t *testing.T) {
	f := newReaderFixture(t)

	recs, err := f.reader.ReadWindow(context.Background(), "nobody-home", 0, 10, true)
	if err != nil {
		t.Fatalf("read window: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected empty page, got %d records", len(recs))
	}
}
