package segment

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tranHoang-Phuc/chat-storage-arch/internal/canonical"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/codec"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/models"
)

func record(t *testing.T, msgID string, seq int64, body any) *models.MessageRecord {
	t.Helper()
	return &models.MessageRecord{
		MsgID:          msgID,
		ConversationID: "c1",
		Seq:            seq,
		Role:           "assistant",
		Body:           body,
		CreatedAt:      time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC),
	}
}

func canonicalOf(t *testing.T, rec *models.MessageRecord) string {
	t.Helper()
	b, err := canonical.Encode(rec.CanonicalValue())
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestFrameRoundTrip(t *testing.T) {
	body := map[string]any{
		"text":   "xin chào 世界",
		"tokens": json.Number("42"),
		"nested": map[string]any{"z": "last", "a": "first"},
	}
	rec := record(t, "01J5A", 1, body)

	frame, err := EncodeFrame(rec)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeFrame(frame)
	if err != nil {
		t.Fatal(err)
	}

	if canonicalOf(t, got) != canonicalOf(t, rec) {
		t.Fatalf("round trip changed canonical form:\n%s\n%s",
			canonicalOf(t, got), canonicalOf(t, rec))
	}
}

func TestDecodeFrameCorrupt(t *testing.T) {
	_, err := DecodeFrame([]byte("garbage"))
	if !errors.Is(err, codec.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestBuildIndexDescribesFrames(t *testing.T) {
	var records []*models.MessageRecord
	for i := 0; i < 5; i++ {
		records = append(records, record(t, fmt.Sprintf("01J5MSG%d", i), int64(i+1),
			fmt.Sprintf("message body number %d", i)))
	}

	data, index, err := Build(records)
	if err != nil {
		t.Fatal(err)
	}
	if len(index) != len(records) {
		t.Fatalf("expected %d index entries, got %d", len(records), len(index))
	}

	// Offsets strictly increasing, non-overlapping, covering the data.
	var expectedOffset int64
	for i, entry := range index {
		if entry.MsgID != records[i].MsgID {
			t.Fatalf("entry %d: msgId %s, want %s", i, entry.MsgID, records[i].MsgID)
		}
		if entry.Offset != expectedOffset {
			t.Fatalf("entry %d: offset %d, want %d", i, entry.Offset, expectedOffset)
		}
		if entry.Length <= 0 {
			t.Fatalf("entry %d: non-positive length", i)
		}
		expectedOffset += int64(entry.Length)
	}
	if expectedOffset != int64(len(data)) {
		t.Fatalf("index covers %d bytes, data is %d", expectedOffset, len(data))
	}

	// Each frame decodes in isolation from its byte span.
	for i, entry := range index {
		frame := data[entry.Offset : entry.Offset+int64(entry.Length)]
		got, err := DecodeFrame(frame)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if got.MsgID != records[i].MsgID {
			t.Fatalf("frame %d decoded msgId %s, want %s", i, got.MsgID, records[i].MsgID)
		}
	}
}
