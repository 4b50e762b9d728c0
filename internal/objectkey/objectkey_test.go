package objectkey

import "testing"

// The exact strings below are shared with external consumers of the bucket;
// these tests pin them bit-for-bit.

func TestCASKey(t *testing.T) {
	got := CAS("chat", "ab12cdef00")
	want := "chat/cas/sha256/ab/ab12cdef00.json.zst"
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestSegKeys(t *testing.T) {
	data := SegData("chat", "default", "2025-08", "c1", "01J5SEG")
	if data != "chat/seg/default/2025-08/c1/seg-01J5SEG.jsonl.zst" {
		t.Fatalf("data key: %s", data)
	}

	idx := SegIndex("chat", "default", "2025-08", "c1", "01J5SEG", false)
	if idx != "chat/seg/default/2025-08/c1/seg-01J5SEG.idx.json" {
		t.Fatalf("index key: %s", idx)
	}

	pq := SegIndex("chat", "default", "2025-08", "c1", "01J5SEG", true)
	if pq != "chat/seg/default/2025-08/c1/seg-01J5SEG.idx.parquet" {
		t.Fatalf("parquet index key: %s", pq)
	}
}

func TestRangeHeader(t *testing.T) {
	if got := RangeHeader(0, 199); got != "bytes=0-199" {
		t.Fatalf("got %s", got)
	}
}
