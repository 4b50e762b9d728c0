package reader

import "testing"

func TestMergeContiguousAndGappedRanges(t *testing.T) {
	// [0,99], [100,199], [300,399] must merge to exactly [0,199], [300,399].
	slices := []sliceRequest{
		{msgID: "a", start: 0, length: 100},
		{msgID: "b", start: 100, length: 100},
		{msgID: "c", start: 300, length: 100},
	}

	spans := mergeSlices(slices)
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].start != 0 || spans[0].end != 199 {
		t.Fatalf("span 0 = [%d,%d], want [0,199]", spans[0].start, spans[0].end)
	}
	if spans[1].start != 300 || spans[1].end != 399 {
		t.Fatalf("span 1 = [%d,%d], want [300,399]", spans[1].start, spans[1].end)
	}
}

func TestMergeUnsortedAndOverlapping(t *testing.T) {
	slices := []sliceRequest{
		{msgID: "c", start: 50, length: 100}, // overlaps [0,99]
		{msgID: "a", start: 0, length: 100},
		{msgID: "b", start: 400, length: 10},
	}

	spans := mergeSlices(slices)
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].start != 0 || spans[0].end != 149 {
		t.Fatalf("span 0 = [%d,%d], want [0,149]", spans[0].start, spans[0].end)
	}
}

func TestSliceRecoverableFromSpan(t *testing.T) {
	// Each original slice must be recoverable by sub-slicing the span's
	// bytes at slice.start - span.start.
	payload := make([]byte, 200)
	for i := range payload {
		payload[i] = byte(i)
	}

	slices := []sliceRequest{
		{msgID: "a", start: 0, length: 100},
		{msgID: "b", start: 100, length: 100},
	}
	spans := mergeSlices(slices)
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	spans[0].data = payload

	for _, s := range slices {
		sp := findSpan(spans, s)
		if sp == nil {
			t.Fatalf("no span for %s", s.msgID)
		}
		got := sp.data[s.start-sp.start : s.start-sp.start+int64(s.length)]
		if got[0] != byte(s.start) || len(got) != s.length {
			t.Fatalf("slice %s recovered wrong bytes", s.msgID)
		}
	}
}
