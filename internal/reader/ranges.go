package reader

import "sort"

// sliceRequest is one requested frame: a byte range inside a segment,
// inclusive on both ends.
type sliceRequest struct {
	msgID  string
	start  int64
	length int
}

func (s sliceRequest) end() int64 { return s.start + int64(s.length) - 1 }

// span is a merged covering range, fetched with a single backend call.
type span struct {
	start int64
	end   int64
	data  []byte
	err   error
}

// mergeSlices sorts the requests by offset and merges contiguous or
// overlapping ranges into minimal covering spans. This bounds the number
// of range fetches per segment regardless of how many frames a page wants
// from it.
func mergeSlices(slices []sliceRequest) []*span {
	sort.Slice(slices, func(i, j int) bool { return slices[i].start < slices[j].start })

	var spans []*span
	for _, s := range slices {
		if len(spans) > 0 && s.start <= spans[len(spans)-1].end+1 {
			last := spans[len(spans)-1]
			if s.end() > last.end {
				last.end = s.end()
			}
			continue
		}
		spans = append(spans, &span{start: s.start, end: s.end()})
	}
	return spans
}

// findSpan returns the span fully containing the slice.
func findSpan(spans []*span, s sliceRequest) *span {
	for _, sp := range spans {
		if s.start >= sp.start && s.end() <= sp.end {
			return sp
		}
	}
	return nil
}
