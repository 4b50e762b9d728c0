// Package reader resolves pages of message references into message bodies,
// fetching from either storage tier. Byte ranges within a segment are
// merged before fetching, and resolution never reorders the page.
package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tranHoang-Phuc/chat-storage-arch/internal/blob"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/cas"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/coord"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/metrics"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/models"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/segment"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/store"
)

// MaxLimit bounds one read window.
const MaxLimit = 1000

var (
	// ErrValidation flags rejected input; no side effects occurred.
	ErrValidation = errors.New("reader: invalid request")

	// ErrMissingMapping means a reference points into a segment whose
	// key mapping is absent from the coordination store. Compaction
	// publishes the mapping before repointing, so this indicates a broken
	// invariant, not a retryable miss; it always surfaces.
	ErrMissingMapping = errors.New("reader: segment mapping missing")
)

// Reader resolves reference pages into records.
type Reader struct {
	meta     store.MetadataStore
	contents *cas.ContentStore
	blobs    blob.Store
	coords   coord.Store
	workers  int
	log      zerolog.Logger
}

// New assembles a Reader. workers caps concurrent backend fetches per
// request.
func New(meta store.MetadataStore, contents *cas.ContentStore, blobs blob.Store,
	coords coord.Store, workers int, log zerolog.Logger) *Reader {
	if workers <= 0 {
		workers = 10
	}
	return &Reader{
		meta:     meta,
		contents: contents,
		blobs:    blobs,
		coords:   coords,
		workers:  workers,
		log:      log,
	}
}

type segGroup struct {
	segmentID string
	slices    []sliceRequest
	spans     []*span
}

// ReadWindow returns up to limit records with seq > cursor ascending or
// seq < cursor descending, in seq order. A reference that fails to resolve
// is omitted from the page; a missing segment mapping fails the page.
func (r *Reader) ReadWindow(ctx context.Context, conversationID string, cursor int64,
	limit int, ascending bool) ([]models.MessageRecord, error) {

	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversation id must not be empty", ErrValidation)
	}
	if limit <= 0 || limit > MaxLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrValidation, MaxLimit)
	}

	var refs []models.MessageRef
	var err error
	if ascending {
		refs, err = r.meta.PageBySeqAsc(ctx, conversationID, cursor, limit)
	} else {
		refs, err = r.meta.PageBySeqDesc(ctx, conversationID, cursor, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("page references: %w", err)
	}
	if len(refs) == 0 {
		return []models.MessageRecord{}, nil
	}

	// Partition by tier; segment references group by segmentId.
	var casRefs []models.MessageRef
	groups := make(map[string]*segGroup)
	for _, ref := range refs {
		switch {
		case models.IsCASRef(ref.RefID):
			casRefs = append(casRefs, ref)
		case models.IsSegRef(ref.RefID):
			segmentID, offset, length, err := models.ParseSegRef(ref.RefID)
			if err != nil {
				r.omit(ref.MsgID, err)
				continue
			}
			g, ok := groups[segmentID]
			if !ok {
				g = &segGroup{segmentID: segmentID}
				groups[segmentID] = g
			}
			g.slices = append(g.slices, sliceRequest{msgID: ref.MsgID, start: offset, length: length})
		default:
			r.omit(ref.MsgID, fmt.Errorf("unknown reference tag %q", ref.RefID))
		}
	}

	// Resolve each segment's data key up front; an absent mapping fails
	// the whole page.
	dataKeys := make(map[string]string, len(groups))
	for segmentID := range groups {
		key, err := r.coords.Get(ctx, coord.SegKey(segmentID))
		if errors.Is(err, coord.ErrNotFound) {
			return nil, fmt.Errorf("%w: segment %s", ErrMissingMapping, segmentID)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve segment %s: %w", segmentID, err)
		}
		dataKeys[segmentID] = key
	}

	results := make(map[string]*models.MessageRecord, len(refs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	// CAS references resolve independently of one another.
	for _, ref := range casRefs {
		g.Go(func() error {
			hash, err := models.CASHash(ref.RefID)
			if err != nil {
				r.omit(ref.MsgID, err)
				return nil
			}
			rec, err := r.contents.Get(gctx, hash)
			if err != nil {
				r.omit(ref.MsgID, err)
				return nil
			}
			mu.Lock()
			results[ref.MsgID] = rec
			mu.Unlock()
			return nil
		})
	}

	// Segment groups: merge ranges, then fetch each covering span once.
	for _, group := range groups {
		group.spans = mergeSlices(group.slices)
		dataKey := dataKeys[group.segmentID]
		for _, sp := range group.spans {
			g.Go(func() error {
				metrics.SegmentRangeFetches.Inc()
				sp.data, sp.err = r.blobs.RangeGet(gctx, dataKey, sp.start, sp.end)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Slice each requested frame out of its covering span and decode.
	for _, group := range groups {
		for _, s := range group.slices {
			sp := findSpan(group.spans, s)
			if sp == nil || sp.err != nil {
				var cause error
				if sp != nil {
					cause = sp.err
				} else {
					cause = errors.New("no covering span")
				}
				r.omit(s.msgID, cause)
				continue
			}
			frame := sp.data[s.start-sp.start : s.start-sp.start+int64(s.length)]
			rec, err := segment.DecodeFrame(frame)
			if err != nil {
				r.omit(s.msgID, err)
				continue
			}
			results[s.msgID] = rec
		}
	}

	// Re-walk the page so fetch completion order never affects output
	// order.
	out := make([]models.MessageRecord, 0, len(refs))
	for _, ref := range refs {
		if rec, ok := results[ref.MsgID]; ok {
			out = append(out, *rec)
		}
	}

	metrics.ReadWindows.Inc()
	return out, nil
}

func (r *Reader) omit(msgID string, err error) {
	metrics.ReadRefFailures.Inc()
	r.log.Warn().Err(err).Str("msg_id", msgID).Msg("reference omitted from page")
}
