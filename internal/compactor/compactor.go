// Package compactor migrates aged L0 objects into L1 segments. The planner
// runs on a fixed interval; the builder writes segment data and index,
// publishes the segment-key mapping, and only then repoints references.
package compactor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/tranHoang-Phuc/chat-storage-arch/internal/blob"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/cas"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/coord"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/metrics"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/models"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/objectkey"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/segment"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/store"
)

// Config bounds and paces the compaction process.
type Config struct {
	Prefix string
	Tenant string

	// TargetBytes is the approximate compressed size at which a batch is
	// cut. Batching uses RecordEstimate per row rather than actual sizes;
	// the threshold is operational, not a precision guarantee.
	TargetBytes    int
	RecordEstimate int

	// Grace keeps very recent writes out of compaction so reads of hot
	// data stay on the L0 path.
	Grace    time.Duration
	Interval time.Duration
}

// Compactor plans and builds segments.
type Compactor struct {
	meta     store.MetadataStore
	contents *cas.ContentStore
	blobs    blob.Store
	coords   coord.Store
	cfg      Config
	log      zerolog.Logger

	now     func() time.Time
	newULID func() string
}

// New assembles a Compactor.
func New(meta store.MetadataStore, contents *cas.ContentStore, blobs blob.Store,
	coords coord.Store, cfg Config, log zerolog.Logger) *Compactor {
	return &Compactor{
		meta:     meta,
		contents: contents,
		blobs:    blobs,
		coords:   coords,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		newULID:  func() string { return ulid.Make().String() },
	}
}

// Run executes planner ticks until ctx is cancelled. Ticks run
// sequentially in this goroutine: a tick that outlasts the interval delays
// the next one, and ticks missed meanwhile are dropped by the ticker, so a
// tick never runs concurrently with itself.
func (c *Compactor) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	c.log.Info().Dur("interval", c.cfg.Interval).Msg("compactor started")
	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("compactor stopped")
			return
		case <-ticker.C:
			if err := c.RunOnce(ctx); err != nil {
				c.log.Error().Err(err).Msg("planner tick failed")
			}
		}
	}
}

// RunOnce executes one planner pass: select eligible cas:* rows, group by
// conversation, sort by seq, and cut size-bounded batches. Failed batches
// are abandoned; their rows stay cas:* and are retried on a later tick.
func (c *Compactor) RunOnce(ctx context.Context) error {
	metrics.CompactionRuns.Inc()

	cutoff := c.now().UTC().Add(-c.cfg.Grace)
	candidates, err := c.meta.FindEligibleForCompaction(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("scan eligible rows: %w", err)
	}
	if len(candidates) == 0 {
		return nil
	}

	period := c.now().UTC().Format("2006-01")

	byConversation := make(map[string][]models.MessageRef)
	for _, ref := range candidates {
		byConversation[ref.ConversationID] = append(byConversation[ref.ConversationID], ref)
	}

	// Deterministic conversation order keeps retries well-behaved.
	conversations := make([]string, 0, len(byConversation))
	for id := range byConversation {
		conversations = append(conversations, id)
	}
	sort.Strings(conversations)

	for _, conversationID := range conversations {
		rows := byConversation[conversationID]
		sort.Slice(rows, func(i, j int) bool { return rows[i].Seq < rows[j].Seq })

		var batch []models.MessageRef
		approx := 0
		for _, row := range rows {
			batch = append(batch, row)
			approx += c.cfg.RecordEstimate
			if approx >= c.cfg.TargetBytes {
				c.compactBatch(ctx, period, conversationID, batch)
				batch, approx = nil, 0
			}
		}
		if len(batch) > 0 {
			c.compactBatch(ctx, period, conversationID, batch)
		}
	}
	return nil
}

func (c *Compactor) compactBatch(ctx context.Context, period, conversationID string, batch []models.MessageRef) {
	if err := c.CompactGroup(ctx, c.cfg.Tenant, period, conversationID, batch); err != nil {
		metrics.CompactionFailures.Inc()
		c.log.Error().Err(err).
			Str("conversation_id", conversationID).
			Int("batch_size", len(batch)).
			Msg("batch abandoned, rows remain cas")
	}
}

// CompactGroup assembles one segment from a batch and repoints its rows.
// Steps before the mapping publish leave no partial state visible to
// readers; a failure during the final rewrite leaves a consistent mix of
// repointed and still-cas rows, both resolvable, retried next tick.
func (c *Compactor) CompactGroup(ctx context.Context, tenant, period, conversationID string, batch []models.MessageRef) error {
	segmentID := c.newULID()

	records := make([]*models.MessageRecord, 0, len(batch))
	for _, ref := range batch {
		hash, err := models.CASHash(ref.RefID)
		if err != nil {
			return err
		}
		// A corrupt L0 object aborts the whole batch: it must not be
		// silently dropped from the historical record.
		rec, err := c.contents.Get(ctx, hash)
		if err != nil {
			return fmt.Errorf("load L0 object for %s: %w", ref.MsgID, err)
		}
		records = append(records, rec)
	}

	data, index, err := segment.Build(records)
	if err != nil {
		return fmt.Errorf("build segment: %w", err)
	}

	dataKey := objectkey.SegData(c.cfg.Prefix, tenant, period, conversationID, segmentID)
	indexKey := objectkey.SegIndex(c.cfg.Prefix, tenant, period, conversationID, segmentID, false)

	if err := c.blobs.Put(ctx, dataKey, data, objectkey.ContentTypeZstd); err != nil {
		return fmt.Errorf("write segment data: %w", err)
	}

	indexJSON, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := c.blobs.Put(ctx, indexKey, indexJSON, objectkey.ContentTypeJSON); err != nil {
		return fmt.Errorf("write segment index: %w", err)
	}

	// The mapping must be resolvable before any reference points into the
	// segment; publishing it is the commit point for this batch.
	if err := c.coords.Set(ctx, coord.SegKey(segmentID), dataKey); err != nil {
		return fmt.Errorf("publish segment mapping: %w", err)
	}

	msgIDs := make([]string, len(index))
	for i, entry := range index {
		msgIDs[i] = entry.MsgID
	}
	rows, err := c.meta.FindAllByID(ctx, msgIDs)
	if err != nil {
		return fmt.Errorf("reload references: %w", err)
	}

	updated := make([]models.MessageRef, 0, len(index))
	for _, entry := range index {
		row, ok := rows[entry.MsgID]
		if !ok {
			continue
		}
		row.RefID = models.SegRef(segmentID, entry.Offset, entry.Length)
		updated = append(updated, *row)
	}
	if err := c.meta.SaveAll(ctx, updated); err != nil {
		return fmt.Errorf("repoint references: %w", err)
	}

	metrics.SegmentsBuilt.Inc()
	metrics.MessagesCompacted.Add(float64(len(updated)))
	c.log.Info().
		Str("segment_id", segmentID).
		Str("conversation_id", conversationID).
		Int("messages", len(updated)).
		Int("bytes", len(data)).
		Msg("segment built")
	return nil
}
