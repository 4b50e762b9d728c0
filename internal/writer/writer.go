// Package writer orchestrates the L0 write path: sequence allocation,
// idempotency, content addressing, reference persistence, and the
// best-effort write notification.
package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/tranHoang-Phuc/chat-storage-arch/internal/canonical"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/cas"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/metrics"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/models"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/notify"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/store"
)

// Writer durably records one message per call. A successful return means
// the record is content-addressed in the blob store and referenced in the
// metadata store.
type Writer struct {
	seq      *SequenceAllocator
	guard    *IdempotencyGuard
	contents *cas.ContentStore
	meta     store.MetadataStore
	pub      notify.Publisher
	topic    string
	log      zerolog.Logger

	now     func() time.Time
	newULID func() string
}

// New assembles a Writer.
func New(seq *SequenceAllocator, guard *IdempotencyGuard, contents *cas.ContentStore,
	meta store.MetadataStore, pub notify.Publisher, topic string, log zerolog.Logger) *Writer {
	return &Writer{
		seq:      seq,
		guard:    guard,
		contents: contents,
		meta:     meta,
		pub:      pub,
		topic:    topic,
		log:      log,
		now:      time.Now,
		newULID:  func() string { return ulid.Make().String() },
	}
}

// Write records a message. When clientKey matches a previous write within
// the idempotency TTL, the previous record is returned (replayed=true) and
// no sequence number is allocated. The replayed record is rebuilt from the
// reference row: body is not re-fetched.
func (w *Writer) Write(ctx context.Context, conversationID string, role models.Role,
	body any, meta map[string]any, clientKey string) (rec *models.MessageRecord, replayed bool, err error) {

	if conversationID == "" {
		return nil, false, fmt.Errorf("conversation id must not be empty")
	}

	if clientKey != "" {
		prior, found, err := w.guard.AlreadySeen(ctx, clientKey)
		if err != nil {
			return nil, false, fmt.Errorf("idempotency lookup: %w", err)
		}
		if found {
			rec, err := w.replay(ctx, prior)
			if err != nil {
				return nil, false, err
			}
			if rec != nil {
				metrics.IdempotentReplays.Inc()
				return rec, true, nil
			}
			// Claim exists but the row is gone (e.g. a crash between claim
			// and save on a past attempt); fall through to a fresh write.
			w.log.Warn().Str("client_key", clientKey).Str("msg_id", prior).
				Msg("idempotency claim without reference row, writing fresh")
		}
	}

	msgID := w.newULID()
	seq, err := w.seq.NextSeq(ctx, conversationID)
	if err != nil {
		return nil, false, fmt.Errorf("allocate seq: %w", err)
	}

	now := w.now().UTC().Truncate(time.Microsecond)
	rec = &models.MessageRecord{
		MsgID:          msgID,
		ConversationID: conversationID,
		Seq:            seq,
		Role:           string(role),
		Body:           body,
		Meta:           meta,
		CreatedAt:      now,
	}

	hash, _, err := w.contents.Put(ctx, rec)
	if err != nil {
		return nil, false, fmt.Errorf("content store: %w", err)
	}

	ref := &models.MessageRef{
		MsgID:          msgID,
		ConversationID: conversationID,
		Seq:            seq,
		Role:           string(role),
		RefID:          models.CASRef(hash),
		CreatedAt:      now,
	}
	applyTelemetry(ref, meta)
	if meta != nil {
		serialized, err := json.Marshal(meta)
		if err != nil {
			return nil, false, fmt.Errorf("serialize meta: %w", err)
		}
		ref.Meta = string(serialized)
	}

	if err := w.meta.Save(ctx, ref); err != nil {
		return nil, false, fmt.Errorf("save reference: %w", err)
	}

	if clientKey != "" {
		claimed, err := w.guard.ClaimIfFirst(ctx, clientKey, msgID)
		if err != nil {
			// The write already stands; a failed claim only weakens future
			// replay detection.
			w.log.Warn().Err(err).Str("client_key", clientKey).Msg("idempotency claim failed")
		} else if !claimed {
			// Lost the race after writing. Duplicate CAS objects are
			// harmless; the duplicate reference row is the accepted cost
			// and is not rolled back.
			w.log.Info().Str("client_key", clientKey).Str("msg_id", msgID).
				Msg("lost idempotency race after write")
		}
	}

	w.notifyWritten(ctx, rec, hash)
	metrics.MessagesWritten.Inc()
	return rec, false, nil
}

// replay rebuilds the originally returned record from its reference row.
func (w *Writer) replay(ctx context.Context, msgID string) (*models.MessageRecord, error) {
	ref, err := w.meta.FindByID(ctx, msgID)
	if err != nil {
		return nil, fmt.Errorf("load reference %s: %w", msgID, err)
	}
	if ref == nil {
		return nil, nil
	}

	rec := &models.MessageRecord{
		MsgID:          ref.MsgID,
		ConversationID: ref.ConversationID,
		Seq:            ref.Seq,
		Role:           ref.Role,
		CreatedAt:      ref.CreatedAt,
	}
	if ref.Meta != "" {
		var meta map[string]any
		if err := json.Unmarshal([]byte(ref.Meta), &meta); err == nil {
			rec.Meta = meta
		}
	}
	return rec, nil
}

// notifyWritten emits the write event. Failure is logged, never fatal.
func (w *Writer) notifyWritten(ctx context.Context, rec *models.MessageRecord, hash string) {
	payload, err := canonical.Encode(map[string]any{
		"msgId":          rec.MsgID,
		"conversationId": rec.ConversationID,
		"seq":            rec.Seq,
		"hash":           hash,
	})
	if err == nil {
		err = w.pub.Publish(ctx, w.topic, rec.ConversationID, payload)
	}
	if err != nil {
		metrics.NotifyFailures.Inc()
		w.log.Warn().Err(err).Str("msg_id", rec.MsgID).Msg("write notification failed")
	}
}

// applyTelemetry lifts well-known meta keys into queryable reference
// columns.
func applyTelemetry(ref *models.MessageRef, meta map[string]any) {
	if meta == nil {
		return
	}
	if s, ok := meta["provider"].(string); ok {
		ref.Provider = s
	}
	if s, ok := meta["model"].(string); ok {
		ref.Model = s
	}
	ref.TokensIn = metaInt(meta["tokensIn"])
	ref.TokensOut = metaInt(meta["tokensOut"])
	ref.CostUSD = metaFloat(meta["costUsd"])
}

func metaInt(v any) int64 {
	switch n := v.(type) {
	case json.Number:
		i, _ := n.Int64()
		return i
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	}
	return 0
}

func metaFloat(v any) float64 {
	switch n := v.(type) {
	case json.Number:
		f, _ := n.Float64()
		return f
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
