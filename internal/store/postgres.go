package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tranHoang-Phuc/chat-storage-arch/internal/models"
)

const refColumns = `id, conversation_id, seq, role, ref_id, provider, model,
	tokens_in, tokens_out, cost_usd, created_at, meta`

// PostgresStore handles PostgreSQL metadata operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// RunMigrations creates the schema if it does not exist.
func RunMigrations(ctx context.Context, databaseURL string) error {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS messages_ref (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			seq             BIGINT NOT NULL,
			role            TEXT NOT NULL,
			ref_id          TEXT NOT NULL,
			provider        TEXT NOT NULL DEFAULT '',
			model           TEXT NOT NULL DEFAULT '',
			tokens_in       BIGINT NOT NULL DEFAULT 0,
			tokens_out      BIGINT NOT NULL DEFAULT 0,
			cost_usd        DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at      TIMESTAMPTZ NOT NULL,
			meta            TEXT NOT NULL DEFAULT ''
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_ref_conv_seq
			ON messages_ref (conversation_id, seq);
		CREATE INDEX IF NOT EXISTS idx_messages_ref_compaction
			ON messages_ref (created_at) WHERE ref_id LIKE 'cas:%';
	`)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Save inserts a new message reference row.
func (s *PostgresStore) Save(ctx context.Context, ref *models.MessageRef) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages_ref (`+refColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, ref.MsgID, ref.ConversationID, ref.Seq, ref.Role, ref.RefID,
		ref.Provider, ref.Model, ref.TokensIn, ref.TokensOut, ref.CostUSD,
		ref.CreatedAt, ref.Meta)
	return err
}

func scanRef(row pgx.Row) (*models.MessageRef, error) {
	ref := &models.MessageRef{}
	err := row.Scan(
		&ref.MsgID,
		&ref.ConversationID,
		&ref.Seq,
		&ref.Role,
		&ref.RefID,
		&ref.Provider,
		&ref.Model,
		&ref.TokensIn,
		&ref.TokensOut,
		&ref.CostUSD,
		&ref.CreatedAt,
		&ref.Meta,
	)
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// FindByID retrieves a reference by message id.
func (s *PostgresStore) FindByID(ctx context.Context, msgID string) (*models.MessageRef, error) {
	ref, err := scanRef(s.pool.QueryRow(ctx, `
		SELECT `+refColumns+` FROM messages_ref WHERE id = $1
	`, msgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ref, nil
}

// FindAllByID retrieves references for a set of message ids.
func (s *PostgresStore) FindAllByID(ctx context.Context, msgIDs []string) (map[string]*models.MessageRef, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+refColumns+` FROM messages_ref WHERE id = ANY($1)
	`, msgIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*models.MessageRef, len(msgIDs))
	for rows.Next() {
		ref, err := scanRef(rows)
		if err != nil {
			return nil, err
		}
		out[ref.MsgID] = ref
	}
	return out, rows.Err()
}

func (s *PostgresStore) page(ctx context.Context, query, conversationID string, cursor int64, limit int) ([]models.MessageRef, error) {
	rows, err := s.pool.Query(ctx, query, conversationID, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []models.MessageRef
	for rows.Next() {
		ref, err := scanRef(rows)
		if err != nil {
			return nil, err
		}
		refs = append(refs, *ref)
	}
	return refs, rows.Err()
}

// PageBySeqAsc returns up to limit rows with seq > afterSeq, ascending.
func (s *PostgresStore) PageBySeqAsc(ctx context.Context, conversationID string, afterSeq int64, limit int) ([]models.MessageRef, error) {
	return s.page(ctx, `
		SELECT `+refColumns+` FROM messages_ref
		WHERE conversation_id = $1 AND seq > $2
		ORDER BY seq ASC
		LIMIT $3
	`, conversationID, afterSeq, limit)
}

// PageBySeqDesc returns up to limit rows with seq < beforeSeq, descending.
func (s *PostgresStore) PageBySeqDesc(ctx context.Context, conversationID string, beforeSeq int64, limit int) ([]models.MessageRef, error) {
	return s.page(ctx, `
		SELECT `+refColumns+` FROM messages_ref
		WHERE conversation_id = $1 AND seq < $2
		ORDER BY seq DESC
		LIMIT $3
	`, conversationID, beforeSeq, limit)
}

// FindEligibleForCompaction returns cas:* rows older than the cutoff,
// ordered by conversation then seq.
func (s *PostgresStore) FindEligibleForCompaction(ctx context.Context, olderThan time.Time) ([]models.MessageRef, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+refColumns+` FROM messages_ref
		WHERE ref_id LIKE 'cas:%' AND created_at < $1
		ORDER BY conversation_id, seq
	`, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []models.MessageRef
	for rows.Next() {
		ref, err := scanRef(rows)
		if err != nil {
			return nil, err
		}
		refs = append(refs, *ref)
	}
	return refs, rows.Err()
}

// SaveAll bulk-rewrites the refId of existing rows.
func (s *PostgresStore) SaveAll(ctx context.Context, refs []models.MessageRef) error {
	batch := &pgx.Batch{}
	for _, ref := range refs {
		batch.Queue(`UPDATE messages_ref SET ref_id = $1 WHERE id = $2`, ref.RefID, ref.MsgID)
	}
	return s.pool.SendBatch(ctx, batch).Close()
}

// Stats returns reference counts per storage tier.
func (s *PostgresStore) Stats(ctx context.Context) (*models.StorageStats, error) {
	stats := &models.StorageStats{}
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE ref_id LIKE 'cas:%'),
		       COUNT(*) FILTER (WHERE ref_id LIKE 'seg:%')
		FROM messages_ref
	`).Scan(&stats.TotalMessages, &stats.CASRefs, &stats.SegRefs)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
