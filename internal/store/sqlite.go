package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tranHoang-Phuc/chat-storage-arch/internal/models"
)

// SQLiteStore handles SQLite metadata operations. Development backend with
// the same behavior as PostgresStore.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/chatstore.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/chatstore.db"
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, err
		}
		dbPath += "?_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// initSchema creates the table if it doesn't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS messages_ref (
		id              TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		seq             INTEGER NOT NULL,
		role            TEXT NOT NULL,
		ref_id          TEXT NOT NULL,
		provider        TEXT NOT NULL DEFAULT '',
		model           TEXT NOT NULL DEFAULT '',
		tokens_in       INTEGER NOT NULL DEFAULT 0,
		tokens_out      INTEGER NOT NULL DEFAULT 0,
		cost_usd        REAL NOT NULL DEFAULT 0,
		created_at      DATETIME NOT NULL,
		meta            TEXT NOT NULL DEFAULT ''
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_ref_conv_seq
		ON messages_ref (conversation_id, seq);
	`)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Save inserts a new message reference row.
func (s *SQLiteStore) Save(ctx context.Context, ref *models.MessageRef) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages_ref (id, conversation_id, seq, role, ref_id,
			provider, model, tokens_in, tokens_out, cost_usd, created_at, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ref.MsgID, ref.ConversationID, ref.Seq, ref.Role, ref.RefID,
		ref.Provider, ref.Model, ref.TokensIn, ref.TokensOut, ref.CostUSD,
		ref.CreatedAt.UTC(), ref.Meta)
	return err
}

func scanSQLiteRef(scan func(dest ...any) error) (*models.MessageRef, error) {
	ref := &models.MessageRef{}
	err := scan(
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
func (s *SQLiteStore) FindByID(ctx context.Context, msgID string) (*models.MessageRef, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, seq, role, ref_id, provider, model,
			tokens_in, tokens_out, cost_usd, created_at, meta
		FROM messages_ref WHERE id = ?
	`, msgID)
	ref, err := scanSQLiteRef(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return ref, nil
}

// FindAllByID retrieves references for a set of message ids.
func (s *SQLiteStore) FindAllByID(ctx context.Context, msgIDs []string) (map[string]*models.MessageRef, error) {
	if len(msgIDs) == 0 {
		return map[string]*models.MessageRef{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(msgIDs)), ",")
	args := make([]any, len(msgIDs))
	for i, id := range msgIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, seq, role, ref_id, provider, model,
			tokens_in, tokens_out, cost_usd, created_at, meta
		FROM messages_ref WHERE id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*models.MessageRef, len(msgIDs))
	for rows.Next() {
		ref, err := scanSQLiteRef(rows.Scan)
		if err != nil {
			return nil, err
		}
		out[ref.MsgID] = ref
	}
	return out, rows.Err()
}

func (s *SQLiteStore) page(ctx context.Context, query, conversationID string, cursor int64, limit int) ([]models.MessageRef, error) {
	rows, err := s.db.QueryContext(ctx, query, conversationID, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []models.MessageRef
	for rows.Next() {
		ref, err := scanSQLiteRef(rows.Scan)
		if err != nil {
			return nil, err
		}
		refs = append(refs, *ref)
	}
	return refs, rows.Err()
}

// PageBySeqAsc returns up to limit rows with seq > afterSeq, ascending.
func (s *SQLiteStore) PageBySeqAsc(ctx context.Context, conversationID string, afterSeq int64, limit int) ([]models.MessageRef, error) {
	return s.page(ctx, `
		SELECT id, conversation_id, seq, role, ref_id, provider, model,
			tokens_in, tokens_out, cost_usd, created_at, meta
		FROM messages_ref
		WHERE conversation_id = ? AND seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`, conversationID, afterSeq, limit)
}

// PageBySeqDesc returns up to limit rows with seq < beforeSeq, descending.
func (s *SQLiteStore) PageBySeqDesc(ctx context.Context, conversationID string, beforeSeq int64, limit int) ([]models.MessageRef, error) {
	return s.page(ctx, `
		SELECT id, conversation_id, seq, role, ref_id, provider, model,
			tokens_in, tokens_out, cost_usd, created_at, meta
		FROM messages_ref
		WHERE conversation_id = ? AND seq < ?
		ORDER BY seq DESC
		LIMIT ?
	`, conversationID, beforeSeq, limit)
}

// FindEligibleForCompaction returns cas:* rows older than the cutoff.
func (s *SQLiteStore) FindEligibleForCompaction(ctx context.Context, olderThan time.Time) ([]models.MessageRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, seq, role, ref_id, provider, model,
			tokens_in, tokens_out, cost_usd, created_at, meta
		FROM messages_ref
		WHERE ref_id LIKE 'cas:%' AND created_at < ?
		ORDER BY conversation_id, seq
	`, olderThan.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []models.MessageRef
	for rows.Next() {
		ref, err := scanSQLiteRef(rows.Scan)
		if err != nil {
			return nil, err
		}
		refs = append(refs, *ref)
	}
	return refs, rows.Err()
}

// SaveAll bulk-rewrites the refId of existing rows in one transaction.
func (s *SQLiteStore) SaveAll(ctx context.Context, refs []models.MessageRef) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, ref := range refs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE messages_ref SET ref_id = ? WHERE id = ?`, ref.RefID, ref.MsgID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Stats returns reference counts per storage tier.
func (s *SQLiteStore) Stats(ctx context.Context) (*models.StorageStats, error) {
	stats := &models.StorageStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN ref_id LIKE 'cas:%' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN ref_id LIKE 'seg:%' THEN 1 ELSE 0 END), 0)
		FROM messages_ref
	`).Scan(&stats.TotalMessages, &stats.CASRefs, &stats.SegRefs)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
