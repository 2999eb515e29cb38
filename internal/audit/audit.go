// Package audit keeps a Postgres log of finished mail batches.
//
// The log is optional: without a database the server uses Nop and mail
// results live only in memory until they expire.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/roster/internal/mail"
)

// Store records batches and lists recent ones.
type Store interface {
	Record(ctx context.Context, sessionID string, res mail.Result) error
	Recent(ctx context.Context, limit int) ([]BatchSummary, error)
}

// BatchSummary is one row of the batch history.
type BatchSummary struct {
	ID         string        `json:"batch_id"`
	SessionID  string        `json:"session_id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Sent       int           `json:"sent"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	RecordedAt time.Time     `json:"recorded_at"`
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS mail_batches (
	id          UUID PRIMARY KEY,
	session_id  TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL,
	sent        INT NOT NULL,
	skipped     INT NOT NULL,
	failed      INT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS mail_outcomes (
	batch_id UUID NOT NULL REFERENCES mail_batches(id) ON DELETE CASCADE,
	row_id   INT NOT NULL,
	email    TEXT,
	status   TEXT NOT NULL,
	error    TEXT,
	PRIMARY KEY (batch_id, row_id)
);`

// PgStore writes to Postgres through a pgx pool.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates the tables if needed and returns the store.
func NewPgStore(ctx context.Context, pool *pgxpool.Pool) (*PgStore, error) {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	return &PgStore{pool: pool}, nil
}

// Record inserts the batch and its outcomes in one transaction.
func (s *PgStore) Record(ctx context.Context, sessionID string, res mail.Result) error {
	id, err := toPgUUID(res.ID)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO mail_batches (id, session_id, started_at, duration_ms, sent, skipped, failed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, sessionID, res.StartedAt, res.Duration.Milliseconds(), res.Sent, res.Skipped, res.Failed,
	)
	if err != nil {
		return fmt.Errorf("insert mail batch: %w", err)
	}

	batch := &pgx.Batch{}
	for _, o := range res.Outcomes {
		batch.Queue(
			`INSERT INTO mail_outcomes (batch_id, row_id, email, status, error) VALUES ($1, $2, $3, $4, $5)`,
			id, int(o.RowID), toPgText(o.Email), string(o.Status), toPgText(o.Error),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert mail outcomes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Recent returns the newest batches first.
func (s *PgStore) Recent(ctx context.Context, limit int) ([]BatchSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, started_at, duration_ms, sent, skipped, failed, recorded_at
		 FROM mail_batches ORDER BY recorded_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query mail batches: %w", err)
	}
	defer rows.Close()

	var out []BatchSummary
	for rows.Next() {
		var (
			b  BatchSummary
			id pgtype.UUID
			ms int64
		)
		if err := rows.Scan(&id, &b.SessionID, &b.StartedAt, &ms, &b.Sent, &b.Skipped, &b.Failed, &b.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan mail batch: %w", err)
		}
		b.ID = uuid.UUID(id.Bytes).String()
		b.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, b)
	}
	return out, rows.Err()
}

// Nop discards everything.
type Nop struct{}

func (Nop) Record(context.Context, string, mail.Result) error   { return nil }
func (Nop) Recent(context.Context, int) ([]BatchSummary, error) { return nil, nil }

func toPgUUID(s string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("invalid batch id %q: %w", s, err)
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
