// Package archive copies displaced session documents into an immutable
// history table. Archiving is a post-commit side effect: the live document is
// already replaced by the time Archive runs, and a failed archive write never
// rolls the session back.
package archive

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Archiver stores a finished or recycled session document.
type Archiver interface {
	Archive(ctx context.Context, game string, doc []byte) error
}

// Schema creates the history table. Applied at startup when Postgres is
// configured.
const Schema = `
CREATE TABLE IF NOT EXISTS session_archive (
	id          UUID PRIMARY KEY,
	game        TEXT NOT NULL,
	document    JSONB NOT NULL,
	archived_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS session_archive_game_idx ON session_archive (game, archived_at);
`

// PGArchiver writes archived documents to Postgres via pgx.
type PGArchiver struct {
	pool *pgxpool.Pool
	log  *logrus.Entry
}

// NewPGArchiver connects and ensures the schema exists.
func NewPGArchiver(ctx context.Context, dsn string, log *logrus.Entry) (*PGArchiver, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure archive schema: %w", err)
	}
	return &PGArchiver{pool: pool, log: log}, nil
}

// Archive implements Archiver.
func (a *PGArchiver) Archive(ctx context.Context, game string, doc []byte) error {
	_, err := a.pool.Exec(ctx,
		`INSERT INTO session_archive (id, game, document) VALUES ($1, $2, $3)`,
		uuid.New(), game, doc)
	if err != nil {
		return fmt.Errorf("archive %s session: %w", game, err)
	}
	return nil
}

// Close releases the pool.
func (a *PGArchiver) Close() { a.pool.Close() }

// NopArchiver drops documents; used when no Postgres DSN is configured.
type NopArchiver struct{}

// Archive implements Archiver.
func (NopArchiver) Archive(context.Context, string, []byte) error { return nil }

// MemoryArchiver keeps documents in memory; used by tests.
type MemoryArchiver struct {
	Docs map[string][][]byte
}

// Archive implements Archiver.
func (a *MemoryArchiver) Archive(_ context.Context, game string, doc []byte) error {
	if a.Docs == nil {
		a.Docs = make(map[string][][]byte)
	}
	a.Docs[game] = append(a.Docs[game], append([]byte(nil), doc...))
	return nil
}
