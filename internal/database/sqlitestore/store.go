// Package sqlitestore provides the SQLite-backed implementation of the
// trust engine's row store.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	_ "modernc.org/sqlite"
)

// schema declares every table the engine writes. The aggregate columns on
// comments (score, reports_count) are derived from the ledger tables and
// only ever written by RefreshAggregates inside a ledger transaction.
const schema = `
CREATE TABLE IF NOT EXISTS comments (
	source        TEXT NOT NULL,
	id            TEXT NOT NULL,
	author_id     TEXT NOT NULL,
	body          TEXT NOT NULL,
	parent_id     TEXT,
	created_at    TEXT NOT NULL,
	edited_at     TEXT,
	is_pinned     INTEGER NOT NULL DEFAULT 0,
	is_hidden     INTEGER NOT NULL DEFAULT 0,
	reports_count INTEGER NOT NULL DEFAULT 0,
	score         INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (source, id)
);

CREATE INDEX IF NOT EXISTS comments_parent ON comments(source, parent_id);

CREATE TABLE IF NOT EXISTS votes (
	source     TEXT NOT NULL,
	comment_id TEXT NOT NULL,
	voter_id   TEXT NOT NULL,
	value      INTEGER NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (source, comment_id, voter_id)
);

CREATE TABLE IF NOT EXISTS reports (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	comment_id  TEXT NOT NULL,
	reporter_id TEXT NOT NULL,
	reason      TEXT NOT NULL,
	details     TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	resolved_by TEXT NOT NULL DEFAULT '',
	resolved_at TEXT
);

-- One open report per (comment, reporter). The submission pre-check has a
-- race window; this partial index is the authoritative guard.
CREATE UNIQUE INDEX IF NOT EXISTS reports_open_unique
	ON reports(source, comment_id, reporter_id) WHERE status = 'open';

CREATE INDEX IF NOT EXISTS reports_by_comment ON reports(source, comment_id, status);

CREATE TABLE IF NOT EXISTS overrides (
	source         TEXT NOT NULL,
	comment_id     TEXT NOT NULL,
	is_whitelisted INTEGER NOT NULL,
	set_by         TEXT NOT NULL,
	set_at         TEXT NOT NULL,
	PRIMARY KEY (source, comment_id)
);
`

// Open opens (creating if necessary) the SQLite database at path and applies
// the schema. The handle is instrumented for tracing and configured for
// concurrent request handling: WAL journaling, a busy timeout, and immediate
// transactions so ledger writes serialize instead of failing on lock upgrade.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)

	db, err := otelsql.Open("sqlite", dsn,
		otelsql.WithAttributes(semconv.DBSystemSqlite),
	)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Store implements trust.Store on a *sql.DB.
type Store struct {
	db *sql.DB
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
