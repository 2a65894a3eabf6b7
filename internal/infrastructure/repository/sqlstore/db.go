// Package sqlstore persists translation cache entries, archived conversation
// turns and session events in Postgres or SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func ParseDialect(raw string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(raw))) {
	case DialectPostgres, "postgresql", "pgx":
		return DialectPostgres, nil
	case DialectSQLite, "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unknown sql dialect %q", raw)
	}
}

func (d Dialect) driver() string {
	if d == DialectSQLite {
		return "sqlite"
	}
	return "pgx"
}

var placeholder = regexp.MustCompile(`\$(\d+)`)

// rebind rewrites $N placeholders into SQLite's ?N form.
func (d Dialect) rebind(query string) string {
	if d != DialectSQLite {
		return query
	}
	return placeholder.ReplaceAllString(query, "?$1")
}

func OpenDB(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(dialect.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	if dialect == DialectSQLite {
		// One connection keeps ":memory:" databases shared and serializes writers.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS translation_cache (
	cache_key TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL,
	provider TEXT NOT NULL,
	translated_text TEXT NOT NULL,
	source_language TEXT NOT NULL,
	target_language TEXT NOT NULL,
	method TEXT NOT NULL,
	size_bytes BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS conversation_turns (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	sources JSONB NOT NULL DEFAULT '[]'::jsonb,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	success BOOLEAN NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversation_turns_session ON conversation_turns(session_id, created_at DESC);

CREATE TABLE IF NOT EXISTS session_events (
	id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	session_id TEXT NOT NULL,
	document_id TEXT,
	filename TEXT,
	chunks INTEGER NOT NULL DEFAULT 0,
	provider TEXT,
	success BOOLEAN NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id, occurred_at DESC);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS translation_cache (
	cache_key TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL,
	provider TEXT NOT NULL,
	translated_text TEXT NOT NULL,
	source_language TEXT NOT NULL,
	target_language TEXT NOT NULL,
	method TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS conversation_turns (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	sources TEXT NOT NULL DEFAULT '[]',
	metadata TEXT NOT NULL DEFAULT '{}',
	success BOOLEAN NOT NULL,
	error_message TEXT,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversation_turns_session ON conversation_turns(session_id, created_at DESC);

CREATE TABLE IF NOT EXISTS session_events (
	id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	session_id TEXT NOT NULL,
	document_id TEXT,
	filename TEXT,
	chunks INTEGER NOT NULL DEFAULT 0,
	provider TEXT,
	success BOOLEAN NOT NULL,
	occurred_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id, occurred_at DESC);
`

// EnsureSchema creates every table this package uses.
func EnsureSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if dialect == DialectSQLite {
		if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
			return fmt.Errorf("execute schema ddl: %w", err)
		}
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101601)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
