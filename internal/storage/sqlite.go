package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver.
)

// migration represents a single schema migration step.
type migration struct {
	version int
	sql     string
}

// migrations holds all schema migrations in order. Each migration is applied
// exactly once, tracked by the schema_migrations table.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE delivery_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    routing_key TEXT NOT NULL,
    entity_id   TEXT NOT NULL DEFAULT '',
    recipient   TEXT NOT NULL DEFAULT '',
    provider    TEXT NOT NULL DEFAULT '',
    subject     TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL,
    reason      TEXT NOT NULL DEFAULT '',
    message_id  TEXT NOT NULL DEFAULT '',
    trace_id    TEXT NOT NULL DEFAULT '',
    created_at  DATETIME NOT NULL
);
CREATE INDEX idx_delivery_log_created ON delivery_log(created_at);
`,
	},
}

// NewSQLiteDB opens (or creates) a SQLite database at dbPath, configures
// pragmas for WAL mode, and runs any pending schema migrations.
func NewSQLiteDB(dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite is single-writer; serialize all access through one connection
	// to avoid SQLITE_BUSY errors from concurrent goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, pragmaErr := db.ExecContext(ctx, p); pragmaErr != nil {
			closeQuietly(db)
			return nil, fmt.Errorf("setting pragma %q: %w", p, pragmaErr)
		}
	}

	if err := runMigrations(ctx, db); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

func closeQuietly(db *sql.DB) {
	if cerr := db.Close(); cerr != nil {
		slog.Warn("failed to close database", "error", cerr)
	}
}

// runMigrations ensures the schema_migrations table exists and applies any
// pending migrations.
func runMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	current, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

// applyMigration runs a single schema migration inside a transaction.
func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.version, err)
	}

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Warn("failed to rollback migration", "version", m.version, "error", rbErr)
		}
		return fmt.Errorf("migration %d: %w", m.version, err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		m.version, time.Now().UTC(),
	); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Warn("failed to rollback migration", "version", m.version, "error", rbErr)
		}
		return fmt.Errorf("recording migration %d: %w", m.version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.version, err)
	}
	return nil
}

func currentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("querying current schema version: %w", err)
	}
	return v, nil
}
