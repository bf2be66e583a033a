package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB is the single-writer relational store handle, wrapping *sql.DB the
// way the teacher's Postgres stores wrap one shared handle in
// store/pg/factory.go — here bound to a single local SQLite file instead
// of a Postgres cluster, per SPEC_FULL's local-first store.
type DB struct {
	Sessions  *SessionRepo
	Messages  *MessageRepo
	Tasks     *TaskRepo
	Artifacts *ArtifactRepo
	Rules     *RuleContextRepo
	Settings  *SettingRepo

	sql *sql.DB
}

// Open opens the SQLite database at path, creating parent directories as
// needed, and applies pending migrations from migrationsDir.
func Open(path, migrationsDir string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1) // single-writer discipline; SQLite serializes writers anyway

	if _, err := sqlDB.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := sqlDB.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		return nil, fmt.Errorf("enable wal: %w", err)
	}

	if migrationsDir != "" {
		if err := migrate(sqlDB, migrationsDir); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	return &DB{
		Sessions:  &SessionRepo{db: sqlDB},
		Messages:  &MessageRepo{db: sqlDB},
		Tasks:     &TaskRepo{db: sqlDB},
		Artifacts: &ArtifactRepo{db: sqlDB},
		Rules:     &RuleContextRepo{db: sqlDB},
		Settings:  &SettingRepo{db: sqlDB},
		sql:       sqlDB,
	}, nil
}

// Close releases the underlying connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Ping verifies the underlying connection is reachable, for the `health`
// CLI subcommand.
func (d *DB) Ping() error {
	_, err := d.sql.Exec(`SELECT 1`)
	return err
}
