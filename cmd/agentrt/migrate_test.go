package main

import (
	"path/filepath"
	"testing"

	"github.com/agentrt/agentrt/internal/store"
)

func TestMigrateCommandAppliesSchema(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "agentrt.db")
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		t.Fatalf("resolve migrations dir: %v", err)
	}

	if err := store.Migrate(dbPath, migrationsDir); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	db, err := store.Open(dbPath, "")
	if err != nil {
		t.Fatalf("open migrated db: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		t.Fatalf("ping migrated db: %v", err)
	}
	if err := db.Sessions.EnsureExists("sess-migrate-check"); err != nil {
		t.Fatalf("expected sessions table to exist after migration: %v", err)
	}
}

func TestMigrateCommandIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "agentrt.db")
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		t.Fatalf("resolve migrations dir: %v", err)
	}

	if err := store.Migrate(dbPath, migrationsDir); err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	if err := store.Migrate(dbPath, migrationsDir); err != nil {
		t.Fatalf("second migrate should be a no-op, got: %v", err)
	}
}
