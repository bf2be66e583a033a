package tools

import (
	"path/filepath"
	"testing"

	"github.com/agentrt/agentrt/internal/store"
)

func openToolsTestStore(t *testing.T) *store.DB {
	t.Helper()
	dir := t.TempDir()
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		t.Fatalf("resolve migrations dir: %v", err)
	}
	db, err := store.Open(filepath.Join(dir, "test.db"), migrationsDir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
