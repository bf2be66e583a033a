package export

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentrt/agentrt/internal/store"
)

func openExportTestStore(t *testing.T) *store.DB {
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

func readZIP(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	out := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		rc.Close()
		out[f.Name] = buf.Bytes()
	}
	return out
}

func TestExportEntriesAndOrderForEmptySession(t *testing.T) {
	db := openExportTestStore(t)
	if err := db.Sessions.EnsureExists("sess-empty"); err != nil {
		t.Fatal(err)
	}

	p := NewPacker(db)
	data, err := p.Export("sess-empty", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	wantOrder := []string{
		"idea.md", "tech_stack.md", "summary.md",
		"todos.json", "rules_ingested.txt", "session_metadata.json",
	}
	if len(zr.File) != len(wantOrder) {
		t.Fatalf("expected %d entries, got %d", len(wantOrder), len(zr.File))
	}
	for i, f := range zr.File {
		if f.Name != wantOrder[i] {
			t.Errorf("entry %d: expected %q, got %q", i, wantOrder[i], f.Name)
		}
	}

	entries := readZIP(t, data)
	if string(entries["idea.md"]) != stubContent {
		t.Errorf("expected stub idea.md content, got %q", entries["idea.md"])
	}
	if string(entries["todos.json"]) != "[]" {
		t.Errorf("expected empty todos array, got %q", entries["todos.json"])
	}
	if string(entries["rules_ingested.txt"]) != "" {
		t.Errorf("expected empty rules_ingested.txt, got %q", entries["rules_ingested.txt"])
	}
}

func TestExportUsesStoredArtifactsWhenPresent(t *testing.T) {
	db := openExportTestStore(t)
	if err := db.Sessions.EnsureExists("sess-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Artifacts.Put("sess-1", store.ArtifactProjectIdea, "a neat idea", nil); err != nil {
		t.Fatal(err)
	}

	p := NewPacker(db)
	data, err := p.Export("sess-1", time.Now())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	entries := readZIP(t, data)
	if string(entries["idea.md"]) != "a neat idea" {
		t.Errorf("expected derived idea content, got %q", entries["idea.md"])
	}
	if string(entries["tech_stack.md"]) != stubContent {
		t.Errorf("expected stub tech_stack.md, got %q", entries["tech_stack.md"])
	}
}

func TestExportIsByteIdenticalForIdenticalState(t *testing.T) {
	db := openExportTestStore(t)
	if err := db.Sessions.EnsureExists("sess-2"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Artifacts.Put("sess-2", store.ArtifactTechStack, "Go, SQLite", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Tasks.Create(strPtr("sess-2"), "write tests", 2); err != nil {
		t.Fatal(err)
	}

	p := NewPacker(db)
	exportedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first, err := p.Export("sess-2", exportedAt)
	if err != nil {
		t.Fatalf("Export (first): %v", err)
	}
	second, err := p.Export("sess-2", exportedAt)
	if err != nil {
		t.Fatalf("Export (second): %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("expected byte-identical ZIPs for identical session state and exportedAt")
	}
}

func TestExportSessionMetadataFields(t *testing.T) {
	db := openExportTestStore(t)
	if err := db.Sessions.EnsureExists("sess-3"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Messages.Append(db.Sessions, "sess-3", store.RoleUser, "hi", nil); err != nil {
		t.Fatal(err)
	}
	if err := db.Settings.Put("current_model", "fake-model"); err != nil {
		t.Fatal(err)
	}

	p := NewPacker(db)
	exportedAt := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	data, err := p.Export("sess-3", exportedAt)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	entries := readZIP(t, data)
	meta := string(entries["session_metadata.json"])
	if !bytes.Contains([]byte(meta), []byte(`"message_count": 1`)) {
		t.Errorf("expected message_count 1 in metadata, got %s", meta)
	}
	if !bytes.Contains([]byte(meta), []byte(`"model_id": "fake-model"`)) {
		t.Errorf("expected model_id fake-model in metadata, got %s", meta)
	}
	if !bytes.Contains([]byte(meta), []byte(`"exported_at": "2026-04-01T00:00:00Z"`)) {
		t.Errorf("expected exported_at timestamp in metadata, got %s", meta)
	}
}

func strPtr(s string) *string { return &s }
