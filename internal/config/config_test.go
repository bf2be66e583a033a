package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsUsable(t *testing.T) {
	cfg := Default()
	if cfg.Gateway.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Gateway.Port)
	}
	if cfg.DBPathResolved() != filepath.Join("./data", "app.db") {
		t.Fatalf("expected default db path under data root, got %q", cfg.DBPathResolved())
	}
}

func TestDBPathResolvedPrefersExplicitPath(t *testing.T) {
	cfg := Default()
	cfg.DBPath = "/var/lib/agentrt/custom.db"
	if got := cfg.DBPathResolved(); got != "/var/lib/agentrt/custom.db" {
		t.Fatalf("expected explicit DBPath to win, got %q", got)
	}
}

func TestLoadParsesJSON5FileAndAppliesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	content := `{
		// trailing comments are valid json5
		data_root: "/tmp/agentrt-data",
		gateway: { host: "127.0.0.1", port: 9090 },
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	os.Setenv("GATEWAY_PORT", "9999")
	defer os.Unsetenv("GATEWAY_PORT")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataRoot != "/tmp/agentrt-data" {
		t.Fatalf("expected data_root from file, got %q", cfg.DataRoot)
	}
	if cfg.Gateway.Host != "127.0.0.1" {
		t.Fatalf("expected host from file, got %q", cfg.Gateway.Host)
	}
	if cfg.Gateway.Port != 9999 {
		t.Fatalf("expected env override to win over file port, got %d", cfg.Gateway.Port)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json5"))
	if err != nil {
		t.Fatalf("load with missing file should not error: %v", err)
	}
	if cfg.DefaultModelID != "local-default" {
		t.Fatalf("expected default model id, got %q", cfg.DefaultModelID)
	}
}

func TestIndexEnvOverrides(t *testing.T) {
	os.Setenv("INDEX_EMBED_RATE_PER_SECOND", "2.5")
	defer os.Unsetenv("INDEX_EMBED_RATE_PER_SECOND")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Index.EmbedRatePerSecond != 2.5 {
		t.Fatalf("expected embed rate override 2.5, got %v", cfg.Index.EmbedRatePerSecond)
	}
}
