package main

import (
	"os"
	"testing"
)

func TestResolveConfigPathPrefersFlag(t *testing.T) {
	old := cfgFile
	defer func() { cfgFile = old }()

	cfgFile = "/tmp/explicit-config.json"
	if got := resolveConfigPath(); got != "/tmp/explicit-config.json" {
		t.Fatalf("expected explicit flag path, got %q", got)
	}
}

func TestResolveConfigPathFallsBackToEnv(t *testing.T) {
	old := cfgFile
	cfgFile = ""
	defer func() { cfgFile = old }()

	os.Setenv("AGENTRT_CONFIG", "/tmp/env-config.json")
	defer os.Unsetenv("AGENTRT_CONFIG")

	if got := resolveConfigPath(); got != "/tmp/env-config.json" {
		t.Fatalf("expected env config path, got %q", got)
	}
}

func TestResolveConfigPathDefaultsToConfigJSON(t *testing.T) {
	old := cfgFile
	cfgFile = ""
	defer func() { cfgFile = old }()
	os.Unsetenv("AGENTRT_CONFIG")

	if got := resolveConfigPath(); got != "config.json" {
		t.Fatalf("expected default config.json, got %q", got)
	}
}
