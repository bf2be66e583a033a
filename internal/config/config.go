// Package config loads the runtime configuration from an optional JSON5
// file overlaid with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/titanous/json5"
)

// Config is the root configuration for the agent runtime.
type Config struct {
	DataRoot string `json:"data_root"`
	DBPath   string `json:"db_path,omitempty"`

	ProviderBaseURL string `json:"provider_base_url"`
	ProviderAPIKey  string `json:"-"` // env only, never persisted
	DefaultModelID  string `json:"default_model_id"`
	EmbeddingModelID string `json:"embedding_model_id"`

	MaxUploadBytes    int64 `json:"max_upload_bytes"`
	MaxURLBytes       int64 `json:"max_url_bytes"`
	URLTimeoutSeconds int   `json:"url_timeout_seconds"`
	MaxRedirects      int   `json:"max_redirects"`

	MaxToolRounds         int `json:"max_tool_rounds"`
	MaxTotalToolCalls     int `json:"max_total_tool_calls"`
	ToolCallTimeoutSeconds int `json:"tool_call_timeout_seconds"`

	RepoRoot string `json:"repo_root"`

	Gateway GatewayConfig `json:"gateway"`
	Index   IndexConfig   `json:"index"`
}

// GatewayConfig configures the HTTP glue layer.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// IndexConfig configures the retrieval index.
type IndexConfig struct {
	EmbeddingDim       int     `json:"embedding_dim"`
	DefaultTopK        int     `json:"default_top_k"`
	MaxEmbedWorkers    int     `json:"max_embed_workers"`
	EmbedRatePerSecond float64 `json:"embed_rate_per_second"`
	CacheGCCron        string  `json:"cache_gc_cron"`
	CacheRetentionDays int     `json:"cache_retention_days"`
}

// Default returns a Config populated with the defaults from SPEC_FULL.md §6.
func Default() *Config {
	return &Config{
		DataRoot:         "./data",
		ProviderBaseURL:  "http://localhost:11434/v1",
		DefaultModelID:   "local-default",
		EmbeddingModelID: "local-embedder",

		MaxUploadBytes:    10 << 20,
		MaxURLBytes:       2 << 20,
		URLTimeoutSeconds: 10,
		MaxRedirects:      3,

		MaxToolRounds:          4,
		MaxTotalToolCalls:      15,
		ToolCallTimeoutSeconds: 30,

		RepoRoot: ".",

		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Index: IndexConfig{
			EmbeddingDim:       384,
			DefaultTopK:        5,
			MaxEmbedWorkers:    4,
			EmbedRatePerSecond: 4,
			CacheGCCron:        "0 3 * * *",
			CacheRetentionDays: 30,
		},
	}
}

// DBPathResolved returns DBPath if set, else DataRoot/app.db.
func (c *Config) DBPathResolved() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataRoot, "app.db")
}

// Load reads config from a JSON5 file (if present) and overlays environment
// variables, matching the teacher's json5-file-plus-env-override pattern.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	envInt64 := func(key string, dst *int64) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				*dst = n
			}
		}
	}
	envFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = n
			}
		}
	}

	envStr("DATA_ROOT", &c.DataRoot)
	envStr("DB_PATH", &c.DBPath)
	envStr("PROVIDER_BASE_URL", &c.ProviderBaseURL)
	envStr("PROVIDER_API_KEY", &c.ProviderAPIKey)
	envStr("DEFAULT_MODEL_ID", &c.DefaultModelID)
	envStr("EMBEDDING_MODEL_ID", &c.EmbeddingModelID)
	envStr("REPO_ROOT", &c.RepoRoot)

	envInt64("MAX_UPLOAD_BYTES", &c.MaxUploadBytes)
	envInt64("MAX_URL_BYTES", &c.MaxURLBytes)
	envInt("URL_TIMEOUT_SECONDS", &c.URLTimeoutSeconds)
	envInt("MAX_REDIRECTS", &c.MaxRedirects)

	envInt("MAX_TOOL_ROUNDS", &c.MaxToolRounds)
	envInt("MAX_TOTAL_TOOL_CALLS", &c.MaxTotalToolCalls)
	envInt("TOOL_CALL_TIMEOUT_SECONDS", &c.ToolCallTimeoutSeconds)

	envStr("GATEWAY_HOST", &c.Gateway.Host)
	envInt("GATEWAY_PORT", &c.Gateway.Port)

	envInt("INDEX_EMBEDDING_DIM", &c.Index.EmbeddingDim)
	envInt("INDEX_DEFAULT_TOP_K", &c.Index.DefaultTopK)
	envInt("INDEX_MAX_EMBED_WORKERS", &c.Index.MaxEmbedWorkers)
	envFloat("INDEX_EMBED_RATE_PER_SECOND", &c.Index.EmbedRatePerSecond)
	envStr("INDEX_CACHE_GC_CRON", &c.Index.CacheGCCron)
	envInt("INDEX_CACHE_RETENTION_DAYS", &c.Index.CacheRetentionDays)
}
