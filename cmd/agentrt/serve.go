package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentrt/agentrt/internal/config"
	"github.com/agentrt/agentrt/internal/export"
	"github.com/agentrt/agentrt/internal/httpapi"
	"github.com/agentrt/agentrt/internal/index"
	"github.com/agentrt/agentrt/internal/ingest"
	"github.com/agentrt/agentrt/internal/orchestrator"
	"github.com/agentrt/agentrt/internal/providers"
	"github.com/agentrt/agentrt/internal/store"
	"github.com/agentrt/agentrt/internal/tools"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, stream orchestrator, and retrieval index (default command)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

// lazyOneShotRunner breaks the construction cycle between the tool
// registry (which three artifact tools and the title tool need an
// OneShot runner for) and the Orchestrator (which needs the finished
// registry to construct). The tools only call RunOneShot after serve
// has fully wired everything, so binding orch after the fact is safe.
type lazyOneShotRunner struct {
	orch *orchestrator.Orchestrator
}

func (l *lazyOneShotRunner) RunOneShot(ctx context.Context, sessionID, systemInstruction string) (string, error) {
	return l.orch.RunOneShot(ctx, sessionID, systemInstruction)
}

func runServe() error {
	setupLogging()

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return configErr(err)
	}

	db, err := store.Open(cfg.DBPathResolved(), "")
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	if err := store.Migrate(cfg.DBPathResolved(), "migrations"); err != nil {
		return migrationErr(err)
	}

	embedder := index.NewHTTPEmbedder(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.EmbeddingModelID, cfg.Index.EmbeddingDim)
	idx := index.New(index.Config{
		DataRoot:           cfg.DataRoot,
		DefaultTopK:        cfg.Index.DefaultTopK,
		MaxEmbedWorkers:    cfg.Index.MaxEmbedWorkers,
		EmbedRatePerSecond: cfg.Index.EmbedRatePerSecond,
		CacheGCCron:        cfg.Index.CacheGCCron,
		CacheRetentionDays: cfg.Index.CacheRetentionDays,
	}, db.Rules, embedder)
	defer idx.Close()

	ingestor := ingest.New(db.Rules, ingest.PlainTextExtractor{}, idx, ingest.Config{
		MaxUploadBytes:    cfg.MaxUploadBytes,
		MaxURLBytes:       cfg.MaxURLBytes,
		URLTimeoutSeconds: cfg.URLTimeoutSeconds,
		MaxRedirects:      cfg.MaxRedirects,
	})

	provider := providers.NewOpenAIProvider(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.DefaultModelID)

	runner := &lazyOneShotRunner{}
	registry := tools.NewRegistry(
		tools.NewGetSessionIDTool(),
		tools.NewListTodosTool(db.Tasks),
		tools.NewAddTodoTool(db.Tasks),
		tools.NewClearTodosTool(db.Tasks),
		tools.NewListDirectoryTool(cfg.RepoRoot),
		tools.NewGenerateChatTitleTool(db.Sessions, db.Messages, runner),
		tools.NewDeriveProjectIdeaTool(db.Artifacts, runner),
		tools.NewCreateTechStackTool(db.Artifacts, runner),
		tools.NewSummarizeChatHistoryTool(db.Artifacts, runner),
	)

	orch := orchestrator.New(db, idx, registry, provider, orchestrator.Config{
		MaxToolRounds:     cfg.MaxToolRounds,
		MaxTotalToolCalls: cfg.MaxTotalToolCalls,
		ToolCallTimeout:   toSeconds(cfg.ToolCallTimeoutSeconds),
		DefaultTopK:       cfg.Index.DefaultTopK,
	})
	runner.orch = orch

	deriver := export.NewDeriver(orch, db.Artifacts)
	packer := export.NewPacker(db)

	server := httpapi.NewServer(db, orch, idx, ingestor, deriver, packer, provider)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutdown signal received", "signal", sig)
		cancel()
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
	slog.Info("agentrt serve starting", "version", Version, "addr", addr, "provider", provider.Name())

	if err := server.Start(ctx, addr); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func toSeconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}
