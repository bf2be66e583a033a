package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentrt/agentrt/internal/config"
	"github.com/agentrt/agentrt/internal/providers"
	"github.com/agentrt/agentrt/internal/store"
)

// healthCmd pings the store and the provider's list_models endpoint,
// per spec.md §6's minimal CLI surface.
func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to the store and the model provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return configErr(err)
			}

			db, err := store.Open(cfg.DBPathResolved(), "")
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer db.Close()

			if err := db.Ping(); err != nil {
				return fmt.Errorf("store unreachable: %w", err)
			}
			cmd.Println("store: ok")

			provider := providers.NewOpenAIProvider(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.DefaultModelID)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			models, err := provider.ListModels(ctx)
			if err != nil {
				return fmt.Errorf("provider unreachable: %w", err)
			}
			cmd.Printf("provider: ok (%d models)\n", len(models))
			return nil
		},
	}
}
