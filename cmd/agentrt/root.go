// Package main is the agentrt CLI entrypoint, grounded on the teacher's
// cmd/root.go cobra wiring (persistent --config/--verbose flags, one
// file per subcommand) trimmed to this runtime's three-command surface.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is overridden at build time via -ldflags.
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "agentrt",
	Short: "agentrt — offline local-first conversational agent runtime",
	Long:  "agentrt runs a streaming chat orchestrator, session-scoped retrieval index, and closed tool-dispatch layer against a local SQLite store and an OpenAI-compatible model endpoint.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: config.json or $AGENTRT_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(versionCmd())
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv("AGENTRT_CONFIG"); v != "" {
		return v
	}
	return "config.json"
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the agentrt version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(Version)
		},
	}
}

func main() {
	Execute()
}

// Execute runs the root command, translating errors into the exit codes
// from spec.md §6: 0 success, 2 config error, 3 migration failure, 1
// other fatal.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}
