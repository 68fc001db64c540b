package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/pinetree-ops/shiftlog/internal/conf"
	"github.com/pinetree-ops/shiftlog/internal/logging"
	"github.com/spf13/cobra"
)

var version = "dev"

// Loaded once in PersistentPreRunE, shared by every subcommand
var cfg *conf.Config

var rootCmd = &cobra.Command{
	Use:   "shiftlog",
	Short: "Shift attendance from chat messages",
	Long: `shiftlog records shift starts, breaks, shift ends and status updates
sent to a Viber or Slack bot, and exports them as CSV or XLSX with a
per-day summary of break and worked minutes.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load .env file
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load .env: %w", err)
		}

		cfg = conf.LoadFromEnv()
		logging.Init(logging.ParseLevel(cfg.LogLevel))

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		slog.Debug("config loaded", "db", cfg.Storage.DBPath, "timezone", cfg.Timezone)
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "shiftlog: %v\n", err)
		os.Exit(1)
	}
}
