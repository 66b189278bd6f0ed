package main

import (
	"log/slog"
	"os"

	"github.com/Priya8975/webhook-receiver/internal/config"
	"github.com/Priya8975/webhook-receiver/internal/logging"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "webhook-receiver",
	Short: "Identity provider webhook receiver",
	Long: `webhook-receiver accepts webhook deliveries from the identity provider.

By default deliveries are acknowledged and dropped (WEBHOOK_MODE=disabled).
With WEBHOOK_MODE=processing they are verified, stored in Postgres and
dispatched to handlers.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "optional YAML config file; environment variables take precedence")
	rootCmd.AddCommand(newServeCmd(), newMigrateCmd(), newSendCmd())

	// Running the binary without a subcommand serves, like the old entrypoint.
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	}

	if err := rootCmd.Execute(); err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("command failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and builds the process logger from it.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout), nil
}
