// Command martlocator geocodes the mart catalog and serves it.
//
// Usage:
//
//	martlocator generate            # batch-geocode the catalog into the snapshot
//	martlocator serve               # load the snapshot and serve the ops API
//	martlocator validate [path]     # check a snapshot file
//	martlocator nearest --origin 37.55,126.97 --limit 5
//	martlocator clusters --bounds 33,124,39,132 --zoom 7
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/mart-locator/internal/config"
	"github.com/couchcryptid/mart-locator/internal/observability"
)

var (
	cfg     *config.Config
	logger  *slog.Logger
	envFile string
)

var rootCmd = &cobra.Command{
	Use:          "martlocator",
	Short:        "Geocode and locate the military mart catalog",
	Long:         "Batch-geocodes the open data mart catalog into a snapshot, resolves missing coordinates on demand, and ranks or clusters marts around a point.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		logger = observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	rootCmd.AddCommand(generateCmd, serveCmd, validateCmd, nearestCmd, clustersCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
