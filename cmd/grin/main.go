package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rohankatakam/grin/internal/config"
	"github.com/rohankatakam/grin/internal/grin"
	"github.com/rohankatakam/grin/internal/logging"
	"github.com/rohankatakam/grin/internal/metrics"
	"github.com/rohankatakam/grin/internal/storage"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	backend string
	logger  *logging.Logger
	cfg     *config.Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "grin",
	Short: "grin - one retrieval API over many graph stores",
	Long: `grin loads, inspects and verifies property graphs held in memory, bbolt,
SQLite, PostgreSQL or Neo4j through a single capability-gated API.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var loadErr error
		cfg, loadErr = config.Load(cfgFile)
		if loadErr != nil {
			if cfgFile != "" {
				return loadErr
			}
			cfg = config.Default()
		}
		if backend != "" {
			cfg.Backend = backend
		}

		logCfg := logging.Config{
			Level:      cfg.Logging.Level,
			OutputFile: cfg.Logging.File,
			MaxSize:    int64(cfg.Logging.MaxSizeMB) * 1024 * 1024,
			MaxBackups: cfg.Logging.MaxBackups,
			JSONFormat: cfg.Logging.JSON,
		}
		if verbose {
			logCfg.Level = "debug"
			logCfg.AddSource = true
		}
		var err error
		logger, err = logging.New(logCfg)
		if err != nil {
			return err
		}
		if loadErr != nil {
			logger.WithError(loadErr).Warn("Failed to load config, using defaults")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cfg != nil && cfg.Metrics.Enabled && cfg.Metrics.TextfilePath != "" {
			if err := metrics.WriteTextfile(cfg.Metrics.TextfilePath, prometheus.DefaultGatherer); err != nil {
				logger.WithError(err).Warn("Failed to write metrics textfile")
			}
		}
		if logger != nil {
			logger.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .grin/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "storage backend (memory, bolt, sqlite, postgres, neo4j)")

	rootCmd.SetVersionTemplate(`grin {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(vertexCmd)
	rootCmd.AddCommand(propCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

// openStore validates the loaded config and opens the configured store
func openStore(ctx context.Context) (grin.Store, error) {
	result := cfg.Validate()
	for _, w := range result.Warnings {
		logger.Debug(w)
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return storage.Open(ctx, cfg, logger.Logger)
}
