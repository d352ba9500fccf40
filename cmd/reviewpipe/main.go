// Command reviewpipe ingests review CSV files, classifies them and exports
// the results.
//
// Usage:
//
//	reviewpipe ingest reviews.csv
//	reviewpipe process
//	reviewpipe export 2024-01-01 --output messages.json
//	reviewpipe status
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/reviewpipe/internal/logging"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/config"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/metrics"
)

var (
	// Global flags
	configPath string
	dbPath     string
	logLevel   string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "reviewpipe",
	Short:         "Incremental review classification pipeline",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.DBPath = dbPath
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}

		logger, err = logging.New(cfg.Log.Level, cfg.Log.File)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default $REVIEWPIPE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger != nil {
			logger.Error("command failed", zap.Error(err))
			_ = logger.Sync()
		}
		fmt.Fprintf(os.Stderr, "reviewpipe: %v\n", err)
		os.Exit(1)
	}
}

// withPipeline opens the configured pipeline, runs fn and always closes the
// store and flushes metrics afterwards.
func withPipeline(ctx context.Context, fn func(p *reviewpipe.Pipeline) error) (err error) {
	m := metrics.New()
	p, err := reviewpipe.Open(ctx, cfg, logger, m)
	if err != nil {
		return err
	}
	defer func() {
		if mErr := p.WriteMetrics(cfg.Metrics.Textfile); mErr != nil {
			logger.Warn("failed to write metrics textfile", zap.Error(mErr))
		}
		err = errors.Join(err, p.Close())
	}()
	return fn(p)
}
