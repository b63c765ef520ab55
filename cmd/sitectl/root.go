package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khbm0110/JUUUU/internal/config"
	"github.com/khbm0110/JUUUU/internal/observability"
	"github.com/khbm0110/JUUUU/internal/storage"
)

var (
	configPath string
	verbose    bool
	logger     = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:           "sitectl",
	Short:         "Manage the law office site content",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		l, err := observability.NewLogger(level, "stderr")
		if err != nil {
			return err
		}
		logger = l.Named("sitectl")
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (defaults to SITE_CONFIG or config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func loadConfig() (*config.Config, error) {
	opts := []config.Option{config.WithoutValidation()}
	if configPath != "" {
		opts = append(opts, config.WithPath(configPath))
	}
	return config.Load(opts...)
}

func openBackend() (storage.Backend, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger.Debug("opening storage", zap.String("driver", cfg.Storage.Driver), zap.String("path", cfg.Storage.Path))
	return storage.Open(cfg.Storage, logger)
}
