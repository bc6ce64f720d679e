package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"szakszon.com/holdings/config"
	"szakszon.com/holdings/logger"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "holdings",
	Short:         "holdings downloads the holdings of ETFs as CSV files.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configFile,
		"config",
		"",
		"Config file (default: ./holdings.yaml if present).",
	)
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config, quiet bool) (*zap.Logger, error) {
	level := cfg.Log.Level
	if quiet {
		level = "warn"
	}
	return logger.New(logger.Options{
		Level:      level,
		Format:     cfg.Log.Format,
		OutputFile: cfg.Log.OutputFile,
	})
}
