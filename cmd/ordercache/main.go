package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uhyunpark/ordercache/params"
	"github.com/uhyunpark/ordercache/pkg/util"
)

const envFlagName = "env"

var (
	cfg    params.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "ordercache",
	Short:         "In-memory order cache with per-security matching",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envPath, err := cmd.Flags().GetString(envFlagName)
		if err != nil {
			return err
		}
		// Load config from .env file and environment variables
		cfg = params.LoadFromEnv(envPath)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}

		level, err := util.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		if cfg.Log.File != "" {
			logger, err = util.NewLoggerWithFile(cfg.Log.File, level)
		} else {
			logger, err = util.NewLogger(level)
		}
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		logger.Sugar().Debugw("logger_initialized",
			"level", cfg.Log.Level,
			"log_file", cfg.Log.File,
			"strategy", cfg.Cache.Strategy.String(),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String(envFlagName, "", "Path to a .env file (default: .env in the working directory)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(err)
		stop()
		os.Exit(1)
	}
}

// reportError sends err to the configured logger, or to the command's
// stderr when the failure happened before the logger was built.
func reportError(err error) {
	if logger == nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "ordercache: %v\n", err)
		return
	}
	logger.Sugar().Errorw("command_failed", "error", err)
	_ = logger.Sync()
}
