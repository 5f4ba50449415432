// Package cmd defines and implements the CLI commands for the
// seopipeline executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/auditkit/seopipeline/internal/config"
	"github.com/auditkit/seopipeline/internal/logging"
)

var (
	cfgFile string
	appCfg  config.Config
	appLog  *zap.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seopipeline",
		Short: "Batch SEO audit pipeline",
		Long: `seopipeline dispatches the external crawler across every monitored
site under a fixed concurrency ceiling, loads the resulting CSV exports
into Postgres, and syncs raw artifacts to object storage.`,
		SilenceUsage: true,

		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			appCfg = cfg
			appLog = logger
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
	cmd.AddCommand(newCrawlCmd(), newETLCmd(), newSyncCmd())
	return cmd
}

// Execute runs the CLI under a signal-aware context so an interrupt
// terminates in-flight crawler processes instead of orphaning them.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		if appLog != nil {
			appLog.Error("command failed", zap.Error(err))
			_ = appLog.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
	if appLog != nil {
		_ = appLog.Sync()
	}
}
