package cmd

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/auditkit/seopipeline/internal/clock/system"
	"github.com/auditkit/seopipeline/internal/etl"
	"github.com/auditkit/seopipeline/internal/metrics"
)

func newETLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "etl",
		Short: "Load crawler CSV exports into the audit database",
		Long: `Walks the dated export directories produced by the crawl command,
parses each site's Internal:All CSV export, and loads the page rows
into Postgres. Processed directories are archived afterwards.`,

		RunE: runETLCommand,
	}
}

func runETLCommand(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := appCfg
	logger := appLog

	if cfg.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required for etl")
	}

	metrics.Init()

	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.DB.MaxConns > 0 {
		poolCfg.MaxConns = cfg.DB.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	loader := etl.New(pool, system.New(), logger, etl.Config{
		ExportDir:  cfg.Crawler.ExportDir,
		Archive:    cfg.ETL.Archive,
		ArchiveDir: cfg.ETL.ArchiveDir,
	})

	summary, err := loader.Run(ctx)
	if err != nil {
		return fmt.Errorf("run etl: %w", err)
	}

	logger.Info("etl finished",
		zap.Int("domains", summary.Domains),
		zap.Int("pages", summary.Pages),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors),
	)
	if summary.Errors > 0 {
		return fmt.Errorf("%d domains failed to load", summary.Errors)
	}
	return nil
}
