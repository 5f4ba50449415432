package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/auditkit/seopipeline/internal/storage"
	"github.com/auditkit/seopipeline/internal/uploader"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [dir]",
		Short: "Upload crawl exports to object storage",
		Long: `Uploads the export tree (crawler.export_dir by default, or the given
directory) to the configured blob storage provider, preserving the
date/domain layout.`,
		Args: cobra.MaximumNArgs(1),

		RunE: runSyncCommand,
	}
}

func runSyncCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := appCfg
	logger := appLog

	dir := cfg.Crawler.ExportDir
	if len(args) == 1 {
		dir = args[0]
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("init storage provider: %w", err)
	}

	up := uploader.New(store, cfg.Storage.Prefix, logger)
	count, err := up.SyncDir(ctx, dir)
	if err != nil {
		return err
	}

	logger.Info("sync finished",
		zap.String("dir", dir),
		zap.String("provider", cfg.Storage.Provider),
		zap.Int("files", count),
	)
	return nil
}
