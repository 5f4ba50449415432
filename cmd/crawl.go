package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/auditkit/seopipeline/internal/api"
	"github.com/auditkit/seopipeline/internal/audit"
	"github.com/auditkit/seopipeline/internal/clock/system"
	"github.com/auditkit/seopipeline/internal/config"
	"github.com/auditkit/seopipeline/internal/dispatch"
	"github.com/auditkit/seopipeline/internal/metrics"
	pubsubpublisher "github.com/auditkit/seopipeline/internal/publisher/pubsub"
	"github.com/auditkit/seopipeline/internal/sites"
	"github.com/auditkit/seopipeline/internal/supervisor"
)

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Dispatch crawls for all active sites",
		Long: `Runs the external crawler once per active site, at most
crawler.concurrency processes at a time, and reports the per-site
outcome. A non-zero exit code means at least one crawl failed, so the
outer scheduler can decide whether to re-run the batch.`,

		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := appCfg
	logger := appLog

	metrics.Init()
	clk := system.New()

	source, closeSource, err := buildSiteSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	siteList, err := source.ActiveSites(ctx)
	if err != nil {
		return fmt.Errorf("load site list: %w", err)
	}

	runDir := filepath.Join(cfg.Crawler.ExportDir, clk.Now().Format("2006_01_02"))
	sup := supervisor.New(supervisor.Config{
		Binary:  cfg.Crawler.Binary,
		Args:    cfg.Crawler.Args,
		Profile: cfg.Crawler.Profile,
		RunDir:  runDir,
		Timeout: cfg.Crawler.Timeout(),
	}, clk, logger)
	disp := dispatch.New(sup, cfg.Crawler.Concurrency, clk, logger)

	reports := api.NewReportStore()
	if cfg.Server.Enabled {
		stopServer := startStatusServer(cfg.Server.Addr, reports, logger)
		defer stopServer()
	}

	report, err := disp.Run(ctx, siteList)
	if err != nil {
		return fmt.Errorf("dispatch run: %w", err)
	}
	reports.Set(report)

	publishReport(ctx, cfg, logger, report)

	if report.Failed > 0 {
		return fmt.Errorf("%d of %d crawls failed", report.Failed, report.Submitted)
	}
	return nil
}

func buildSiteSource(ctx context.Context, cfg config.Config) (audit.SiteSource, func(), error) {
	if len(cfg.Crawler.Sites) > 0 {
		list := make([]audit.Site, len(cfg.Crawler.Sites))
		for i, s := range cfg.Crawler.Sites {
			list[i] = audit.Site{Domain: s.Domain, Label: s.Label}
		}
		return sites.NewStaticSource(list), func() {}, nil
	}

	source, err := sites.NewPostgresSource(ctx, sites.PostgresConfig{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open site source: %w", err)
	}
	return source, source.Close, nil
}

func startStatusServer(addr string, reports *api.ReportStore, logger *zap.Logger) func() {
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(reports, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("status server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status server failed", zap.Error(err))
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("status server shutdown failed", zap.Error(err))
		}
	}
}

// publishReport notifies the configured topic; delivery problems are
// logged, never fatal, because the report already exists locally.
func publishReport(ctx context.Context, cfg config.Config, logger *zap.Logger, report audit.RunReport) {
	if cfg.PubSub.Topic == "" {
		return
	}
	// The run context may already be cancelled; the notification should
	// still go out.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	pub, err := pubsubpublisher.New(pubCtx, cfg.PubSub.ProjectID, cfg.PubSub.Topic)
	if err != nil {
		logger.Warn("report publisher unavailable", zap.Error(err))
		return
	}
	defer func() {
		if cerr := pub.Close(); cerr != nil {
			logger.Warn("close report publisher", zap.Error(cerr))
		}
	}()

	id, err := pub.Publish(pubCtx, report)
	if err != nil {
		logger.Warn("report publish failed", zap.Error(err))
		return
	}
	logger.Info("report published",
		zap.String("run_id", report.RunID),
		zap.String("message_id", id),
	)
}
