// Package etl loads crawler CSV exports into the audit database.
package etl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/auditkit/seopipeline/internal/audit"
	"github.com/auditkit/seopipeline/internal/metrics"
)

// Export directories are named by run date.
var dateDirPattern = regexp.MustCompile(`^\d{4}_\d{2}_\d{2}$`)

const (
	selectSiteQuery = `SELECT site_id FROM sites WHERE domain = $1`

	insertSiteQuery = `
INSERT INTO sites (domain, label, status)
VALUES ($1, $2, 'active')
RETURNING site_id`

	selectCrawlQuery = `SELECT crawl_id FROM crawls WHERE site_id = $1 AND crawl_date = $2`

	insertCrawlQuery = `
INSERT INTO crawls (site_id, crawl_date, crawl_started_at, crawl_status)
VALUES ($1, $2, $3, 'completed')
RETURNING crawl_id`

	insertPageQuery = `
INSERT INTO pages (
	crawl_id, url, status_code, indexability, indexability_status,
	title, title_length, meta_description, meta_description_length,
	h1, h1_count, word_count, response_time_ms, size_bytes,
	canonical_link, robots_txt_status, x_robots_tag
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT DO NOTHING`

	updateCrawlSummaryQuery = `
UPDATE crawls
SET total_pages = $1, crawl_completed_at = $2
WHERE crawl_id = $3`

	insertLogQuery = `
INSERT INTO etl_logs (crawl_id, site_id, log_level, message, file_path)
VALUES ($1, $2, $3, $4, $5)`
)

// DB is the subset of pgxpool.Pool the loader needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Config controls the export walk and archival behavior.
type Config struct {
	// ExportDir is the root holding <YYYY_MM_DD>/<domain>/ trees.
	ExportDir string
	// Archive moves processed domain directories out of ExportDir.
	Archive bool
	// ArchiveDir overrides the archive root; defaults to a sibling
	// exports_archive directory.
	ArchiveDir string
}

// Summary tallies one ETL invocation.
type Summary struct {
	Domains int
	Pages   int
	Skipped int
	Errors  int
}

// Loader walks dated export directories and loads them into Postgres.
// One domain's failure is logged and skipped; the walk always
// continues.
type Loader struct {
	db     DB
	clock  audit.Clock
	logger *zap.Logger
	cfg    Config
}

// New constructs a Loader.
func New(db DB, clock audit.Clock, logger *zap.Logger, cfg Config) *Loader {
	return &Loader{
		db:     db,
		clock:  clock,
		logger: logger,
		cfg:    cfg,
	}
}

// Run processes every dated directory under the export root.
func (l *Loader) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	entries, err := os.ReadDir(l.cfg.ExportDir)
	if err != nil {
		return summary, fmt.Errorf("read export dir: %w", err)
	}

	var dateDirs []string
	for _, e := range entries {
		if e.IsDir() && dateDirPattern.MatchString(e.Name()) {
			dateDirs = append(dateDirs, e.Name())
		}
	}
	sort.Strings(dateDirs)
	if len(dateDirs) == 0 {
		l.logger.Warn("no dated export directories found", zap.String("dir", l.cfg.ExportDir))
		return summary, nil
	}

	for _, dateDir := range dateDirs {
		crawlDate := strings.ReplaceAll(dateDir, "_", "-")
		domainEntries, err := os.ReadDir(filepath.Join(l.cfg.ExportDir, dateDir))
		if err != nil {
			return summary, fmt.Errorf("read date dir %s: %w", dateDir, err)
		}
		for _, de := range domainEntries {
			if !de.IsDir() {
				continue
			}
			domain := de.Name()
			dir := filepath.Join(l.cfg.ExportDir, dateDir, domain)
			pages, err := l.processDomain(ctx, crawlDate, dir, domain)
			switch {
			case errors.Is(err, errNoExport):
				summary.Skipped++
			case err != nil:
				summary.Errors++
				l.logger.Error("domain load failed",
					zap.String("domain", domain),
					zap.String("crawl_date", crawlDate),
					zap.Error(err),
				)
				l.logEvent(ctx, nil, nil, "ERROR",
					fmt.Sprintf("failed to process %s: %v", domain, err), dir)
			default:
				summary.Domains++
				summary.Pages += pages
				metrics.ETLPagesLoaded(pages)
				if l.cfg.Archive {
					l.archive(dateDir, domain)
				}
			}
		}
	}
	return summary, nil
}

var errNoExport = errors.New("no internal_all export found")

func (l *Loader) processDomain(ctx context.Context, crawlDate, dir, domain string) (int, error) {
	siteID, err := l.getOrCreateSite(ctx, domain)
	if err != nil {
		return 0, err
	}
	crawlID, err := l.getOrCreateCrawl(ctx, siteID, crawlDate)
	if err != nil {
		return 0, err
	}

	csvPath, err := findInternalAll(dir)
	if err != nil {
		l.logger.Warn("no internal_all export",
			zap.String("domain", domain),
			zap.String("dir", dir),
		)
		l.logEvent(ctx, &crawlID, &siteID, "WARNING",
			fmt.Sprintf("no internal_all.csv found for %s", domain), dir)
		return 0, errNoExport
	}

	rows, err := ParseInternalAll(csvPath)
	if err != nil {
		return 0, err
	}
	if err := l.insertPages(ctx, crawlID, rows); err != nil {
		return 0, err
	}

	if _, err := l.db.Exec(ctx, updateCrawlSummaryQuery, len(rows), l.clock.Now(), crawlID); err != nil {
		return 0, fmt.Errorf("update crawl summary: %w", err)
	}

	l.logEvent(ctx, &crawlID, &siteID, "INFO",
		fmt.Sprintf("successfully processed %d pages", len(rows)), csvPath)
	l.logger.Info("domain loaded",
		zap.String("domain", domain),
		zap.String("crawl_date", crawlDate),
		zap.Int("pages", len(rows)),
	)
	return len(rows), nil
}

func (l *Loader) getOrCreateSite(ctx context.Context, domain string) (int64, error) {
	var siteID int64
	err := l.db.QueryRow(ctx, selectSiteQuery, domain).Scan(&siteID)
	if err == nil {
		return siteID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("select site: %w", err)
	}
	if err := l.db.QueryRow(ctx, insertSiteQuery, domain, domain).Scan(&siteID); err != nil {
		return 0, fmt.Errorf("insert site: %w", err)
	}
	return siteID, nil
}

func (l *Loader) getOrCreateCrawl(ctx context.Context, siteID int64, crawlDate string) (int64, error) {
	var crawlID int64
	err := l.db.QueryRow(ctx, selectCrawlQuery, siteID, crawlDate).Scan(&crawlID)
	if err == nil {
		return crawlID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("select crawl: %w", err)
	}
	if err := l.db.QueryRow(ctx, insertCrawlQuery, siteID, crawlDate, l.clock.Now()).Scan(&crawlID); err != nil {
		return 0, fmt.Errorf("insert crawl: %w", err)
	}
	return crawlID, nil
}

func (l *Loader) insertPages(ctx context.Context, crawlID int64, rows []PageRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range rows {
		batch.Queue(insertPageQuery,
			crawlID, p.URL, p.StatusCode, p.Indexability, p.IndexabilityStatus,
			p.Title, p.TitleLength, p.MetaDescription, p.MetaDescriptionLength,
			p.H1, p.H1Length, p.WordCount, p.ResponseTimeMS, p.SizeBytes,
			p.CanonicalLink, p.RobotsTxtStatus, p.XRobotsTag,
		)
	}
	results := l.db.SendBatch(ctx, batch)
	defer results.Close()
	for range rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert page rows: %w", err)
		}
	}
	return nil
}

// logEvent writes an etl_logs audit row. Failures here must not abort
// the load, so they are only logged.
func (l *Loader) logEvent(ctx context.Context, crawlID, siteID *int64, level, message, path string) {
	if _, err := l.db.Exec(ctx, insertLogQuery, crawlID, siteID, level, message, path); err != nil {
		l.logger.Warn("etl log write failed", zap.Error(err))
	}
}

func (l *Loader) archive(dateDir, domain string) {
	archiveRoot := l.cfg.ArchiveDir
	if archiveRoot == "" {
		archiveRoot = filepath.Join(filepath.Dir(l.cfg.ExportDir), "exports_archive")
	}
	src := filepath.Join(l.cfg.ExportDir, dateDir, domain)
	dst := filepath.Join(archiveRoot, dateDir, domain)
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		l.logger.Warn("archive dir create failed", zap.String("dst", dst), zap.Error(err))
		return
	}
	if err := os.Rename(src, dst); err != nil {
		l.logger.Warn("archive move failed", zap.String("src", src), zap.Error(err))
		return
	}
	l.logger.Debug("archived exports", zap.String("dst", dst))
}

func findInternalAll(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*internal_all*.csv"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", errNoExport
	}
	sort.Strings(matches)
	return matches[0], nil
}
