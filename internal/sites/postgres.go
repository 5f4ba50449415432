// Package sites provides work item sources for dispatch runs.
package sites

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/auditkit/seopipeline/internal/audit"
)

const activeSitesQuery = `
SELECT domain, COALESCE(label, domain)
FROM sites
WHERE status = 'active'
ORDER BY domain`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresConfig controls the connection pool behind the site source.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// PostgresSource reads the active monitored sites from the audit
// database, the pipeline's source of truth for crawl targets.
type PostgresSource struct {
	pool querier
}

// NewPostgresSource connects a pool and wraps it in a source.
func NewPostgresSource(ctx context.Context, cfg PostgresConfig) (*PostgresSource, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresSource{pool: pool}, nil
}

// NewPostgresSourceWithPool constructs a source from an existing pool
// (primarily for testing).
func NewPostgresSourceWithPool(pool querier) (*PostgresSource, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PostgresSource{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *PostgresSource) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// ActiveSites returns the ordered list of active crawl targets.
func (s *PostgresSource) ActiveSites(ctx context.Context) ([]audit.Site, error) {
	rows, err := s.pool.Query(ctx, activeSitesQuery)
	if err != nil {
		return nil, fmt.Errorf("query active sites: %w", err)
	}
	defer rows.Close()

	var out []audit.Site
	for rows.Next() {
		var site audit.Site
		if err := rows.Scan(&site.Domain, &site.Label); err != nil {
			return nil, fmt.Errorf("scan site row: %w", err)
		}
		out = append(out, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate site rows: %w", err)
	}
	return out, nil
}
