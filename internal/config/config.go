// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all pipeline configuration knobs loaded via Viper.
type Config struct {
	Crawler CrawlerConfig `mapstructure:"crawler"`
	DB      DBConfig      `mapstructure:"db"`
	Storage StorageConfig `mapstructure:"storage"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Server  ServerConfig  `mapstructure:"server"`
	ETL     ETLConfig     `mapstructure:"etl"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SiteEntry is one statically configured crawl target.
type SiteEntry struct {
	Domain string `mapstructure:"domain"`
	Label  string `mapstructure:"label"`
}

// CrawlerConfig governs the dispatcher and the external crawler invocation.
type CrawlerConfig struct {
	Binary         string      `mapstructure:"binary"`
	Args           []string    `mapstructure:"args"`
	Profile        string      `mapstructure:"profile"`
	Concurrency    int         `mapstructure:"concurrency"`
	TimeoutMinutes int         `mapstructure:"timeout_minutes"`
	ExportDir      string      `mapstructure:"export_dir"`
	Sites          []SiteEntry `mapstructure:"sites"`
}

// Timeout converts the per-job supervision budget into a duration.
func (c CrawlerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMinutes) * time.Minute
}

// DBConfig controls access to the audit database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// StorageConfig selects and parameterizes the blob storage provider.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for run-report notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ServerConfig controls the optional status HTTP server.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// ETLConfig governs the transform-and-load step over crawler exports.
type ETLConfig struct {
	Archive    bool   `mapstructure:"archive"`
	ArchiveDir string `mapstructure:"archive_dir"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SEOPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.binary", "screamingfrogseospider")
	v.SetDefault("crawler.args", []string{
		"--crawl", "{url}",
		"--headless",
		"--config", "{profile}",
		"--output-folder", "{output}",
		"--overwrite",
		"--save-crawl",
		"--export-tabs", "Internal:All",
	})
	v.SetDefault("crawler.profile", "config/audit.seospiderconfig")
	v.SetDefault("crawler.concurrency", 2)
	v.SetDefault("crawler.timeout_minutes", 120)
	v.SetDefault("crawler.export_dir", "exports")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.local_dir", "exports_sync")
	v.SetDefault("storage.prefix", "seo-audits")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("etl.archive", true)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawler.Binary == "" {
		return fmt.Errorf("crawler.binary must be set")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.TimeoutMinutes <= 0 {
		return fmt.Errorf("crawler.timeout_minutes must be > 0")
	}
	if c.Crawler.ExportDir == "" {
		return fmt.Errorf("crawler.export_dir must be set")
	}
	switch c.Storage.Provider {
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set when provider is gcs")
		}
	case "local", "memory":
	default:
		return fmt.Errorf("unknown storage provider %q", c.Storage.Provider)
	}
	for _, s := range c.Crawler.Sites {
		if s.Domain == "" {
			return fmt.Errorf("crawler.sites entries require a domain")
		}
	}
	return nil
}
