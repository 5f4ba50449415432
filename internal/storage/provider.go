// Package storage selects a blob store provider from configuration.
package storage

import (
	"context"
	"fmt"

	gcsclient "cloud.google.com/go/storage"

	"github.com/auditkit/seopipeline/internal/audit"
	"github.com/auditkit/seopipeline/internal/config"
	"github.com/auditkit/seopipeline/internal/storage/gcs"
	"github.com/auditkit/seopipeline/internal/storage/local"
	"github.com/auditkit/seopipeline/internal/storage/memory"
)

// New constructs the blob store named by cfg.Provider.
func New(ctx context.Context, cfg config.StorageConfig) (audit.BlobStore, error) {
	switch cfg.Provider {
	case "gcs":
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		return gcs.New(client, gcs.Config{Bucket: cfg.GCSBucket})
	case "local":
		return local.New(local.Config{BaseDir: cfg.LocalDir})
	case "memory":
		return memory.NewBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
