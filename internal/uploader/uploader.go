// Package uploader syncs crawl export trees to blob storage.
package uploader

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/auditkit/seopipeline/internal/audit"
)

// Uploader walks an export directory and uploads every file, keeping
// the date/domain layout so the downstream ETL can locate artifacts.
type Uploader struct {
	store  audit.BlobStore
	prefix string
	logger *zap.Logger
}

// New constructs an Uploader. prefix is prepended to every object path.
func New(store audit.BlobStore, prefix string, logger *zap.Logger) *Uploader {
	return &Uploader{
		store:  store,
		prefix: prefix,
		logger: logger,
	}
}

// SyncDir uploads all regular files under root and returns the count.
func (u *Uploader) SyncDir(ctx context.Context, root string) (int, error) {
	uploaded := 0
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", p, err)
		}
		objectPath := path.Join(u.prefix, filepath.ToSlash(rel))

		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("open %s: %w", p, err)
		}
		uri, err := u.store.PutObject(ctx, objectPath, contentTypeFor(p), f)
		f.Close()
		if err != nil {
			return fmt.Errorf("upload %s: %w", objectPath, err)
		}

		uploaded++
		u.logger.Debug("artifact uploaded",
			zap.String("path", objectPath),
			zap.String("uri", uri),
		)
		return nil
	})
	if err != nil {
		return uploaded, fmt.Errorf("sync %s: %w", root, err)
	}
	u.logger.Info("export sync complete",
		zap.String("root", root),
		zap.Int("files", uploaded),
	)
	return uploaded, nil
}

func contentTypeFor(p string) string {
	if ct := mime.TypeByExtension(filepath.Ext(p)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
