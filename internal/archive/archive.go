// Package archive stores raw landing-page HTML so failed extractions can
// be replayed without re-fetching the source site.
package archive

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/quillworks/novelforge/internal/config"
	"github.com/quillworks/novelforge/internal/novel"
)

// NoOp discards every artifact. Used when archiving is disabled.
type NoOp struct{}

// PutObject drops the data and returns an empty URI.
func (NoOp) PutObject(context.Context, string, string, []byte) (string, error) {
	return "", nil
}

// New builds the blob store selected by cfg.Backend.
func New(ctx context.Context, cfg config.ArchiveConfig) (novel.BlobStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "none":
		return NoOp{}, nil
	case "memory":
		return NewMemory(), nil
	case "local":
		return NewLocal(cfg.LocalDir, cfg.Prefix)
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		return NewGCS(client, cfg.GCSBucket, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}

// objectPath joins the configured prefix with the artifact path.
func objectPath(prefix, path string) string {
	path = strings.TrimLeft(path, "/")
	if prefix == "" {
		return path
	}
	return strings.TrimRight(prefix, "/") + "/" + path
}
