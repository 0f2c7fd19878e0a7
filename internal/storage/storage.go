package storage

import (
	"context"

	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/config"
)

// ArtifactMirror copies a registered run directory to remote storage
type ArtifactMirror interface {
	// MirrorRun uploads every file under dir, keyed by key/<relative path>
	MirrorRun(ctx context.Context, dir, key string) error
}

// NewArtifactMirror returns an S3 mirror when a bucket is configured, a no-op one otherwise
func NewArtifactMirror(cfg config.S3Config, logger *zap.Logger) (ArtifactMirror, error) {
	if cfg.Bucket == "" {
		return NoopMirror{}, nil
	}
	return NewS3Mirror(cfg, logger)
}

// NoopMirror keeps artifacts local only
type NoopMirror struct{}

func (NoopMirror) MirrorRun(context.Context, string, string) error { return nil }
