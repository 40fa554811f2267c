package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/wraith/internal/config"
)

// Open returns the chunk store selected by cfg.Storage.Backend.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ChunkStore, error) {
	switch cfg.Storage.Backend {
	case "local", "":
		return NewLocalChunkStore(ctx, LocalOptions{
			DatabasePath:    cfg.Storage.DatabasePath,
			BleveIndexPath:  cfg.Storage.BleveIndexPath,
			VectorIndexPath: cfg.Storage.VectorIndexPath,
			Dimensions:      cfg.Embedding.Dimensions,
			FuzzySparse:     cfg.Retrieval.FuzzySparse,
		}, logger)
	case "postgres":
		return NewPostgresChunkStore(ctx, cfg.Storage.PostgresDSN, cfg.Embedding.Dimensions, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: local, postgres)", cfg.Storage.Backend)
	}
}
