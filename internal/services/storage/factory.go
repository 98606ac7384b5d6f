package storage

import (
	"context"
	"fmt"

	"github.com/denisAlshanov/tgrelay/internal/config"
	"github.com/denisAlshanov/tgrelay/internal/utils"
)

// NewArchive creates the S3 backed media archive, or nil when archiving is disabled
func NewArchive(cfg *config.S3Config) (*MediaArchive, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	storage, err := NewS3Storage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 storage: %w", err)
	}

	utils.LogInfo(context.Background(), "Created S3 media archive", utils.Fields{
		"bucket":   storage.BucketName(),
		"endpoint": cfg.EndpointURL,
	})
	return NewMediaArchive(storage), nil
}
