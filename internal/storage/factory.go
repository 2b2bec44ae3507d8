package storage

import (
	"context"
	"fmt"

	"github.com/liherfashion/inventory-admin/config"
)

// New builds the configured image storage driver
func New(ctx context.Context, cfg *config.Config) (ImageStorage, error) {
	switch cfg.Storage.Driver {
	case "", "local":
		return NewLocal(cfg.Storage.LocalDir, cfg.Storage.LocalBaseURL), nil
	case "s3":
		if cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("s3 storage requires AWS_S3_BUCKET")
		}
		return NewS3(ctx, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, cfg.S3.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}
