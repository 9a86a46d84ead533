package main

import (
	"context"
	"fmt"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sameraamar/HNSW/blobstore"
	"github.com/sameraamar/HNSW/blobstore/minio"
	"github.com/sameraamar/HNSW/blobstore/s3"
)

// openStore creates the blob store described by cfg.
func openStore(ctx context.Context, cfg StoreConfig) (blobstore.Store, error) {
	switch cfg.Kind {
	case "", "local":
		return blobstore.NewLocalStore(cfg.Root), nil
	case "s3":
		return s3.New(ctx, cfg.Bucket, s3.WithPrefix(cfg.Prefix))
	case "minio":
		client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.Secure,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
		return minio.NewStore(client, cfg.Bucket, cfg.Prefix, minio.WithPartSize(cfg.PartSize)), nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}
