package main

import (
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/metacat/blobstore"
	miniostore "github.com/hupe1980/metacat/blobstore/minio"
	s3store "github.com/hupe1980/metacat/blobstore/s3"
	"github.com/hupe1980/metacat/internal/catalog"
)

// openBlobStore builds the blob store described by cfg.
func openBlobStore(ctx context.Context, cfg *Config) (blobstore.BlobStore, error) {
	switch cfg.Backend {
	case "local":
		return blobstore.NewLocalStore(cfg.Dir)
	case "s3":
		return openS3(ctx, cfg)
	case "minio":
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
			Secure: cfg.Secure,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return miniostore.NewStore(client, cfg.Bucket, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func openS3(ctx context.Context, cfg *Config) (blobstore.BlobStore, error) {
	var optFns []func(*config.LoadOptions) error
	if cfg.Region != "" {
		optFns = append(optFns, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	store := s3store.NewStore(client, cfg.Bucket, cfg.Prefix)
	if cfg.DynamoDBTable == "" {
		return store, nil
	}

	baseURI := "s3://" + path.Join(cfg.Bucket, cfg.Prefix)
	return s3store.NewDDBCommitStore(store, dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable, baseURI, catalog.CurrentFileName), nil
}
