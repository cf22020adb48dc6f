// Package s3 stores catalog blobs in Amazon S3.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "catalogs/prod")
//	repo, err := metacat.Open(ctx, metacat.WithBlobStore(store))
//
// Store.PutIfAbsent uses S3 conditional writes (If-None-Match), so two
// processes never overwrite the same catalog version. Deployments that need
// a strongly ordered version pointer can wrap the store in a
// DDBCommitStore, which commits the pointer through DynamoDB.
//
// # Features
//
//   - Multipart uploads for large blobs
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
