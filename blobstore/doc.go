// Package blobstore stores the named blobs that make up a persisted catalog.
//
// Catalog blobs are small and written whole, so the interface is a plain
// key-value contract:
//
//	type BlobStore interface {
//	    Get(ctx, name) ([]byte, error)
//	    Put(ctx, name, data) error      // atomic replace
//	    Delete(ctx, name) error         // missing blobs are not an error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Backends that can refuse to overwrite an existing blob also implement
// ConditionalStore. The catalog store relies on it to detect two writers
// racing for the same version.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process, for tests and ephemeral repositories
//   - LocalStore: local filesystem with atomic rename and an exclusive lock
//   - CachingStore: LRU read cache in front of any store
//   - s3.Store, s3.DDBCommitStore: Amazon S3, optionally with DynamoDB commits
//   - minio.Store: MinIO and other S3-compatible services
//
// Implementations must be safe for concurrent use.
package blobstore
