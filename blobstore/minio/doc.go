// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works with MinIO and other S3-compatible systems such as Ceph,
// SeaweedFS and Garage, without pulling in the AWS SDK.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "catalog/")
//	repo, err := metacat.Open(ctx, metacat.WithBlobStore(store))
//
// PutIfAbsent relies on conditional writes (If-None-Match). Servers that
// ignore the header make concurrent catalog writers unsafe.
package minio
