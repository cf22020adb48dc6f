package s3

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/metacat/blobstore"
)

func TestStoreGet(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, "test-bucket", "prefix")
	ctx := context.Background()

	client.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return *in.Bucket == "test-bucket" && *in.Key == "prefix/missing"
	})).Return(nil, &types.NoSuchKey{}).Once()
	client.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return *in.Key == "prefix/CURRENT"
	})).Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("CATALOG-000001.bin"))}, nil).Once()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	data, err := store.Get(ctx, "CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "CATALOG-000001.bin", string(data))
	client.AssertExpectations(t)
}

func TestStorePut(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, "test-bucket", "prefix")
	ctx := context.Background()

	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Key == "prefix/a" && in.IfNoneMatch == nil
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	require.NoError(t, store.Put(ctx, "a", []byte("data")))
	client.AssertExpectations(t)
}

func TestStorePutIfAbsent(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, "test-bucket", "")
	ctx := context.Background()

	conditional := mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.IfNoneMatch) == "*"
	})
	client.On("PutObject", mock.Anything, conditional).Return(&s3.PutObjectOutput{}, nil).Once()
	client.On("PutObject", mock.Anything, conditional).Return(nil, &smithy.GenericAPIError{Code: "PreconditionFailed"}).Once()

	require.NoError(t, store.PutIfAbsent(ctx, "CATALOG-000002.bin", []byte("v2")))
	err := store.PutIfAbsent(ctx, "CATALOG-000002.bin", []byte("v2"))
	assert.ErrorIs(t, err, blobstore.ErrExists)
	client.AssertExpectations(t)
}

func TestStoreDelete(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, "test-bucket", "prefix")

	client.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return *in.Bucket == "test-bucket" && *in.Key == "prefix/del"
	})).Return(&s3.DeleteObjectOutput{}, nil).Once()

	require.NoError(t, store.Delete(context.Background(), "del"))
	client.AssertExpectations(t)
}

func TestStoreListPagination(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, "test-bucket", "prefix/")

	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return *in.Prefix == "prefix/CATALOG-" && in.ContinuationToken == nil
	})).Return(&s3.ListObjectsV2Output{
		Contents:              []types.Object{{Key: aws.String("prefix/CATALOG-000002.bin")}},
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("next"),
	}, nil).Once()
	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return aws.ToString(in.ContinuationToken) == "next"
	})).Return(&s3.ListObjectsV2Output{
		Contents:    []types.Object{{Key: aws.String("prefix/CATALOG-000001.bin")}},
		IsTruncated: aws.Bool(false),
	}, nil).Once()

	names, err := store.List(context.Background(), "CATALOG-")
	require.NoError(t, err)
	assert.Equal(t, []string{"CATALOG-000001.bin", "CATALOG-000002.bin"}, names)
	client.AssertExpectations(t)
}
