package s3

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/metacat/blobstore"
)

func pointerItem(revision, target string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"base_uri": &types.AttributeValueMemberS{Value: "s3://bucket/prefix"},
		"revision": &types.AttributeValueMemberN{Value: revision},
		"target":   &types.AttributeValueMemberS{Value: target},
	}
}

func TestDDBCommitStorePointer(t *testing.T) {
	ctx := context.Background()
	ddb := new(MockDDBClient)
	blobs := blobstore.NewMemoryStore()
	store := NewDDBCommitStore(blobs, ddb, "metacat-commits", "s3://bucket/prefix", "CURRENT")

	ddb.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil).Once()
	_, err := store.Get(ctx, "CURRENT")
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	ddb.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{pointerItem("4", "CATALOG-000004.bin")},
	}, nil)
	data, err := store.Get(ctx, "CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "CATALOG-000004.bin", string(data))

	ddb.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		revision := in.Item["revision"].(*types.AttributeValueMemberN)
		return revision.Value == "5" && *in.ConditionExpression == "attribute_not_exists(revision)"
	})).Return(&dynamodb.PutItemOutput{}, nil).Once()
	require.NoError(t, store.Put(ctx, "CURRENT", []byte("CATALOG-000005.bin")))

	ddb.On("PutItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{}).Once()
	err = store.Put(ctx, "CURRENT", []byte("CATALOG-000005.bin"))
	assert.ErrorIs(t, err, ErrConcurrentModification)
	assert.ErrorIs(t, err, blobstore.ErrExists)

	ddb.AssertExpectations(t)
}

func TestDDBCommitStoreDelegatesBlobs(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	store := NewDDBCommitStore(blobs, new(MockDDBClient), "t", "s3://bucket", "CURRENT")

	require.NoError(t, store.Put(ctx, "CATALOG-000001.bin", []byte("v1")))
	require.ErrorIs(t, store.PutIfAbsent(ctx, "CATALOG-000001.bin", nil), blobstore.ErrExists)
	assert.True(t, errors.Is(store.PutIfAbsent(ctx, "CURRENT", nil), errors.ErrUnsupported))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"CATALOG-000001.bin"}, names)

	require.NoError(t, store.Delete(ctx, "CURRENT"))
	require.NoError(t, store.Delete(ctx, "CATALOG-000001.bin"))
	_, err = store.Get(ctx, "CATALOG-000001.bin")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
