package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/metacat/blobstore"
)

// DDBCommitStore wraps a blob store and keeps one pointer blob, such as a
// catalog's CURRENT file, in DynamoDB. Every pointer update is a new item
// written with a conditional put, so two writers can never both move the
// pointer from the same revision.
//
// Table schema:
//   - Partition key: base_uri (string), the S3 bucket and prefix
//   - Sort key: revision (number), monotonically increasing
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name metacat-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=revision,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=revision,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type DDBCommitStore struct {
	blobs     blobstore.BlobStore
	ddbClient DDBClient
	tableName string
	baseURI   string
	pointer   string
}

var _ blobstore.ConditionalStore = (*DDBCommitStore)(nil)

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ErrConcurrentModification is returned when another writer moved the
// pointer first. It matches blobstore.ErrExists.
var ErrConcurrentModification = fmt.Errorf("concurrent modification detected: %w", blobstore.ErrExists)

// NewDDBCommitStore creates a commit store. pointer is the blob name kept in
// DynamoDB; baseURI ("s3://bucket/prefix") partitions the table.
func NewDDBCommitStore(blobs blobstore.BlobStore, ddbClient DDBClient, tableName, baseURI, pointer string) *DDBCommitStore {
	return &DDBCommitStore{
		blobs:     blobs,
		ddbClient: ddbClient,
		tableName: tableName,
		baseURI:   baseURI,
		pointer:   pointer,
	}
}

// Get reads the pointer from DynamoDB and every other blob from the wrapped
// store.
func (s *DDBCommitStore) Get(ctx context.Context, name string) ([]byte, error) {
	if name != s.pointer {
		return s.blobs.Get(ctx, name)
	}
	revision, target, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	if revision == 0 {
		return nil, blobstore.ErrNotFound
	}
	return []byte(target), nil
}

// Put commits a new pointer revision or writes a regular blob.
func (s *DDBCommitStore) Put(ctx context.Context, name string, data []byte) error {
	if name != s.pointer {
		return s.blobs.Put(ctx, name, data)
	}
	return s.commit(ctx, string(data))
}

// PutIfAbsent delegates to the wrapped store.
func (s *DDBCommitStore) PutIfAbsent(ctx context.Context, name string, data []byte) error {
	cs, ok := s.blobs.(blobstore.ConditionalStore)
	if !ok || name == s.pointer {
		return fmt.Errorf("conditional put of %s: %w", name, errors.ErrUnsupported)
	}
	return cs.PutIfAbsent(ctx, name, data)
}

// Delete removes a blob from the wrapped store. Pointer history stays in
// DynamoDB.
func (s *DDBCommitStore) Delete(ctx context.Context, name string) error {
	if name == s.pointer {
		return nil
	}
	return s.blobs.Delete(ctx, name)
}

// List lists blobs of the wrapped store.
func (s *DDBCommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.blobs.List(ctx, prefix)
}

func (s *DDBCommitStore) latest(ctx context.Context) (uint64, string, error) {
	resp, err := s.ddbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("query commit table: %w", err)
	}
	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	revisionAttr, ok := item["revision"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("invalid revision attribute in commit table")
	}
	targetAttr, ok := item["target"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("invalid target attribute in commit table")
	}
	revision, err := strconv.ParseUint(revisionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("parse revision: %w", err)
	}
	return revision, targetAttr.Value, nil
}

func (s *DDBCommitStore) commit(ctx context.Context, target string) error {
	revision, _, err := s.latest(ctx)
	if err != nil {
		return err
	}

	_, err = s.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri": &types.AttributeValueMemberS{Value: s.baseURI},
			"revision": &types.AttributeValueMemberN{Value: strconv.FormatUint(revision+1, 10)},
			"target":   &types.AttributeValueMemberS{Value: target},
		},
		ConditionExpression: aws.String("attribute_not_exists(revision)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentModification
		}
		return fmt.Errorf("commit pointer revision: %w", err)
	}
	return nil
}
