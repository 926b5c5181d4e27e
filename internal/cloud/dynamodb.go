package cloud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
)

type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoDBWatermarkStore keeps watermarks in a DynamoDB table keyed by source.
// Like the Postgres store it never creates rows: they are seeded out of band.
type DynamoDBWatermarkStore struct {
	svc   dynamoAPI
	table string
}

// NewDynamoDBWatermarkStore creates a new DynamoDB-backed watermark store
func NewDynamoDBWatermarkStore(cfg aws.Config, table string) *DynamoDBWatermarkStore {
	return &DynamoDBWatermarkStore{
		svc:   dynamodb.NewFromConfig(cfg),
		table: table,
	}
}

// watermarkItem is the DynamoDB structure of one watermark.
type watermarkItem struct {
	Source        string `dynamodbav:"source"`
	LastTimestamp string `dynamodbav:"lastTimestamp"`
	UpdatedAt     int64  `dynamodbav:"updatedAt"`
}

// GetLastTimestamp reads the watermark item for source.
func (s *DynamoDBWatermarkStore) GetLastTimestamp(ctx context.Context, source string) (time.Time, error) {
	const op = "dynamodb.GetLastTimestamp"

	out, err := s.svc.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            map[string]types.AttributeValue{"source": &types.AttributeValueMemberS{Value: source}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return time.Time{}, domain.E(domain.KindDatabase, op, fmt.Errorf("failed to get item: %w", err))
	}
	if len(out.Item) == 0 {
		return time.Time{}, domain.Errorf(domain.KindNotFound, op, "no watermark item for source %q", source)
	}

	var item watermarkItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return time.Time{}, domain.E(domain.KindDatabase, op, fmt.Errorf("failed to unmarshal watermark: %w", err))
	}
	ts, err := time.Parse(time.RFC3339Nano, item.LastTimestamp)
	if err != nil {
		return time.Time{}, domain.E(domain.KindDatabase, op, fmt.Errorf("bad lastTimestamp %q: %w", item.LastTimestamp, err))
	}
	return ts.UTC(), nil
}

// SetLastTimestamp overwrites the watermark item for source.
func (s *DynamoDBWatermarkStore) SetLastTimestamp(ctx context.Context, source string, ts time.Time) error {
	const op = "dynamodb.SetLastTimestamp"

	_, err := s.svc.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 map[string]types.AttributeValue{"source": &types.AttributeValueMemberS{Value: source}},
		UpdateExpression:    aws.String("SET lastTimestamp = :ts, updatedAt = :now"),
		ConditionExpression: aws.String("attribute_exists(#src)"),
		ExpressionAttributeNames: map[string]string{
			"#src": "source",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ts":  &types.AttributeValueMemberS{Value: ts.UTC().Format(time.RFC3339Nano)},
			":now": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", time.Now().Unix())},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return domain.Errorf(domain.KindNotFound, op, "no watermark item for source %q", source)
		}
		return domain.E(domain.KindDatabase, op, fmt.Errorf("failed to update item: %w", err))
	}
	return nil
}
