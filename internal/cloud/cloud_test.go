package cloud

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
)

type fakeDynamo struct {
	items     map[string]map[string]types.AttributeValue
	updateErr error
	lastInput *dynamodb.UpdateItemInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	key := in.Key["source"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[key]}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.lastInput = in
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	key := in.Key["source"].(*types.AttributeValueMemberS).Value
	f.items[key]["lastTimestamp"] = in.ExpressionAttributeValues[":ts"]
	return &dynamodb.UpdateItemOutput{}, nil
}

func TestDynamoDBWatermarkStore_RoundTrip(t *testing.T) {
	fake := &fakeDynamo{items: map[string]map[string]types.AttributeValue{
		"fault_data": {
			"source":        &types.AttributeValueMemberS{Value: "fault_data"},
			"lastTimestamp": &types.AttributeValueMemberS{Value: "2024-01-01T00:00:00Z"},
		},
	}}
	store := &DynamoDBWatermarkStore{svc: fake, table: "SyncState"}
	ctx := context.Background()

	ts, err := store.GetLastTimestamp(ctx, "fault_data")
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Equal(ts))

	next := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SetLastTimestamp(ctx, "fault_data", next))
	assert.Equal(t, "attribute_exists(#src)", aws.ToString(fake.lastInput.ConditionExpression))

	ts, err = store.GetLastTimestamp(ctx, "fault_data")
	require.NoError(t, err)
	assert.True(t, next.Equal(ts))
}

func TestDynamoDBWatermarkStore_Missing(t *testing.T) {
	fake := &fakeDynamo{
		items:     map[string]map[string]types.AttributeValue{},
		updateErr: &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")},
	}
	store := &DynamoDBWatermarkStore{svc: fake, table: "SyncState"}

	_, err := store.GetLastTimestamp(context.Background(), "trip")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	err = store.SetLastTimestamp(context.Background(), "trip", time.Now())
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	fake.updateErr = errors.New("throttled")
	err = store.SetLastTimestamp(context.Background(), "trip", time.Now())
	assert.True(t, domain.IsKind(err, domain.KindDatabase))
}

type fakeS3 struct {
	key  string
	body string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.key = aws.ToString(in.Key)
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = string(b)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Client_UploadExport(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Device_20240102_030405.csv")
	require.NoError(t, os.WriteFile(file, []byte("id,name\nb1,Truck\n"), 0o644))

	fake := &fakeS3{}
	client := &S3Client{svc: fake, bucket: "fleet-exports", prefix: "exports"}

	key, err := client.UploadExport(context.Background(), file)

	require.NoError(t, err)
	assert.Equal(t, "exports/Device_20240102_030405.csv", key)
	assert.Equal(t, key, fake.key)
	assert.Equal(t, "id,name\nb1,Truck\n", fake.body)

	_, err = client.UploadExport(context.Background(), filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

type fakeSNS struct {
	input *sns.PublishInput
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

func TestSNSClient_NotifySyncFailure(t *testing.T) {
	fake := &fakeSNS{}
	client := &SNSClient{svc: fake, topicArn: "arn:aws:sns:us-east-1:123:geotab"}

	res := &domain.SyncResult{RunID: "run-1", Source: "fault_data", State: domain.StateFailed}
	runErr := domain.E(domain.KindAuthentication, "geotab.Authenticate", errors.New("InvalidUserException"))

	require.NoError(t, client.NotifySyncFailure(context.Background(), res, runErr))

	assert.Equal(t, "arn:aws:sns:us-east-1:123:geotab", aws.ToString(fake.input.TopicArn))
	assert.Equal(t, "Geotab sync failed: fault_data", aws.ToString(fake.input.Subject))
	assert.Contains(t, aws.ToString(fake.input.Message), "Kind: authentication")
	assert.Contains(t, aws.ToString(fake.input.Message), "InvalidUserException")
}
