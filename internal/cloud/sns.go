package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
)

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient publishes sync failure notifications to a topic.
type SNSClient struct {
	svc      snsAPI
	topicArn string
}

// NewSNSClient creates a new SNS client instance
func NewSNSClient(cfg aws.Config, topicArn string) *SNSClient {
	return &SNSClient{
		svc:      sns.NewFromConfig(cfg),
		topicArn: topicArn,
	}
}

// SendAlert publishes a message to the configured SNS topic
func (c *SNSClient) SendAlert(ctx context.Context, subject, message string) error {
	input := &sns.PublishInput{
		TopicArn: aws.String(c.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	}

	if _, err := c.svc.Publish(ctx, input); err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}
	return nil
}

// NotifySyncFailure sends the failed run's source, state and error.
func (c *SNSClient) NotifySyncFailure(ctx context.Context, res *domain.SyncResult, runErr error) error {
	subject := fmt.Sprintf("Geotab sync failed: %s", res.Source)
	message := fmt.Sprintf(
		"Geotab Sync Failure\n\n"+
			"Source: %s\n"+
			"Run: %s\n"+
			"Failed in state: %s\n"+
			"Kind: %s\n"+
			"From: %s\n"+
			"Time: %s\n\n"+
			"Error: %v",
		res.Source,
		res.RunID,
		res.State,
		domain.KindOf(runErr),
		res.From.Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
		runErr,
	)

	return c.SendAlert(ctx, subject, message)
}
