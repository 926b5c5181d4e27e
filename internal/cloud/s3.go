package cloud

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Client uploads export files to a bucket.
type S3Client struct {
	svc    s3API
	bucket string
	prefix string
}

// NewS3Client creates a new S3 client instance
func NewS3Client(cfg aws.Config, bucket string) *S3Client {
	return &S3Client{
		svc:    s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: "exports",
	}
}

// UploadExport copies a local CSV file to s3://bucket/exports/<file name> and
// returns the object key.
func (c *S3Client) UploadExport(ctx context.Context, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open export file: %w", err)
	}
	defer f.Close()

	key := path.Join(c.prefix, filepath.Base(filePath))
	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("text/csv"),
		Metadata: map[string]string{
			"uploaded-at": time.Now().UTC().Format(time.RFC3339),
		},
	}

	if _, err := c.svc.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return key, nil
}
