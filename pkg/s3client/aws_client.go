package s3client

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// AWSClient uploads through the S3 transfer manager, retrying throttling and
// server errors.
type AWSClient struct {
	uploader uploader
	retry    retryPolicy
}

func NewAWSClient(cfg aws.Config) *AWSClient {
	return &AWSClient{
		uploader: manager.NewUploader(s3.NewFromConfig(cfg)),
		retry:    defaultRetryPolicy(),
	}
}

func (c *AWSClient) PutObject(ctx context.Context, req *PutObjectRequest) error {
	// The body is buffered so every attempt can send it from the start.
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}

	err = c.retry.do(ctx, func() error {
		input := &s3.PutObjectInput{
			Bucket:            aws.String(req.Bucket),
			Key:               aws.String(req.Key),
			Body:              bytes.NewReader(body),
			ContentLength:     aws.Int64(int64(len(body))),
			ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
		}
		if req.ContentType != "" {
			input.ContentType = aws.String(req.ContentType)
		}
		if len(req.Metadata) > 0 {
			input.Metadata = req.Metadata
		}
		_, err := c.uploader.Upload(ctx, input)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}
