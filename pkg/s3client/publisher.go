package s3client

import (
	"bytes"
	"context"
	"fmt"
)

// Publisher stores JSON reports under an S3 prefix.
type Publisher struct {
	client Client
}

func NewPublisher(client Client) *Publisher {
	return &Publisher{client: client}
}

// Publish writes data as <prefix><name>.json and returns the object's URI.
// The prefix comes from uri, which has the form s3://bucket[/prefix].
func (p *Publisher) Publish(ctx context.Context, uri, name string, data []byte, metadata map[string]string) (string, error) {
	bucket, prefix, err := ParseS3URI(uri)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("report name is required")
	}

	key := prefix + name + ".json"
	err = p.client.PutObject(ctx, &PutObjectRequest{
		Bucket:      bucket,
		Key:         key,
		Body:        bytes.NewReader(data),
		Size:        int64(len(data)),
		ContentType: "application/json",
		Metadata:    metadata,
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish report to %s: %w", formatS3Path(bucket, key), err)
	}
	return formatS3Path(bucket, key), nil
}
