// Package s3client publishes job reports to S3.
package s3client

import (
	"context"
	"io"
)

type Client interface {
	PutObject(ctx context.Context, req *PutObjectRequest) error
}

type PutObjectRequest struct {
	Bucket      string
	Key         string
	Body        io.Reader
	Size        int64
	ContentType string
	Metadata    map[string]string
}
