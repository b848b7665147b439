package s3client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantPrefix string
		wantErr    bool
	}{
		{
			name:       "bucket only",
			uri:        "s3://reports",
			wantBucket: "reports",
		},
		{
			name:       "bucket with trailing slash",
			uri:        "s3://reports/",
			wantBucket: "reports",
		},
		{
			name:       "prefix gets trailing slash",
			uri:        "s3://reports/vault/daily",
			wantBucket: "reports",
			wantPrefix: "vault/daily/",
		},
		{
			name:       "prefix already has trailing slash",
			uri:        "s3://reports/vault/",
			wantBucket: "reports",
			wantPrefix: "vault/",
		},
		{
			name:    "wrong scheme",
			uri:     "https://reports/vault",
			wantErr: true,
		},
		{
			name:    "missing bucket",
			uri:     "s3:///vault",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, prefix, err := ParseS3URI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantPrefix, prefix)
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"slow down", &smithy.GenericAPIError{Code: "SlowDown"}, true},
		{"service unavailable", &smithy.GenericAPIError{Code: "ServiceUnavailable"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"internal error status", &apiError{code: "InternalError", status: 500}, true},
		{"bad request status", &apiError{code: "InvalidRequest", status: 400}, false},
		{"wrapped 503", fmt.Errorf("upload: %w", &apiError{code: "X", status: 503}), true},
		{"deadline", context.DeadlineExceeded, true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"plain", errors.New("no such host"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}

func TestRetryPolicy_CalculateDelay(t *testing.T) {
	p := defaultRetryPolicy()
	for attempt := 0; attempt < 12; attempt++ {
		d := p.calculateDelay(attempt)
		expected := float64(p.baseDelay) * float64(int(1)<<attempt)
		if expected > float64(p.maxDelay) {
			assert.LessOrEqual(t, d, p.maxDelay)
			continue
		}
		assert.GreaterOrEqual(t, float64(d), expected*0.75)
		assert.LessOrEqual(t, float64(d), expected*1.25)
	}
}

func fastRetry() retryPolicy {
	return retryPolicy{maxRetries: 3, baseDelay: time.Millisecond, maxDelay: 2 * time.Millisecond}
}

func TestAWSClient_PutObjectRetriesWithFullBody(t *testing.T) {
	attempts := 0
	up := &mockUploader{uploadFunc: func(context.Context, *s3.PutObjectInput) error {
		attempts++
		if attempts < 3 {
			return &smithy.GenericAPIError{Code: "SlowDown"}
		}
		return nil
	}}
	c := &AWSClient{uploader: up, retry: fastRetry()}

	err := c.PutObject(context.Background(), &PutObjectRequest{
		Bucket:      "reports",
		Key:         "vault/job.json",
		Body:        strings.NewReader(`{"status":"committed"}`),
		ContentType: "application/json",
		Metadata:    map[string]string{"job-id": "j1"},
	})
	require.NoError(t, err)
	require.Len(t, up.inputs, 3)
	for _, body := range up.bodies {
		assert.Equal(t, `{"status":"committed"}`, string(body))
	}

	in := up.inputs[2]
	assert.Equal(t, "reports", aws.ToString(in.Bucket))
	assert.Equal(t, "vault/job.json", aws.ToString(in.Key))
	assert.Equal(t, "application/json", aws.ToString(in.ContentType))
	assert.Equal(t, types.ChecksumAlgorithmSha256, in.ChecksumAlgorithm)
	assert.Equal(t, int64(22), aws.ToInt64(in.ContentLength))
	assert.Equal(t, "j1", in.Metadata["job-id"])
}

func TestAWSClient_PutObjectStopsOnPermanentError(t *testing.T) {
	up := &mockUploader{uploadFunc: func(context.Context, *s3.PutObjectInput) error {
		return &smithy.GenericAPIError{Code: "AccessDenied"}
	}}
	c := &AWSClient{uploader: up, retry: fastRetry()}

	err := c.PutObject(context.Background(), &PutObjectRequest{Bucket: "b", Key: "k", Body: strings.NewReader("x")})
	require.Error(t, err)
	assert.Len(t, up.inputs, 1)

	var apiErr smithy.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "AccessDenied", apiErr.ErrorCode())
}

func TestAWSClient_PutObjectGivesUp(t *testing.T) {
	up := &mockUploader{uploadFunc: func(context.Context, *s3.PutObjectInput) error {
		return &apiError{code: "InternalError", status: 500}
	}}
	c := &AWSClient{uploader: up, retry: fastRetry()}

	err := c.PutObject(context.Background(), &PutObjectRequest{Bucket: "b", Key: "k", Body: strings.NewReader("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Len(t, up.inputs, 4)
}

func TestPublisher_Publish(t *testing.T) {
	client := &mockClient{putObjectFunc: func(context.Context, *PutObjectRequest) error { return nil }}
	p := NewPublisher(client)

	uri, err := p.Publish(context.Background(), "s3://reports/vault", "3f1c", []byte(`{}`), map[string]string{"status": "committed"})
	require.NoError(t, err)
	assert.Equal(t, "s3://reports/vault/3f1c.json", uri)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, "reports", req.Bucket)
	assert.Equal(t, "vault/3f1c.json", req.Key)
	assert.Equal(t, int64(2), req.Size)
	assert.Equal(t, "application/json", req.ContentType)
	assert.Equal(t, "committed", req.Metadata["status"])
	assert.Equal(t, "{}", string(client.bodies[0]))
}

func TestPublisher_Errors(t *testing.T) {
	client := &mockClient{putObjectFunc: func(context.Context, *PutObjectRequest) error {
		return errors.New("denied")
	}}
	p := NewPublisher(client)

	_, err := p.Publish(context.Background(), "reports/vault", "x", nil, nil)
	assert.Error(t, err)

	_, err = p.Publish(context.Background(), "s3://reports", "", nil, nil)
	assert.Error(t, err)

	_, err = p.Publish(context.Background(), "s3://reports", "x", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://reports/x.json")
}
