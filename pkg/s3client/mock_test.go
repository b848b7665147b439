package s3client

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// mockClient is a mock implementation of Client for testing
type mockClient struct {
	putObjectFunc func(ctx context.Context, req *PutObjectRequest) error
	bodies        [][]byte
	requests      []*PutObjectRequest
}

func (m *mockClient) PutObject(ctx context.Context, req *PutObjectRequest) error {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	m.bodies = append(m.bodies, body)
	m.requests = append(m.requests, req)
	if m.putObjectFunc != nil {
		return m.putObjectFunc(ctx, req)
	}
	return fmt.Errorf("PutObject not implemented")
}

// mockUploader is a mock implementation of the transfer manager for testing
type mockUploader struct {
	uploadFunc func(ctx context.Context, input *s3.PutObjectInput) error
	bodies     [][]byte
	inputs     []*s3.PutObjectInput
}

func (m *mockUploader) Upload(ctx context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	m.bodies = append(m.bodies, body)
	m.inputs = append(m.inputs, input)
	if m.uploadFunc != nil {
		if err := m.uploadFunc(ctx, input); err != nil {
			return nil, err
		}
	}
	return &manager.UploadOutput{}, nil
}

// apiError is a smithy.APIError carrying an HTTP status code.
type apiError struct {
	code   string
	status int
}

func (e *apiError) Error() string                 { return fmt.Sprintf("api error %s", e.code) }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.code }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultServer }
func (e *apiError) HTTPStatusCode() int           { return e.status }
