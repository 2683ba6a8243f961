package testutil

import (
	"context"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// MockBuilder provides a fluent interface for building MockS3Client instances.
type MockBuilder struct {
	client *MockS3Client
}

// NewMockBuilder creates a new MockBuilder.
func NewMockBuilder() *MockBuilder {
	return &MockBuilder{
		client: &MockS3Client{},
	}
}

// Build returns the configured MockS3Client.
func (b *MockBuilder) Build() *MockS3Client {
	return b.client
}

// WithDeleteObject configures the DeleteObject behavior.
func (b *MockBuilder) WithDeleteObject(
	fn func(context.Context, *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error),
) *MockBuilder {
	b.client.DeleteObjectFunc = func(ctx context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
		return fn(ctx, params)
	}
	return b
}

// WithDeleteObjects configures the DeleteObjects behavior.
func (b *MockBuilder) WithDeleteObjects(
	fn func(context.Context, *s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error),
) *MockBuilder {
	b.client.DeleteObjectsFunc = func(ctx context.Context, params *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
		return fn(ctx, params)
	}
	return b
}

// WithDeleteAll configures DeleteObjects to confirm every requested key.
func (b *MockBuilder) WithDeleteAll() *MockBuilder {
	return b.WithDeleteObjects(func(_ context.Context, params *s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error) {
		return DeleteObjectsOutput(RequestedKeys(params), nil), nil
	})
}

// WithGetObject configures the GetObject behavior.
func (b *MockBuilder) WithGetObject(
	fn func(context.Context, *s3.GetObjectInput) (*s3.GetObjectOutput, error),
) *MockBuilder {
	b.client.GetObjectFunc = func(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
		return fn(ctx, params)
	}
	return b
}

// WithObjectNotFound configures the mock to answer reads and single
// deletes with NoSuchKey.
func (b *MockBuilder) WithObjectNotFound() *MockBuilder {
	notFoundErr := &types.NoSuchKey{
		Message: aws.String("The specified key does not exist."),
	}

	b.client.GetObjectFunc = func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
		return nil, notFoundErr
	}
	b.client.DeleteObjectFunc = func(context.Context, *s3.DeleteObjectInput, ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
		return nil, notFoundErr
	}
	return b
}

// WithSuccessfulUpload configures the mock to always return successful uploads.
func (b *MockBuilder) WithSuccessfulUpload() *MockBuilder {
	b.client.PutObjectFunc = func(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		if params.Body != nil {
			_, _ = io.Copy(io.Discard, params.Body)
		}
		return &s3.PutObjectOutput{
			ETag: aws.String(`"test-etag"`),
		}, nil
	}
	return b
}

// MultipartRecorder captures the parts of the multipart uploads a mock receives.
type MultipartRecorder struct {
	mu        sync.Mutex
	Parts     map[int32][]byte
	Completed []types.CompletedPart
	Aborted   int
}

// Body concatenates the recorded parts in part order.
func (r *MultipartRecorder) Body() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	var body []byte
	for i := int32(1); i <= int32(len(r.Parts)); i++ {
		body = append(body, r.Parts[i]...)
	}
	return body
}

// WithMultipartUpload configures the mock for multipart upload operations,
// recording every part into rec.
func (b *MockBuilder) WithMultipartUpload(rec *MultipartRecorder) *MockBuilder {
	uploadID := "test-upload-id"
	rec.Parts = make(map[int32][]byte)

	b.client.CreateMultipartUploadFunc = func(_ context.Context, params *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
		return &s3.CreateMultipartUploadOutput{
			UploadId: aws.String(uploadID),
			Bucket:   params.Bucket,
			Key:      params.Key,
		}, nil
	}

	b.client.UploadPartFunc = func(_ context.Context, params *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
		data, err := io.ReadAll(params.Body)
		if err != nil {
			return nil, err
		}
		rec.mu.Lock()
		rec.Parts[aws.ToInt32(params.PartNumber)] = data
		rec.mu.Unlock()
		return &s3.UploadPartOutput{
			ETag: aws.String(ETag(data)),
		}, nil
	}

	b.client.CompleteMultipartUploadFunc = func(_ context.Context, params *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
		rec.mu.Lock()
		rec.Completed = params.MultipartUpload.Parts
		rec.mu.Unlock()
		return &s3.CompleteMultipartUploadOutput{
			ETag:   aws.String(`"multipart-etag"`),
			Bucket: params.Bucket,
			Key:    params.Key,
		}, nil
	}

	b.client.AbortMultipartUploadFunc = func(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
		rec.mu.Lock()
		rec.Aborted++
		rec.mu.Unlock()
		return &s3.AbortMultipartUploadOutput{}, nil
	}

	return b
}

// WithClose configures the Close behavior.
func (b *MockBuilder) WithClose(fn func() error) *MockBuilder {
	b.client.CloseFunc = fn
	return b
}
