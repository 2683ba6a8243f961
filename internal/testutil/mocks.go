// Package testutil provides test utilities and mocks for the S3 store.
// This package is internal and should only be used for testing within the module.
package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/s3api"
)

// MockS3Client is an s3api.Client whose operations are replaced through
// function fields. Operations without a function succeed with an empty
// output. Every invocation is recorded by name.
type MockS3Client struct {
	PutObjectFunc               func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObjectFunc               func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObjectFunc            func(context.Context, *s3.DeleteObjectInput, ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjectsFunc           func(context.Context, *s3.DeleteObjectsInput, ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	CreateMultipartUploadFunc   func(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPartFunc              func(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUploadFunc func(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUploadFunc    func(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
	CloseFunc                   func() error

	// Calls counts every S3 operation invoked on the mock
	Calls atomic.Int64

	// Closes counts calls to Close
	Closes atomic.Int32

	mu  sync.Mutex
	ops []string
}

// Ops returns the names of the S3 operations invoked so far, in call order.
func (m *MockS3Client) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

// CallsTo returns how many times the named S3 operation was invoked.
func (m *MockS3Client) CallsTo(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.ops {
		if o == op {
			n++
		}
	}
	return n
}

func (m *MockS3Client) record(op string) {
	m.Calls.Add(1)
	m.mu.Lock()
	m.ops = append(m.ops, op)
	m.mu.Unlock()
}

// PutObject mocks the S3 PutObject operation.
func (m *MockS3Client) PutObject(
	ctx context.Context,
	params *s3.PutObjectInput,
	optFns ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	m.record("PutObject")
	if m.PutObjectFunc == nil {
		return &s3.PutObjectOutput{}, nil
	}
	return m.PutObjectFunc(ctx, params, optFns...)
}

// GetObject mocks the S3 GetObject operation.
func (m *MockS3Client) GetObject(
	ctx context.Context,
	params *s3.GetObjectInput,
	optFns ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	m.record("GetObject")
	if m.GetObjectFunc == nil {
		return &s3.GetObjectOutput{}, nil
	}
	return m.GetObjectFunc(ctx, params, optFns...)
}

// DeleteObject mocks the S3 DeleteObject operation.
func (m *MockS3Client) DeleteObject(
	ctx context.Context,
	params *s3.DeleteObjectInput,
	optFns ...func(*s3.Options),
) (*s3.DeleteObjectOutput, error) {
	m.record("DeleteObject")
	if m.DeleteObjectFunc == nil {
		return &s3.DeleteObjectOutput{}, nil
	}
	return m.DeleteObjectFunc(ctx, params, optFns...)
}

// DeleteObjects mocks the S3 DeleteObjects operation.
func (m *MockS3Client) DeleteObjects(
	ctx context.Context,
	params *s3.DeleteObjectsInput,
	optFns ...func(*s3.Options),
) (*s3.DeleteObjectsOutput, error) {
	m.record("DeleteObjects")
	if m.DeleteObjectsFunc == nil {
		return &s3.DeleteObjectsOutput{}, nil
	}
	return m.DeleteObjectsFunc(ctx, params, optFns...)
}

// CreateMultipartUpload mocks the S3 CreateMultipartUpload operation.
func (m *MockS3Client) CreateMultipartUpload(
	ctx context.Context,
	params *s3.CreateMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.CreateMultipartUploadOutput, error) {
	m.record("CreateMultipartUpload")
	if m.CreateMultipartUploadFunc == nil {
		return &s3.CreateMultipartUploadOutput{}, nil
	}
	return m.CreateMultipartUploadFunc(ctx, params, optFns...)
}

// UploadPart mocks the S3 UploadPart operation.
func (m *MockS3Client) UploadPart(
	ctx context.Context,
	params *s3.UploadPartInput,
	optFns ...func(*s3.Options),
) (*s3.UploadPartOutput, error) {
	m.record("UploadPart")
	if m.UploadPartFunc == nil {
		return &s3.UploadPartOutput{}, nil
	}
	return m.UploadPartFunc(ctx, params, optFns...)
}

// CompleteMultipartUpload mocks the S3 CompleteMultipartUpload operation.
func (m *MockS3Client) CompleteMultipartUpload(
	ctx context.Context,
	params *s3.CompleteMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.CompleteMultipartUploadOutput, error) {
	m.record("CompleteMultipartUpload")
	if m.CompleteMultipartUploadFunc == nil {
		return &s3.CompleteMultipartUploadOutput{}, nil
	}
	return m.CompleteMultipartUploadFunc(ctx, params, optFns...)
}

// AbortMultipartUpload mocks the S3 AbortMultipartUpload operation.
func (m *MockS3Client) AbortMultipartUpload(
	ctx context.Context,
	params *s3.AbortMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.AbortMultipartUploadOutput, error) {
	m.record("AbortMultipartUpload")
	if m.AbortMultipartUploadFunc == nil {
		return &s3.AbortMultipartUploadOutput{}, nil
	}
	return m.AbortMultipartUploadFunc(ctx, params, optFns...)
}

// Close mocks releasing the client's connections.
func (m *MockS3Client) Close() error {
	m.Closes.Add(1)
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Ensure MockS3Client implements s3api.Client interface
var _ s3api.Client = (*MockS3Client)(nil)
