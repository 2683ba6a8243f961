package transfer

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/s3types"
)

func TestNew(t *testing.T) {
	t.Run("requires a client", func(t *testing.T) {
		_, err := New(nil)
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("defaults", func(t *testing.T) {
		m, err := New(&testutil.MockS3Client{})
		require.NoError(t, err)

		cfg := m.Config()
		assert.Equal(t, int64(s3types.DefaultPartSize), cfg.PartSize)
		assert.Equal(t, s3types.DefaultTransferConcurrency, cfg.Concurrency)
		assert.Equal(t, cfg.PartSize, cfg.MultipartThreshold)
		assert.NotNil(t, cfg.Filesystem)
		assert.NotNil(t, cfg.Logger)
	})

	t.Run("clamps part size and threshold", func(t *testing.T) {
		m, err := New(&testutil.MockS3Client{},
			WithPartSize(1024),
			WithMultipartThreshold(1<<30),
			WithConcurrency(2),
		)
		require.NoError(t, err)

		cfg := m.Config()
		assert.Equal(t, int64(s3types.MinPartSize), cfg.PartSize)
		assert.Equal(t, int64(s3types.MinPartSize), cfg.MultipartThreshold)
		assert.Equal(t, 2, cfg.Concurrency)
	})
}

func TestManager_UploadSinglePut(t *testing.T) {
	var got *s3.PutObjectInput
	var body []byte
	mock := testutil.NewMockBuilder().Build()
	mock.PutObjectFunc = func(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		got = params
		body, _ = io.ReadAll(params.Body)
		return &s3.PutObjectOutput{ETag: aws.String(`"etag"`), VersionId: aws.String("v1")}, nil
	}

	m, err := New(mock)
	require.NoError(t, err)

	result, err := m.Upload(context.Background(), "bucket", "dir/hello.txt", bytes.NewReader([]byte("hello world")))
	require.NoError(t, err)

	assert.Equal(t, "bucket", aws.ToString(got.Bucket))
	assert.Equal(t, "dir/hello.txt", aws.ToString(got.Key))
	assert.Equal(t, "text/plain; charset=utf-8", aws.ToString(got.ContentType))
	assert.Equal(t, int64(11), aws.ToInt64(got.ContentLength))
	assert.Equal(t, "hello world", string(body))

	assert.Equal(t, "dir/hello.txt", result.Key)
	assert.Equal(t, int64(11), result.Size)
	assert.Equal(t, `"etag"`, result.ETag)
	assert.Equal(t, "v1", result.VersionID)
	assert.Equal(t, 1, result.Parts)
}

func TestManager_UploadExplicitContentType(t *testing.T) {
	var contentType string
	var metadata map[string]string
	mock := testutil.NewMockBuilder().Build()
	mock.PutObjectFunc = func(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		contentType = aws.ToString(params.ContentType)
		metadata = params.Metadata
		return &s3.PutObjectOutput{}, nil
	}

	m, err := New(mock)
	require.NoError(t, err)

	_, err = m.Upload(context.Background(), "bucket", "data.bin", bytes.NewReader([]byte("{}")),
		WithContentType("application/x-custom"),
		WithMetadata(map[string]string{"owner": "test"}),
	)
	require.NoError(t, err)
	assert.Equal(t, "application/x-custom", contentType)
	assert.Equal(t, map[string]string{"owner": "test"}, metadata)
}

func TestManager_UploadMultipart(t *testing.T) {
	rec := &testutil.MultipartRecorder{}
	mock := testutil.NewMockBuilder().WithMultipartUpload(rec).Build()

	m, err := New(mock, WithPartSize(s3types.MinPartSize), WithConcurrency(2))
	require.NoError(t, err)

	data := testutil.GenerateRandomData(2*s3types.MinPartSize + 1024)
	result, err := m.Upload(context.Background(), "bucket", "big.bin", bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, 3, result.Parts)
	assert.Equal(t, int64(len(data)), result.Size)
	assert.Equal(t, `"multipart-etag"`, result.ETag)
	assert.Equal(t, data, rec.Body())
	assert.Zero(t, rec.Aborted)

	require.Len(t, rec.Completed, 3)
	for i, part := range rec.Completed {
		assert.Equal(t, int32(i+1), aws.ToInt32(part.PartNumber))
	}
}

func TestManager_UploadExactlyOnePart(t *testing.T) {
	rec := &testutil.MultipartRecorder{}
	mock := testutil.NewMockBuilder().WithMultipartUpload(rec).Build()

	m, err := New(mock, WithPartSize(s3types.MinPartSize))
	require.NoError(t, err)

	data := testutil.GenerateRandomData(s3types.MinPartSize)
	result, err := m.Upload(context.Background(), "bucket", "exact.bin", bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Parts)
	assert.Equal(t, data, rec.Body())
}

func TestManager_UploadMultipartAbortsOnPartFailure(t *testing.T) {
	rec := &testutil.MultipartRecorder{}
	mock := testutil.NewMockBuilder().WithMultipartUpload(rec).Build()
	completed := false
	mock.UploadPartFunc = func(_ context.Context, params *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
		_, _ = io.Copy(io.Discard, params.Body)
		if aws.ToInt32(params.PartNumber) == 2 {
			return nil, testutil.APIError("InternalError")
		}
		return &s3.UploadPartOutput{ETag: aws.String(`"part"`)}, nil
	}
	mock.CompleteMultipartUploadFunc = func(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
		completed = true
		return &s3.CompleteMultipartUploadOutput{}, nil
	}

	m, err := New(mock, WithPartSize(s3types.MinPartSize))
	require.NoError(t, err)

	data := testutil.GenerateRandomData(3 * s3types.MinPartSize)
	_, err = m.Upload(context.Background(), "bucket", "big.bin", bytes.NewReader(data))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "InternalError")
	assert.Equal(t, 1, rec.Aborted)
	assert.False(t, completed)
}

func TestManager_UploadFileAndDownloadFile(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "/src/report.txt", []byte("quarterly numbers"), 0o644))

	stored := map[string][]byte{}
	mock := testutil.NewMockBuilder().
		WithGetObject(func(_ context.Context, params *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			data, ok := stored[aws.ToString(params.Key)]
			if !ok {
				return nil, testutil.APIError("NoSuchKey")
			}
			return testutil.GetObjectOutput(data, "text/plain"), nil
		}).
		Build()
	mock.PutObjectFunc = func(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		data, _ := io.ReadAll(params.Body)
		stored[aws.ToString(params.Key)] = data
		return &s3.PutObjectOutput{}, nil
	}

	m, err := New(mock, WithFilesystem(fs))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = m.UploadFile(ctx, "bucket", "reports/q1.txt", "/src/report.txt")
	require.NoError(t, err)

	n, err := m.DownloadFile(ctx, "bucket", "reports/q1.txt", "/dst/nested/q1.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(len("quarterly numbers")), n)

	got, err := util.ReadFile(fs, "/dst/nested/q1.txt")
	require.NoError(t, err)
	assert.Equal(t, "quarterly numbers", string(got))

	t.Run("missing object", func(t *testing.T) {
		_, err := m.DownloadFile(ctx, "bucket", "missing", "/dst/missing")
		assert.ErrorIs(t, err, errors.ErrObjectNotFound)

		_, statErr := fs.Stat("/dst/missing")
		assert.Error(t, statErr, "partial file is removed")
	})

	t.Run("missing source file", func(t *testing.T) {
		_, err := m.UploadFile(ctx, "bucket", "k", "/src/none")
		assert.Error(t, err)
	})
}

func TestManager_CloseWaitsForInflight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	mock := testutil.NewMockBuilder().Build()
	mock.PutObjectFunc = func(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		if aws.ToString(params.Key) == "key" {
			close(started)
			<-release
		}
		return &s3.PutObjectOutput{}, nil
	}

	m, err := New(mock)
	require.NoError(t, err)

	uploadDone := make(chan error, 1)
	go func() {
		_, err := m.Upload(context.Background(), "bucket", "key", bytes.NewReader([]byte("x")))
		uploadDone <- err
	}()
	<-started

	var closed atomic.Bool
	closeDone := make(chan struct{})
	go func() {
		_ = m.Close()
		closed.Store(true)
		close(closeDone)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, closed.Load(), "Close must wait for the in-flight upload")

	// new transfers are rejected while closing
	assert.Eventually(t, func() bool {
		_, err := m.Upload(context.Background(), "bucket", "other", bytes.NewReader([]byte("y")))
		return errors.IsClosed(err)
	}, time.Second, 5*time.Millisecond)

	close(release)
	require.NoError(t, <-uploadDone)
	<-closeDone
	assert.True(t, closed.Load())

	// idempotent
	require.NoError(t, m.Close())

	_, err = m.Download(context.Background(), "bucket", "key", io.Discard)
	assert.ErrorIs(t, err, errors.ErrClosed)
}
