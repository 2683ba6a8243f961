package transfer

import (
	"bytes"
	"context"
	"io"
	"path"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/s3types"
)

// Manager runs uploads and downloads against one S3 client.
//
// Thread Safety: all methods are safe for concurrent use.
type Manager struct {
	client s3api.S3API
	cfg    Config
	parts  *pool.BufferPool

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// New creates a Manager on top of client.
func New(client s3api.S3API, opts ...Option) (*Manager, error) {
	if client == nil {
		return nil, errors.NewError("newTransferManager", errors.ErrInvalidInput).
			WithMessage("client is required")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	cfg.PartSize = max(cfg.PartSize, s3types.MinPartSize)
	if cfg.MultipartThreshold <= 0 || cfg.MultipartThreshold > cfg.PartSize {
		cfg.MultipartThreshold = cfg.PartSize
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = osfs.New("/")
	}

	return &Manager{
		client: client,
		cfg:    cfg,
		parts:  pool.NewBufferPool(int(cfg.PartSize)),
	}, nil
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// Upload uploads the contents of r to bucket/key. Bodies smaller than the
// multipart threshold are sent with a single PUT; larger bodies are streamed
// as parts without being buffered whole.
func (m *Manager) Upload(
	ctx context.Context,
	bucket, key string,
	r io.Reader,
	opts ...UploadOption,
) (*s3types.UploadResult, error) {
	if err := m.begin("upload"); err != nil {
		return nil, err
	}
	defer m.inflight.Done()

	cfg := &uploadConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	start := time.Now()
	buf := m.parts.Get()
	n, last, err := readPart(r, buf)
	if err != nil {
		m.parts.Put(buf)
		return nil, errors.NewObjectError("upload", bucket, key, err)
	}

	if cfg.contentType == "" {
		cfg.contentType = mimetype.Detect(buf[:n]).String()
	}

	if last && int64(n) < m.cfg.MultipartThreshold {
		defer m.parts.Put(buf)
		return m.putObject(ctx, bucket, key, buf[:n], cfg, start)
	}

	return m.uploadMultipart(ctx, bucket, key, r, buf, n, last, cfg, start)
}

// UploadFile uploads the file at path on the configured filesystem.
func (m *Manager) UploadFile(
	ctx context.Context,
	bucket, key, path string,
	opts ...UploadOption,
) (*s3types.UploadResult, error) {
	f, err := m.cfg.Filesystem.Open(path)
	if err != nil {
		return nil, errors.NewObjectError("uploadFile", bucket, key, err)
	}
	defer f.Close()

	return m.Upload(ctx, bucket, key, f, opts...)
}

// Download streams bucket/key into w and returns the number of bytes written.
func (m *Manager) Download(ctx context.Context, bucket, key string, w io.Writer) (int64, error) {
	if err := m.begin("download"); err != nil {
		return 0, err
	}
	defer m.inflight.Done()

	output, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if errors.IsNotFound(err) {
			return 0, errors.NewObjectError("download", bucket, key, errors.ErrObjectNotFound)
		}
		return 0, errors.NewObjectError("download", bucket, key, err)
	}
	defer output.Body.Close()

	written, err := io.Copy(w, output.Body)
	if err != nil {
		return written, errors.NewObjectError("download", bucket, key, err)
	}

	m.cfg.Logger.Debug("download complete", "bucket", bucket, "key", key, "bytes", written)
	return written, nil
}

// DownloadFile downloads bucket/key to path on the configured filesystem,
// creating parent directories as needed.
func (m *Manager) DownloadFile(ctx context.Context, bucket, key, filePath string) (int64, error) {
	fs := m.cfg.Filesystem
	if dir := path.Dir(filePath); dir != "." && dir != "/" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return 0, errors.NewObjectError("downloadFile", bucket, key, err)
		}
	}

	f, err := fs.Create(filePath)
	if err != nil {
		return 0, errors.NewObjectError("downloadFile", bucket, key, err)
	}

	written, err := m.Download(ctx, bucket, key, f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = errors.NewObjectError("downloadFile", bucket, key, closeErr)
	}
	if err != nil {
		_ = fs.Remove(filePath)
		return written, err
	}
	return written, nil
}

// Close stops new transfers and waits for in-flight transfers to finish.
// Later calls return immediately.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.inflight.Wait()
	return nil
}

// begin registers an in-flight transfer unless the manager is closed.
func (m *Manager) begin(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.NewError(op, errors.ErrClosed).WithMessage("transfer manager is closed")
	}
	m.inflight.Add(1)
	return nil
}

func (m *Manager) putObject(
	ctx context.Context,
	bucket, key string,
	data []byte,
	cfg *uploadConfig,
	start time.Time,
) (*s3types.UploadResult, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(cfg.contentType),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if len(cfg.metadata) > 0 {
		input.Metadata = cfg.metadata
	}

	output, err := m.client.PutObject(ctx, input)
	if err != nil {
		return nil, errors.NewObjectError("putObject", bucket, key, err)
	}

	return &s3types.UploadResult{
		Key:       key,
		Size:      int64(len(data)),
		ETag:      aws.ToString(output.ETag),
		VersionID: aws.ToString(output.VersionId),
		Parts:     1,
		Duration:  time.Since(start),
	}, nil
}

// readPart fills buf from r. last reports that r is exhausted.
func readPart(r io.Reader, buf []byte) (n int, last bool, err error) {
	n, err = io.ReadFull(r, buf)
	switch err {
	case nil:
		return n, false, nil
	case io.EOF, io.ErrUnexpectedEOF:
		return n, true, nil
	default:
		return n, false, err
	}
}
