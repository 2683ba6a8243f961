package transfer

import (
	"log/slog"

	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/s3types"
)

// Config holds configuration for a Manager.
type Config struct {
	// PartSize is the multipart part size; at least s3types.MinPartSize
	PartSize int64

	// Concurrency is the number of parts uploaded in parallel
	Concurrency int

	// MultipartThreshold is the body size from which uploads go multipart;
	// values above PartSize are clamped to PartSize
	MultipartThreshold int64

	// Filesystem backs UploadFile and DownloadFile
	Filesystem billy.Filesystem

	// Logger receives transfer diagnostics
	Logger *slog.Logger
}

// Option is a functional option for configuring a Manager.
type Option func(*Config)

// WithPartSize sets the part size for multipart uploads.
// Default is 8MB. Values below 5MB are raised to 5MB.
func WithPartSize(partSize int64) Option {
	return func(c *Config) {
		if partSize > 0 {
			c.PartSize = partSize
		}
	}
}

// WithConcurrency sets the number of parts uploaded in parallel.
// Default is 5.
func WithConcurrency(concurrency int) Option {
	return func(c *Config) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}

// WithMultipartThreshold sets the body size from which uploads use the
// multipart API. Default is the part size.
func WithMultipartThreshold(threshold int64) Option {
	return func(c *Config) {
		if threshold > 0 {
			c.MultipartThreshold = threshold
		}
	}
}

// WithFilesystem sets the filesystem used by UploadFile and DownloadFile.
// Default is the OS filesystem rooted at /.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(c *Config) {
		c.Filesystem = fs
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

func defaultConfig() Config {
	return Config{
		PartSize:    s3types.DefaultPartSize,
		Concurrency: s3types.DefaultTransferConcurrency,
		Logger:      slog.New(slog.DiscardHandler),
	}
}

// UploadOption configures a single upload.
type UploadOption func(*uploadConfig)

type uploadConfig struct {
	contentType string
	metadata    map[string]string
}

// WithContentType sets the object's content type instead of detecting it
// from the body.
func WithContentType(contentType string) UploadOption {
	return func(c *uploadConfig) {
		c.contentType = contentType
	}
}

// WithMetadata sets user metadata on the uploaded object.
func WithMetadata(metadata map[string]string) UploadOption {
	return func(c *uploadConfig) {
		c.metadata = metadata
	}
}
