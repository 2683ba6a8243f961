// Package s3types provides shared type definitions for the S3 store.
package s3types

import (
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/ratelimit"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/retry"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/statistics"
)

const (
	// MaxPageSize is the largest number of keys S3 accepts in one bulk delete.
	MaxPageSize = 1000

	// DefaultPartSize is the default multipart part size (8MB).
	DefaultPartSize = 8 * 1024 * 1024

	// MinPartSize is the smallest part size S3 accepts for non-final parts (5MB).
	MinPartSize = 5 * 1024 * 1024

	// DefaultTransferConcurrency is the default number of concurrent part transfers.
	DefaultTransferConcurrency = 5

	// DefaultMaxConnections is the default idle connection pool size of the async client.
	DefaultMaxConnections = 96
)

// ClientCreationParameters holds everything a ClientFactory needs to build
// clients for one mounted bucket. It is captured once by the client manager
// and never modified afterwards.
type ClientCreationParameters struct {
	// URI is the store URI, e.g. "s3://bucket" or "s3://bucket/prefix"
	URI string

	// Region is the AWS region; empty uses the credential chain default
	Region string

	// Endpoint overrides the S3 endpoint (S3-compatible stores, LocalStack)
	Endpoint string

	// PathStyle forces path-style addressing
	PathStyle bool

	// Credentials is an explicit credentials provider
	Credentials aws.CredentialsProvider

	// AccessKeyID and SecretAccessKey configure static credentials when
	// Credentials is nil
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// AWSConfig replaces default configuration loading entirely
	AWSConfig *aws.Config

	// MaxAttempts is the SDK-level attempt limit; 0 keeps the SDK default
	MaxAttempts int

	// RequestTimeout bounds each request of the synchronous client
	RequestTimeout time.Duration

	// MaxConnections sizes the idle connection pool of the async client
	MaxConnections int

	// TransferConcurrency is the number of parts transferred in parallel
	TransferConcurrency int

	// PartSize is the multipart part size
	PartSize int64

	// MultipartThreshold is the body size from which uploads go multipart
	MultipartThreshold int64
}

// Bucket returns the bucket name encoded in URI.
func (p *ClientCreationParameters) Bucket() string {
	rest := p.URI
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// DeleteRequest is one page of keys to remove in a single bulk delete call.
type DeleteRequest struct {
	// BaseKey is the key prefix every entry in Keys must live under; empty
	// means the bucket root
	BaseKey string

	// Keys are the distinct object keys to delete, in request order
	Keys []string
}

// KeyFailure describes one key the store refused to delete.
type KeyFailure struct {
	// Key is the object key
	Key string

	// Code is the S3 error code (e.g., "AccessDenied")
	Code string

	// Message is the human-readable reason
	Message string
}

// DeleteOutcome is the result of a bulk delete.
//
// The operation is not atomic. A requested key that does not appear in
// Failed is guaranteed absent from the store, whether this call removed it
// or it was already missing.
type DeleteOutcome struct {
	// WaitDuration is the total time spent waiting for write capacity
	WaitDuration time.Duration

	// Deleted lists the keys the store confirmed removed
	Deleted []string

	// Failed lists keys that could not be deleted for a reason other than not-found
	Failed []KeyFailure
}

// Merge appends other into o.
func (o *DeleteOutcome) Merge(other *DeleteOutcome) {
	if other == nil {
		return
	}
	o.WaitDuration += other.WaitDuration
	o.Deleted = append(o.Deleted, other.Deleted...)
	o.Failed = append(o.Failed, other.Failed...)
}

// SingleDeleteOutcome is the result of a single object delete.
type SingleDeleteOutcome struct {
	// WaitDuration is the total time spent waiting for write capacity
	WaitDuration time.Duration

	// Response is nil when a not-found answer was swallowed
	Response *s3.DeleteObjectOutput
}

// UploadResult contains the result of an upload operation.
type UploadResult struct {
	// Key is the S3 object key that was uploaded
	Key string

	// Size is the size of the uploaded object in bytes
	Size int64

	// ETag is the entity tag of the uploaded object
	ETag string

	// VersionID is the version ID (if versioning is enabled)
	VersionID string

	// Parts is the number of parts; 1 for a single PUT
	Parts int

	// Duration is how long the upload took
	Duration time.Duration
}

// StoreConfig holds configuration for a Store.
type StoreConfig struct {
	// Logger receives store diagnostics
	Logger *slog.Logger

	// PageSize is the maximum number of keys per bulk delete
	PageSize int

	// MultiObjectDelete enables the bulk delete API
	MultiObjectDelete bool

	// DeleteConcurrency bounds parallel pages in paged deletes
	DeleteConcurrency int

	// ReadLimiter and WriteLimiter gate request capacity
	ReadLimiter  ratelimit.Limiter
	WriteLimiter ratelimit.Limiter

	// RetryPolicy decides whether and when failed attempts are repeated
	RetryPolicy retry.Policy

	// Statistics overrides the client manager's statistics sink
	Statistics statistics.Sink
}

// StoreOption is a functional option for configuring a Store.
type StoreOption func(*StoreConfig)

// ManagerConfig holds configuration for a ClientManager.
type ManagerConfig struct {
	// Logger receives lifecycle diagnostics
	Logger *slog.Logger
}

// ManagerOption is a functional option for configuring a ClientManager.
type ManagerOption func(*ManagerConfig)
