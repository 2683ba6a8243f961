// Package errors provides error types and classification for the S3 store.
//
// Failures raised by the store itself carry an Op and, where known, the
// bucket and key through *Error. Failures raised by the AWS SDK are returned
// untranslated; the Is* helpers classify them by service error code and
// HTTP status so callers never need to import smithy-go themselves.
package errors

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Error represents a store operation error with context about the operation that failed.
type Error struct {
	// Op is the operation that failed (e.g., "deleteObjects", "getOrCreateSyncClient")
	Op string

	// Bucket is the S3 bucket name (if applicable)
	Bucket string

	// Key is the S3 object key (if applicable)
	Key string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("s3store.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("s3store.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("s3store.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("s3store.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// Sentinel errors for store failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrClosed indicates the client manager has been closed
	ErrClosed = errors.New("s3store: client manager is closed")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("s3store: invalid input")

	// ErrUnsupportedOperation indicates the operation is not supported at the target path
	ErrUnsupportedOperation = errors.New("s3store: unsupported operation")

	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("s3store: object not found")

	// ErrBucketNotFound indicates that the requested bucket does not exist
	ErrBucketNotFound = errors.New("s3store: bucket not found")

	// ErrTooManyRequests indicates that the request rate is too high
	ErrTooManyRequests = errors.New("s3store: too many requests")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("s3store: access denied")
)

// S3 error codes used for classification. Third-party stores reuse these.
var (
	notFoundCodes = map[string]struct{}{
		"NoSuchKey": {},
		"NotFound":  {},
		"404":       {},
	}

	throttleCodes = map[string]struct{}{
		"SlowDown":                               {},
		"503 SlowDown":                           {},
		"Throttling":                             {},
		"ThrottlingException":                    {},
		"ThrottledException":                     {},
		"RequestThrottled":                       {},
		"RequestLimitExceeded":                   {},
		"TooManyRequestsException":               {},
		"ProvisionedThroughputExceededException": {},
	}

	accessDeniedCodes = map[string]struct{}{
		"AccessDenied":          {},
		"AccessDeniedException": {},
		"Forbidden":             {},
	}
)

const bucketNotFoundCode = "NoSuchBucket"

// httpStatusError is satisfied by smithy-go's transport response errors.
type httpStatusError interface {
	HTTPStatusCode() int
}

// IsNotFoundCode reports whether an S3 error code means the object is absent.
func IsNotFoundCode(code string) bool {
	_, ok := notFoundCodes[code]
	return ok
}

// IsThrottleCode reports whether an S3 error code means the request was throttled.
func IsThrottleCode(code string) bool {
	_, ok := throttleCodes[code]
	return ok
}

// IsBucketNotFound checks if an error indicates that a bucket was not found.
func IsBucketNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBucketNotFound) {
		return true
	}
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return true
	}
	return apiErrorCode(err) == bucketNotFoundCode
}

// IsNotFound checks if an error indicates that an object was not found.
// A missing bucket is not an object not-found: it returns false for NoSuchBucket
// even though the store answers it with a 404.
func IsNotFound(err error) bool {
	if err == nil || IsBucketNotFound(err) {
		return false
	}
	if errors.Is(err, ErrObjectNotFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	if IsNotFoundCode(apiErrorCode(err)) {
		return true
	}
	return httpStatus(err) == 404
}

// IsThrottled checks if an error indicates the store throttled the request.
func IsThrottled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTooManyRequests) {
		return true
	}
	if IsThrottleCode(apiErrorCode(err)) {
		return true
	}
	status := httpStatus(err)
	return status == 503 || status == 429
}

// IsAccessDenied checks if an error indicates access was denied.
func IsAccessDenied(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAccessDenied) {
		return true
	}
	_, ok := accessDeniedCodes[apiErrorCode(err)]
	return ok
}

// IsClosed checks if an error indicates the client manager was closed.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsUnsupported checks if an error indicates an unsupported operation.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedOperation)
}

// APIErrorCode returns the service error code carried by an AWS SDK error,
// or "" when err is not a service error.
func APIErrorCode(err error) string {
	return apiErrorCode(err)
}

// HTTPStatus returns the HTTP status code carried by an AWS SDK error, or 0.
func HTTPStatus(err error) int {
	return httpStatus(err)
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func httpStatus(err error) int {
	var statusErr httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.HTTPStatusCode()
	}
	return 0
}
