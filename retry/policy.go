// Package retry provides the retry policies that wrap store requests.
//
// A Policy decides whether a failed attempt may be repeated and supplies the
// backoff schedule between attempts. Do runs an operation under a policy and
// returns the last error untranslated once the policy gives up.
package retry

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v4"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/aws/s3store/errors"
)

// Policy decides whether and when failed attempts are retried.
type Policy interface {
	// IsErrorRetryable reports whether err, raised by the given 1-based
	// attempt, may be retried.
	IsErrorRetryable(err error, attempt int) bool

	// BackOff returns a fresh backoff schedule for one logical operation.
	// Returning backoff.Stop from NextBackOff ends the retries.
	BackOff() backoff.BackOff
}

// ExponentialPolicy retries transient failures with exponential backoff and
// jitter.
//
// Thread Safety: all fields are configuration set before first use; each
// call to BackOff returns an independent schedule.
type ExponentialPolicy struct {
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int

	// InitialInterval is the first delay; zero retries immediately
	InitialInterval time.Duration

	// MaxInterval caps each delay
	MaxInterval time.Duration

	// MaxElapsedTime bounds the whole operation; zero means no bound
	MaxElapsedTime time.Duration

	// Retryable overrides the default error classification when set
	Retryable func(error) bool
}

// NewExponential creates an ExponentialPolicy.
func NewExponential(maxAttempts int, initial, maxInterval time.Duration) *ExponentialPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &ExponentialPolicy{
		MaxAttempts:     maxAttempts,
		InitialInterval: initial,
		MaxInterval:     maxInterval,
	}
}

// Default returns the default policy: 10 attempts, 100ms base delay and a
// 30s delay cap.
func Default() *ExponentialPolicy {
	return NewExponential(10, 100*time.Millisecond, 30*time.Second)
}

// Never returns a policy that makes exactly one attempt.
func Never() *ExponentialPolicy {
	return NewExponential(1, 0, 0)
}

// BackOff returns a fresh schedule allowing MaxAttempts-1 retries.
//
//nolint:ireturn // backoff composes through its interface
func (p *ExponentialPolicy) BackOff() backoff.BackOff {
	retries := uint64(0)
	if p.MaxAttempts > 1 {
		retries = uint64(p.MaxAttempts - 1)
	}

	if p.InitialInterval <= 0 {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, retries)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.RandomizationFactor = 0.25
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = p.MaxElapsedTime
	b.Reset()

	return backoff.WithMaxRetries(b, retries)
}

// IsErrorRetryable reports whether err may be retried on the given attempt.
func (p *ExponentialPolicy) IsErrorRetryable(err error, attempt int) bool {
	if err == nil || attempt >= p.MaxAttempts {
		return false
	}
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return IsTransient(err)
}

// retryableCodes are S3 service codes for transient server-side failures.
var retryableCodes = map[string]struct{}{
	"InternalError":      {},
	"ServiceUnavailable": {},
	"RequestTimeout":     {},
	"OperationAborted":   {},
}

// IsTransient is the default error classification: throttling, 5xx answers,
// transient S3 codes and network errors are retryable; client errors,
// not-found answers, cancellation and store-level errors are not.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case s3errors.IsClosed(err), s3errors.IsInvalidInput(err), s3errors.IsUnsupported(err):
		return false
	case s3errors.IsThrottled(err):
		return true
	case s3errors.IsNotFound(err), s3errors.IsBucketNotFound(err), s3errors.IsAccessDenied(err):
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := retryableCodes[apiErr.ErrorCode()]; ok {
			return true
		}
	}

	if status := s3errors.HTTPStatus(err); status >= 500 {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
