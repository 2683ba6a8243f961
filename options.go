// Package s3store provides functional options for configuring a Store and a ClientManager.
package s3store

import (
	"log/slog"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/ratelimit"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/retry"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/s3types"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/statistics"
)

// WithLogger sets the logger used for store diagnostics.
// A nil logger leaves logging disabled.
func WithLogger(logger *slog.Logger) s3types.StoreOption {
	return func(c *s3types.StoreConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithPageSize sets the maximum number of keys per bulk delete.
// Default is 1000, which is also the largest value S3 accepts.
func WithPageSize(pageSize int) s3types.StoreOption {
	return func(c *s3types.StoreConfig) {
		c.PageSize = pageSize
	}
}

// WithMultiObjectDelete enables or disables the bulk delete API.
// Some S3-compatible stores do not implement it. Default is enabled.
func WithMultiObjectDelete(enabled bool) s3types.StoreOption {
	return func(c *s3types.StoreConfig) {
		c.MultiObjectDelete = enabled
	}
}

// WithDeleteConcurrency sets how many pages DeleteKeys deletes in parallel.
// Default is 4.
func WithDeleteConcurrency(concurrency int) s3types.StoreOption {
	return func(c *s3types.StoreConfig) {
		if concurrency > 0 {
			c.DeleteConcurrency = concurrency
		}
	}
}

// WithReadRateLimit limits read capacity to perSecond tokens per second.
// A non-positive rate disables the limit; a non-positive burst allows one
// second of capacity.
func WithReadRateLimit(perSecond float64, burst int) s3types.StoreOption {
	return WithReadLimiter(ratelimit.New(perSecond, burst))
}

// WithWriteRateLimit limits write capacity to perSecond tokens per second.
// Each key of a delete costs one token.
func WithWriteRateLimit(perSecond float64, burst int) s3types.StoreOption {
	return WithWriteLimiter(ratelimit.New(perSecond, burst))
}

// WithReadLimiter sets the limiter gating read capacity.
func WithReadLimiter(limiter ratelimit.Limiter) s3types.StoreOption {
	return func(c *s3types.StoreConfig) {
		if limiter != nil {
			c.ReadLimiter = limiter
		}
	}
}

// WithWriteLimiter sets the limiter gating write capacity.
func WithWriteLimiter(limiter ratelimit.Limiter) s3types.StoreOption {
	return func(c *s3types.StoreConfig) {
		if limiter != nil {
			c.WriteLimiter = limiter
		}
	}
}

// WithRetryPolicy sets the policy wrapping every delete attempt.
// Default is retry.Default().
func WithRetryPolicy(policy retry.Policy) s3types.StoreOption {
	return func(c *s3types.StoreConfig) {
		if policy != nil {
			c.RetryPolicy = policy
		}
	}
}

// WithStatistics sets the sink receiving store statistics.
// Default is the client manager's sink.
func WithStatistics(sink statistics.Sink) s3types.StoreOption {
	return func(c *s3types.StoreConfig) {
		if sink != nil {
			c.Statistics = sink
		}
	}
}

// WithManagerLogger sets the logger used for client lifecycle diagnostics.
func WithManagerLogger(logger *slog.Logger) s3types.ManagerOption {
	return func(c *s3types.ManagerConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}
