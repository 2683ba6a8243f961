package s3store

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/internal/operations/delete"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/ratelimit"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/retry"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/s3types"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/statistics"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/transfer"
)

// defaultDeleteConcurrency bounds the pages DeleteKeys deletes in parallel.
const defaultDeleteConcurrency = 4

// Store deletes objects of one bucket through the clients of a
// ClientManager, applying rate limits and retries to every request.
//
// Thread Safety: all methods are safe for concurrent use.
type Store struct {
	manager *ClientManager
	bucket  string
	cfg     s3types.StoreConfig
	stats   statistics.Sink
	logger  *slog.Logger
}

// NewStore creates a store for the bucket of manager's URI.
func NewStore(manager *ClientManager, opts ...s3types.StoreOption) (*Store, error) {
	const op = "newStore"
	if manager == nil {
		return nil, errors.NewError(op, errors.ErrInvalidInput).WithMessage("client manager is required")
	}

	bucket := manager.params.Bucket()
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}

	cfg := s3types.StoreConfig{
		Logger:            slog.New(slog.DiscardHandler),
		PageSize:          s3types.MaxPageSize,
		MultiObjectDelete: true,
		DeleteConcurrency: defaultDeleteConcurrency,
		ReadLimiter:       ratelimit.Unlimited(),
		WriteLimiter:      ratelimit.Unlimited(),
		RetryPolicy:       retry.Default(),
		Statistics:        manager.Statistics(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.PageSize < 1 || cfg.PageSize > s3types.MaxPageSize {
		return nil, errors.NewError(op, errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("page size must be between 1 and %d, got %d", s3types.MaxPageSize, cfg.PageSize))
	}

	return &Store{
		manager: manager,
		bucket:  bucket,
		cfg:     cfg,
		stats:   cfg.Statistics,
		logger:  cfg.Logger.With("bucket", bucket),
	}, nil
}

// Open creates a store together with an AWS client factory and a client
// manager for params. Statistics go to the sink set with WithStatistics, or
// to a fresh statistics.Counters.
func Open(params *s3types.ClientCreationParameters, opts ...s3types.StoreOption) (*Store, error) {
	var cfg s3types.StoreConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	sink := cfg.Statistics
	if sink == nil {
		sink = statistics.NewCounters()
	}

	manager, err := NewClientManager(
		NewAWSClientFactory(transferLogger(cfg.Logger)...),
		params,
		sink,
		WithManagerLogger(cfg.Logger),
	)
	if err != nil {
		return nil, err
	}

	return NewStore(manager, opts...)
}

// AcquireWriteCapacity blocks until n units of write capacity are granted
// and returns the time spent waiting. The wait is added to the
// store_io_rate_limited statistic.
func (s *Store) AcquireWriteCapacity(n int) time.Duration {
	d := s.cfg.WriteLimiter.Acquire(n)
	s.stats.RecordDuration(statistics.StoreIORateLimited, d)
	return d
}

// AcquireReadCapacity blocks until n units of read capacity are granted
// and returns the time spent waiting.
func (s *Store) AcquireReadCapacity(n int) time.Duration {
	d := s.cfg.ReadLimiter.Acquire(n)
	s.stats.RecordDuration(statistics.StoreIORateLimited, d)
	return d
}

// keysThrottledError ends a bulk delete attempt in which the store
// throttled some keys. It unwraps to ErrTooManyRequests so retry policies
// treat it as transient.
type keysThrottledError struct {
	failures []s3types.KeyFailure
}

func (e *keysThrottledError) Error() string {
	return fmt.Sprintf("%d keys throttled", len(e.failures))
}

func (e *keysThrottledError) Unwrap() error {
	return errors.ErrTooManyRequests
}

// DeleteObjects deletes one page of keys with the bulk delete API.
//
// Keys the store reports missing count as deleted. Keys rejected with a
// throttling code are resubmitted on the next attempt while the retry policy
// allows; other per-key failures are returned in the outcome's Failed list.
// A failure of the request as a whole is retried under the policy and
// returned untranslated once the policy gives up.
func (s *Store) DeleteObjects(ctx context.Context, req *s3types.DeleteRequest) (*s3types.DeleteOutcome, error) {
	const op = "deleteObjects"

	if !s.cfg.MultiObjectDelete {
		return nil, errors.NewError(op, errors.ErrUnsupportedOperation).
			WithBucket(s.bucket).
			WithMessage("multi-object delete is disabled")
	}
	if req == nil {
		return nil, errors.NewError(op, errors.ErrInvalidInput).WithBucket(s.bucket).WithMessage("request is required")
	}
	if err := validation.ValidateDeleteKeys(req.BaseKey, req.Keys, s.cfg.PageSize); err != nil {
		return nil, err
	}

	outcome := &s3types.DeleteOutcome{}
	if len(req.Keys) == 0 {
		return outcome, nil
	}

	client, err := s.manager.GetOrCreateSyncClient(ctx)
	if err != nil {
		return nil, err
	}

	pending := req.Keys
	err = retry.Do(ctx, s.cfg.RetryPolicy, func(int) error {
		outcome.WaitDuration += s.AcquireWriteCapacity(len(pending))

		output, err := client.DeleteObjects(ctx, delete.BuildInput(s.bucket, pending))
		if err != nil {
			if errors.IsThrottled(err) {
				s.stats.IncrementCounter(statistics.StoreIOThrottled, int64(len(pending)))
			}
			return err
		}

		s.stats.IncrementCounter(statistics.ObjectBulkDeleteRequest, 1)
		s.stats.IncrementCounter(statistics.ObjectDeleteRequest, 1)

		result := delete.Classify(output)
		s.stats.IncrementCounter(statistics.ObjectDeleteObjects, int64(len(result.Deleted)))
		outcome.Deleted = append(outcome.Deleted, result.Deleted...)
		outcome.Failed = append(outcome.Failed, result.Failed...)

		if len(result.NotFound) > 0 {
			s.logger.Debug("keys already absent", "keys", len(result.NotFound))
		}
		for _, marker := range result.Markers {
			s.logger.Debug("ignoring failed directory marker delete",
				"key", marker.Key, "code", marker.Code, "message", marker.Message)
		}

		if len(result.Throttled) == 0 {
			pending = nil
			return nil
		}

		s.stats.IncrementCounter(statistics.StoreIOThrottled, int64(len(pending)))
		pending = result.ThrottledKeys()
		return &keysThrottledError{failures: result.Throttled}
	}, s.notifyRetry(op))
	if err != nil {
		var throttled *keysThrottledError
		if stderrors.As(err, &throttled) {
			outcome.Failed = append(outcome.Failed, throttled.failures...)
			return outcome, nil
		}
		return nil, err
	}

	return outcome, nil
}

// DeleteObject deletes a single object. A not-found answer other than a
// missing bucket is treated as success and leaves the outcome's Response
// nil. Deleting the store root is rejected without a request.
func (s *Store) DeleteObject(ctx context.Context, key string) (*s3types.SingleDeleteOutcome, error) {
	const op = "deleteObject"

	if validation.IsRoot(key) {
		return nil, errors.NewObjectError(op, s.bucket, key, errors.ErrInvalidInput).
			WithMessage("cannot delete the store root")
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}

	client, err := s.manager.GetOrCreateSyncClient(ctx)
	if err != nil {
		return nil, err
	}

	s.stats.IncrementCounter(statistics.ObjectDeleteRequest, 1)

	outcome := &s3types.SingleDeleteOutcome{}
	err = retry.Do(ctx, s.cfg.RetryPolicy, func(int) error {
		outcome.WaitDuration += s.AcquireWriteCapacity(1)

		resp, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			if errors.IsNotFound(err) {
				s.logger.Debug("object already absent", "key", key)
				outcome.Response = nil
				return nil
			}
			if errors.IsThrottled(err) {
				s.stats.IncrementCounter(statistics.StoreIOThrottled, 1)
			}
			return err
		}

		outcome.Response = resp
		return nil
	}, s.notifyRetry(op))
	if err != nil {
		return nil, err
	}

	return outcome, nil
}

// DeleteKeys deletes any number of keys under baseKey, split into pages
// that are deleted in parallel. The outcomes of all pages are merged in key
// order. With multi-object delete disabled, keys are deleted one request at
// a time and provider failures are reported per key.
func (s *Store) DeleteKeys(ctx context.Context, baseKey string, keys []string) (*s3types.DeleteOutcome, error) {
	if err := validation.ValidateDeleteKeys(baseKey, keys, len(keys)); err != nil {
		return nil, err
	}

	outcome := &s3types.DeleteOutcome{}
	if len(keys) == 0 {
		return outcome, nil
	}

	if !s.cfg.MultiObjectDelete {
		return s.deleteOneByOne(ctx, keys)
	}

	pages := delete.SplitIntoPages(keys, s.cfg.PageSize)
	results := make([]*s3types.DeleteOutcome, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.DeleteConcurrency)
	for i, page := range pages {
		g.Go(func() error {
			result, err := s.DeleteObjects(gctx, &s3types.DeleteRequest{BaseKey: baseKey, Keys: page})
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, result := range results {
		outcome.Merge(result)
	}

	s.logger.Debug("deleted keys", "keys", len(keys), "pages", len(pages), "failed", len(outcome.Failed))
	return outcome, nil
}

func (s *Store) deleteOneByOne(ctx context.Context, keys []string) (*s3types.DeleteOutcome, error) {
	outcomes := make([]*s3types.DeleteOutcome, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.DeleteConcurrency)
	for i, key := range keys {
		g.Go(func() error {
			result, err := s.DeleteObject(gctx, key)
			switch {
			case err == nil:
				outcomes[i] = &s3types.DeleteOutcome{WaitDuration: result.WaitDuration, Deleted: []string{key}}
				return nil
			case errors.IsClosed(err), stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
				return err
			default:
				outcomes[i] = &s3types.DeleteOutcome{Failed: []s3types.KeyFailure{{
					Key:     key,
					Code:    failureCode(err),
					Message: err.Error(),
				}}}
				return nil
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	outcome := &s3types.DeleteOutcome{}
	for _, o := range outcomes {
		outcome.Merge(o)
	}
	return outcome, nil
}

// ClientManager returns the manager the store obtains clients from.
func (s *Store) ClientManager() *ClientManager {
	return s.manager
}

// Bucket returns the bucket the store deletes from.
func (s *Store) Bucket() string {
	return s.bucket
}

// Statistics returns the sink receiving store statistics.
//
//nolint:ireturn // callers only need the Sink contract
func (s *Store) Statistics() statistics.Sink {
	return s.stats
}

// Close closes the client manager.
func (s *Store) Close() error {
	return s.manager.Close()
}

func (s *Store) notifyRetry(op string) retry.Notify {
	return func(err error, attempt int, delay time.Duration) {
		s.stats.IncrementCounter(statistics.StoreIORetry, 1)
		s.logger.Debug("retrying request",
			"op", op, "attempt", attempt, "delay", delay, "error", err)
	}
}

// failureCode returns the service error code of err, or the store's own
// classification when err carries none.
func failureCode(err error) string {
	if code := errors.APIErrorCode(err); code != "" {
		return code
	}
	return string(errors.CodeOf(err))
}

// transferLogger forwards the store logger to transfer managers.
func transferLogger(logger *slog.Logger) []transfer.Option {
	if logger == nil {
		return nil
	}
	return []transfer.Option{transfer.WithLogger(logger)}
}
