package s3store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/internal/lazy"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/s3types"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/statistics"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/transfer"
)

// ClientManager creates the clients of one mounted bucket on demand and
// closes them together.
//
// Thread Safety: all methods are safe for concurrent use. The accessors and
// Close share one mutex, so a client is never created while the manager is
// being closed, and each client is created at most once.
type ClientManager struct {
	factory ClientFactory
	params  *s3types.ClientCreationParameters
	stats   statistics.Sink
	logger  *slog.Logger

	mu     sync.Mutex
	closed atomic.Bool

	syncClient      *lazy.Reference[s3api.Client]
	asyncClient     *lazy.Reference[s3api.Client]
	transferManager *lazy.Reference[*transfer.Manager]
}

// closeable is the part of lazy.Reference used by Close.
type closeable interface {
	IsSet() bool
	Close() error
	Name() string
}

// NewClientManager creates a manager. No client is created until one is
// requested.
func NewClientManager(
	factory ClientFactory,
	params *s3types.ClientCreationParameters,
	sink statistics.Sink,
	opts ...s3types.ManagerOption,
) (*ClientManager, error) {
	const op = "newClientManager"
	switch {
	case factory == nil:
		return nil, errors.NewError(op, errors.ErrInvalidInput).WithMessage("client factory is required")
	case params == nil:
		return nil, errors.NewError(op, errors.ErrInvalidInput).WithMessage("creation parameters are required")
	case params.URI == "":
		return nil, errors.NewError(op, errors.ErrInvalidInput).WithMessage("store URI is required")
	case sink == nil:
		return nil, errors.NewError(op, errors.ErrInvalidInput).WithMessage("statistics sink is required")
	}

	cfg := &s3types.ManagerConfig{
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	m := &ClientManager{
		factory: factory,
		params:  params,
		stats:   sink,
		logger:  cfg.Logger.With("uri", params.URI),
	}

	m.syncClient = lazy.NewReference("sync client", func(ctx context.Context) (s3api.Client, error) {
		return statistics.TrackDuration(m.stats, statistics.StoreClientCreation, func() (s3api.Client, error) {
			return nonNil(m.factory.CreateSyncClient(ctx, m.params))
		})
	})

	m.asyncClient = lazy.NewReference("async client", func(ctx context.Context) (s3api.Client, error) {
		return statistics.TrackDuration(m.stats, statistics.StoreClientCreation, func() (s3api.Client, error) {
			return nonNil(m.factory.CreateAsyncClient(ctx, m.params))
		})
	})

	// the async client is created outside the duration recorded for the
	// transfer manager
	m.transferManager = lazy.NewReference("transfer manager", func(ctx context.Context) (*transfer.Manager, error) {
		async, err := m.asyncClient.Eval(ctx)
		if err != nil {
			return nil, err
		}
		return statistics.TrackDuration(m.stats, statistics.StoreClientCreation, func() (*transfer.Manager, error) {
			tm, err := m.factory.CreateTransferManager(async, m.params)
			if err == nil && tm == nil {
				err = fmt.Errorf("factory returned no transfer manager")
			}
			return tm, err
		})
	})

	return m, nil
}

// GetOrCreateSyncClient returns the synchronous client, creating it on first use.
//
//nolint:ireturn // clients are handed out through the s3api.Client contract
func (m *ClientManager) GetOrCreateSyncClient(ctx context.Context) (s3api.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen("getOrCreateSyncClient"); err != nil {
		return nil, err
	}

	client, err := m.syncClient.Eval(ctx)
	if err != nil {
		return nil, errors.NewError("getOrCreateSyncClient", err).WithBucket(m.params.Bucket())
	}
	return client, nil
}

// GetOrCreateAsyncClient returns the async client, creating it on first use.
//
//nolint:ireturn // clients are handed out through the s3api.Client contract
func (m *ClientManager) GetOrCreateAsyncClient(ctx context.Context) (s3api.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen("getOrCreateAsyncClient"); err != nil {
		return nil, err
	}

	client, err := m.asyncClient.Eval(ctx)
	if err != nil {
		return nil, errors.NewError("getOrCreateAsyncClient", err).WithBucket(m.params.Bucket())
	}
	return client, nil
}

// GetOrCreateTransferManager returns the transfer manager, creating it and
// the async client it depends on as needed.
func (m *ClientManager) GetOrCreateTransferManager(ctx context.Context) (*transfer.Manager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen("getOrCreateTransferManager"); err != nil {
		return nil, err
	}

	tm, err := m.transferManager.Eval(ctx)
	if err != nil {
		return nil, errors.NewError("getOrCreateTransferManager", err).WithBucket(m.params.Bucket())
	}
	return tm, nil
}

// Close closes every client that was created, in parallel, and waits for
// them. Close failures are logged, never returned. Only the first call does
// any work.
//
// Close holds the manager's mutex until teardown finishes, and closing the
// transfer manager waits for in-flight transfers. Concurrent GetOrCreate
// calls block for that long and then fail with ErrClosed.
func (m *ClientManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}

	var g multierror.Group
	tasks := 0
	for _, ref := range []closeable{m.transferManager, m.asyncClient, m.syncClient} {
		if !ref.IsSet() {
			continue
		}
		tasks++
		m.logger.Debug("closing client", "client", ref.Name())
		g.Go(ref.Close)
	}

	if merr := g.Wait(); merr != nil {
		for _, err := range merr.Errors {
			m.logger.Warn("failed to close client", "error", err)
		}
	}

	m.logger.Debug("client manager closed", "closed_clients", tasks)
	return nil
}

// IsClosed reports whether Close has been called.
func (m *ClientManager) IsClosed() bool {
	return m.closed.Load()
}

// URI returns the store URI the clients are created for.
func (m *ClientManager) URI() string {
	return m.params.URI
}

// Statistics returns the sink that receives client creation durations.
//
//nolint:ireturn // callers only need the Sink contract
func (m *ClientManager) Statistics() statistics.Sink {
	return m.stats
}

// String renders the manager's state for logs.
func (m *ClientManager) String() string {
	return fmt.Sprintf("ClientManager{uri=%s, closed=%t, %s, %s, %s}",
		m.params.URI, m.closed.Load(), m.syncClient, m.asyncClient, m.transferManager)
}

// checkOpen must be called with m.mu held.
func (m *ClientManager) checkOpen(op string) error {
	if m.closed.Load() {
		return errors.NewError(op, errors.ErrClosed).WithBucket(m.params.Bucket())
	}
	return nil
}

// nonNil turns a factory that returned neither a client nor an error into a
// failed creation, keeping the reference unset. A nil *awsClient wrapped in
// the interface counts as no client; other typed nils are the factory's
// responsibility.
//
//nolint:ireturn // passes through the factory's return values
func nonNil(client s3api.Client, err error) (s3api.Client, error) {
	if err != nil {
		return client, err
	}
	if c, ok := client.(*awsClient); client == nil || (ok && c == nil) {
		return nil, fmt.Errorf("factory returned no client")
	}
	return client, nil
}
