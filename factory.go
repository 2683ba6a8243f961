package s3store

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/s3types"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/transfer"
)

// ClientFactory creates the clients owned by a ClientManager. Each method is
// called at most once per successful creation. A method that fails must
// return an untyped nil client together with its error, and a method that
// succeeds must return a non-nil client.
type ClientFactory interface {
	// CreateSyncClient creates the client used for metadata and delete requests.
	CreateSyncClient(ctx context.Context, params *s3types.ClientCreationParameters) (s3api.Client, error)

	// CreateAsyncClient creates the client used for bulk transfers.
	CreateAsyncClient(ctx context.Context, params *s3types.ClientCreationParameters) (s3api.Client, error)

	// CreateTransferManager creates a transfer manager on top of the async client.
	CreateTransferManager(async s3api.Client, params *s3types.ClientCreationParameters) (*transfer.Manager, error)
}

// AWSClientFactory creates clients with the AWS SDK.
//
// Every client gets its own HTTP transport so that closing one client does
// not drop the connections of another.
type AWSClientFactory struct {
	transferOpts []transfer.Option
}

// NewAWSClientFactory creates a factory. opts are applied to every transfer
// manager after the settings derived from the creation parameters.
func NewAWSClientFactory(opts ...transfer.Option) *AWSClientFactory {
	return &AWSClientFactory{transferOpts: opts}
}

// CreateSyncClient creates a client whose requests are bounded by
// params.RequestTimeout. Unless params.MaxAttempts is set, the client makes
// one attempt per request and leaves retries to the store's retry policy.
//
//nolint:ireturn // the manager stores clients through the s3api.Client contract
func (f *AWSClientFactory) CreateSyncClient(
	ctx context.Context,
	params *s3types.ClientCreationParameters,
) (s3api.Client, error) {
	cfg, err := loadAWSConfig(ctx, params)
	if err != nil {
		return nil, errors.NewError("createSyncClient", err).WithBucket(params.Bucket())
	}

	transport := newTransport(0)
	return newClient(cfg, params, transport, params.RequestTimeout, false), nil
}

// CreateAsyncClient creates a client with a connection pool sized for
// parallel part transfers and no per-request timeout. It keeps the SDK's
// standard retryer.
//
//nolint:ireturn // the manager stores clients through the s3api.Client contract
func (f *AWSClientFactory) CreateAsyncClient(
	ctx context.Context,
	params *s3types.ClientCreationParameters,
) (s3api.Client, error) {
	cfg, err := loadAWSConfig(ctx, params)
	if err != nil {
		return nil, errors.NewError("createAsyncClient", err).WithBucket(params.Bucket())
	}

	maxConns := params.MaxConnections
	if maxConns <= 0 {
		maxConns = s3types.DefaultMaxConnections
	}

	transport := newTransport(maxConns)
	return newClient(cfg, params, transport, 0, true), nil
}

// CreateTransferManager creates a transfer manager on top of async.
func (f *AWSClientFactory) CreateTransferManager(
	async s3api.Client,
	params *s3types.ClientCreationParameters,
) (*transfer.Manager, error) {
	opts := []transfer.Option{
		transfer.WithPartSize(params.PartSize),
		transfer.WithConcurrency(params.TransferConcurrency),
		transfer.WithMultipartThreshold(params.MultipartThreshold),
	}
	opts = append(opts, f.transferOpts...)

	return transfer.New(async, opts...)
}

// awsClient is an SDK client that owns its HTTP transport.
type awsClient struct {
	*s3.Client
	transport *http.Transport
}

// Close releases the client's idle connections. In-flight requests are not
// interrupted.
func (c *awsClient) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

func loadAWSConfig(ctx context.Context, params *s3types.ClientCreationParameters) (aws.Config, error) {
	if params.AWSConfig != nil {
		return params.AWSConfig.Copy(), nil
	}

	var opts []func(*config.LoadOptions) error
	if params.Region != "" {
		opts = append(opts, config.WithRegion(params.Region))
	}

	switch {
	case params.Credentials != nil:
		opts = append(opts, config.WithCredentialsProvider(params.Credentials))
	case params.AccessKeyID != "":
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(params.AccessKeyID, params.SecretAccessKey, params.SessionToken),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}
	return cfg, nil
}

func newTransport(maxIdleConnsPerHost int) *http.Transport {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		base = &http.Transport{}
	}
	transport := base.Clone()
	if maxIdleConnsPerHost > 0 {
		transport.MaxIdleConns = maxIdleConnsPerHost
		transport.MaxIdleConnsPerHost = maxIdleConnsPerHost
	}
	return transport
}

func newClient(
	cfg aws.Config,
	params *s3types.ClientCreationParameters,
	transport *http.Transport,
	timeout time.Duration,
	sdkRetries bool,
) *awsClient {
	httpClient := &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = params.PathStyle
		o.HTTPClient = httpClient
		if params.Endpoint != "" {
			o.BaseEndpoint = aws.String(params.Endpoint)
		}
		switch {
		case params.MaxAttempts > 0:
			o.RetryMaxAttempts = params.MaxAttempts
		case !sdkRetries:
			o.Retryer = aws.NopRetryer{}
			o.RetryMaxAttempts = 0
		}
	})

	return &awsClient{Client: client, transport: transport}
}
