package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/s3types"
)

const (
	localStackImage  = "localstack/localstack:latest"
	localStackRegion = "us-east-1"
)

// LocalStack is a running LocalStack container with one test bucket.
type LocalStack struct {
	container *localstack.LocalStackContainer
	endpoint  string

	// Bucket is the bucket created for the test
	Bucket string

	// Admin is a plain SDK client for seeding and inspecting the bucket
	Admin *s3.Client
}

// StartLocalStack starts a container, creates a fresh bucket and registers
// the container's termination with t.Cleanup. The test is skipped in short
// mode.
func StartLocalStack(t *testing.T) *LocalStack {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := localstack.Run(ctx, localStackImage,
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/_localstack/health").
				WithPort("4566").
				WithStartupTimeout(2*time.Minute),
		),
	)
	if err != nil {
		t.Fatalf("failed to start LocalStack container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate LocalStack container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "4566")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	ls := &LocalStack{
		container: container,
		endpoint:  fmt.Sprintf("http://%s:%s", host, port.Port()),
		Bucket:    GenerateTestBucketName("s3store"),
	}

	ls.Admin = s3.New(s3.Options{
		Region:       localStackRegion,
		Credentials:  credentials.NewStaticCredentialsProvider("test", "test", ""),
		BaseEndpoint: aws.String(ls.endpoint),
		UsePathStyle: true,
	})

	if _, err := ls.Admin.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(ls.Bucket)}); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	return ls
}

// Params returns client creation parameters addressing the test bucket.
func (ls *LocalStack) Params() *s3types.ClientCreationParameters {
	return &s3types.ClientCreationParameters{
		URI:             "s3://" + ls.Bucket,
		Region:          localStackRegion,
		Endpoint:        ls.endpoint,
		PathStyle:       true,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		RequestTimeout:  30 * time.Second,
	}
}

// PutObjects writes a small object under each key.
func (ls *LocalStack) PutObjects(ctx context.Context, t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		_, err := ls.Admin.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(ls.Bucket),
			Key:    aws.String(key),
			Body:   strings.NewReader(key),
		})
		if err != nil {
			t.Fatalf("failed to put %s: %v", key, err)
		}
	}
}

// Exists reports whether key is present in the test bucket.
func (ls *LocalStack) Exists(ctx context.Context, t *testing.T, key string) bool {
	t.Helper()
	_, err := ls.Admin.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(ls.Bucket),
		Key:    aws.String(key),
	})
	return err == nil
}
