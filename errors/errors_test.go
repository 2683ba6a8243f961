package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

type statusError struct {
	status int
}

func (e *statusError) Error() string       { return fmt.Sprintf("http %d", e.status) }
func (e *statusError) HTTPStatusCode() int { return e.status }

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "bucket and key",
			err:  NewObjectError("deleteObject", "bucket", "a/b", ErrInvalidInput),
			want: "s3store.deleteObject bucket/a/b: s3store: invalid input",
		},
		{
			name: "bucket only",
			err:  NewError("deleteObjects", ErrUnsupportedOperation).WithBucket("bucket"),
			want: "s3store.deleteObjects bucket bucket: s3store: unsupported operation",
		},
		{
			name: "key only",
			err:  NewError("validateObjectKey", ErrInvalidInput).WithKey("k"),
			want: "s3store.validateObjectKey object k: s3store: invalid input",
		},
		{
			name: "no context",
			err:  NewError("getOrCreateSyncClient", ErrClosed),
			want: "s3store.getOrCreateSyncClient: s3store: client manager is closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_WithMessageKeepsSentinel(t *testing.T) {
	err := NewError("deleteObjects", ErrInvalidInput).WithMessage("too many keys")

	assert.True(t, IsInvalidInput(err))
	assert.Contains(t, err.Error(), "too many keys")
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		notFound       bool
		bucketNotFound bool
		throttled      bool
		accessDenied   bool
	}{
		{name: "nil"},
		{
			name:     "no such key api error",
			err:      &smithy.GenericAPIError{Code: "NoSuchKey", Message: "gone"},
			notFound: true,
		},
		{
			name:     "typed no such key",
			err:      &types.NoSuchKey{},
			notFound: true,
		},
		{
			name:           "no such bucket is not an object not-found",
			err:            &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "no bucket"},
			bucketNotFound: true,
		},
		{
			name:           "typed no such bucket",
			err:            fmt.Errorf("wrapped: %w", &types.NoSuchBucket{}),
			bucketNotFound: true,
		},
		{
			name:     "bare 404",
			err:      &statusError{status: 404},
			notFound: true,
		},
		{
			name:      "slow down",
			err:       &smithy.GenericAPIError{Code: "SlowDown", Message: "reduce rate"},
			throttled: true,
		},
		{
			name:      "bare 503",
			err:       &statusError{status: 503},
			throttled: true,
		},
		{
			name:      "sentinel throttle",
			err:       fmt.Errorf("ctx: %w", ErrTooManyRequests),
			throttled: true,
		},
		{
			name:         "access denied",
			err:          &smithy.GenericAPIError{Code: "AccessDenied", Message: "no"},
			accessDenied: true,
		},
		{
			name: "plain error",
			err:  errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, IsNotFound(tt.err), "IsNotFound")
			assert.Equal(t, tt.bucketNotFound, IsBucketNotFound(tt.err), "IsBucketNotFound")
			assert.Equal(t, tt.throttled, IsThrottled(tt.err), "IsThrottled")
			assert.Equal(t, tt.accessDenied, IsAccessDenied(tt.err), "IsAccessDenied")
		})
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
	assert.Equal(t, CodeClosed, CodeOf(NewError("op", ErrClosed)))
	assert.Equal(t, CodeInvalidInput, CodeOf(NewError("op", ErrInvalidInput)))
	assert.Equal(t, CodeUnsupported, CodeOf(ErrUnsupportedOperation))
	assert.Equal(t, CodeBucketNotFound, CodeOf(&smithy.GenericAPIError{Code: "NoSuchBucket"}))
	assert.Equal(t, CodeNotFound, CodeOf(&smithy.GenericAPIError{Code: "NoSuchKey"}))
	assert.Equal(t, CodeRateLimit, CodeOf(&smithy.GenericAPIError{Code: "SlowDown"}))
	assert.Equal(t, CodeForbidden, CodeOf(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.Equal(t, CodeProvider, CodeOf(errors.New("boom")))
}

func TestCodeSets(t *testing.T) {
	assert.True(t, IsNotFoundCode("NoSuchKey"))
	assert.False(t, IsNotFoundCode("NoSuchBucket"))
	assert.True(t, IsThrottleCode("SlowDown"))
	assert.False(t, IsThrottleCode("InternalError"))
	assert.Equal(t, 404, HTTPStatus(fmt.Errorf("w: %w", &statusError{status: 404})))
	assert.Equal(t, 0, HTTPStatus(errors.New("x")))
}
