package errors

import stderrors "errors"

// ErrorCode identifies the kind of a store failure.
// Codes are string-based for debuggability and log correlation.
type ErrorCode string

const (
	// CodeClosed indicates an operation was attempted after the client manager was closed.
	CodeClosed ErrorCode = "CLOSED"

	// CodeInvalidInput indicates a malformed request, a root delete or a missing constructor argument.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeUnsupported indicates the operation is not available for the target path.
	CodeUnsupported ErrorCode = "UNSUPPORTED_OPERATION"

	// CodeNotFound indicates an object does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeBucketNotFound indicates the bucket does not exist.
	CodeBucketNotFound ErrorCode = "BUCKET_NOT_FOUND"

	// CodeRateLimit indicates the store throttled the request.
	CodeRateLimit ErrorCode = "RATE_LIMIT_EXCEEDED"

	// CodeForbidden indicates the credentials lack permission for the operation.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// CodeProvider indicates an untranslated failure from the object store client.
	CodeProvider ErrorCode = "PROVIDER_FAILURE"
)

// CodeOf returns the ErrorCode that best describes err.
// Sentinel errors map to their own code; AWS errors are classified by their
// service error code; anything else is a provider failure.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case stderrors.Is(err, ErrClosed):
		return CodeClosed
	case stderrors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case stderrors.Is(err, ErrUnsupportedOperation):
		return CodeUnsupported
	case IsBucketNotFound(err):
		return CodeBucketNotFound
	case IsNotFound(err):
		return CodeNotFound
	case IsThrottled(err):
		return CodeRateLimit
	case IsAccessDenied(err):
		return CodeForbidden
	default:
		return CodeProvider
	}
}
