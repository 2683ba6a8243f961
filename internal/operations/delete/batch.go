// Package delete builds bulk delete requests and classifies their per-key
// results. It performs no I/O; the store drives requests through its
// limiter, retry policy and client.
package delete

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/s3types"
)

// Classification sorts the per-key results of one bulk delete response.
type Classification struct {
	// Deleted are keys the store confirmed removed
	Deleted []string

	// NotFound are keys reported missing; they count as deleted
	NotFound []string

	// Throttled are keys rejected by throttling; they may be resubmitted
	Throttled []s3types.KeyFailure

	// Markers are directory markers (keys ending in "/") that failed; they
	// are not reported as failures
	Markers []s3types.KeyFailure

	// Failed are keys that could not be deleted for any other reason
	Failed []s3types.KeyFailure
}

// ThrottledKeys returns the keys of Throttled in response order.
func (c *Classification) ThrottledKeys() []string {
	keys := make([]string, 0, len(c.Throttled))
	for _, f := range c.Throttled {
		keys = append(keys, f.Key)
	}
	return keys
}

// BuildInput builds a non-quiet bulk delete request so that the response
// lists every deleted key as well as every failure.
func BuildInput(bucket string, keys []string) *s3.DeleteObjectsInput {
	objects := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		objects = append(objects, types.ObjectIdentifier{
			Key: aws.String(key),
		})
	}

	return &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(false),
		},
	}
}

// Classify sorts the results of a bulk delete response.
func Classify(output *s3.DeleteObjectsOutput) *Classification {
	c := &Classification{}
	if output == nil {
		return c
	}

	for _, deleted := range output.Deleted {
		c.Deleted = append(c.Deleted, aws.ToString(deleted.Key))
	}

	for _, e := range output.Errors {
		failure := s3types.KeyFailure{
			Key:     aws.ToString(e.Key),
			Code:    aws.ToString(e.Code),
			Message: aws.ToString(e.Message),
		}

		switch {
		case errors.IsNotFoundCode(failure.Code):
			c.NotFound = append(c.NotFound, failure.Key)
		case errors.IsThrottleCode(failure.Code):
			c.Throttled = append(c.Throttled, failure)
		case strings.HasSuffix(failure.Key, "/"):
			c.Markers = append(c.Markers, failure)
		default:
			c.Failed = append(c.Failed, failure)
		}
	}

	return c
}

// SplitIntoPages splits keys into pages of at most pageSize keys.
func SplitIntoPages(keys []string, pageSize int) [][]string {
	if pageSize <= 0 {
		pageSize = s3types.MaxPageSize
	}

	pages := make([][]string, 0, (len(keys)+pageSize-1)/pageSize)
	for i := 0; i < len(keys); i += pageSize {
		end := min(i+pageSize, len(keys))
		pages = append(pages, keys[i:end])
	}

	return pages
}
