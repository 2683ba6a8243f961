package testutil

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// APIError returns a service error carrying the given S3 error code, the
// shape the AWS SDK produces for failed requests.
func APIError(code string) error {
	return &smithy.GenericAPIError{
		Code:    code,
		Message: code + " (test)",
		Fault:   smithy.FaultServer,
	}
}

// RequestedKeys returns the keys of a bulk delete request in request order.
func RequestedKeys(params *s3.DeleteObjectsInput) []string {
	if params == nil || params.Delete == nil {
		return nil
	}
	keys := make([]string, 0, len(params.Delete.Objects))
	for _, obj := range params.Delete.Objects {
		keys = append(keys, aws.ToString(obj.Key))
	}
	return keys
}

// DeleteObjectsOutput builds a bulk delete response confirming deleted and
// reporting each entry of failed as a key mapped to its error code.
func DeleteObjectsOutput(deleted []string, failed map[string]string) *s3.DeleteObjectsOutput {
	out := &s3.DeleteObjectsOutput{}
	for _, key := range deleted {
		out.Deleted = append(out.Deleted, types.DeletedObject{Key: aws.String(key)})
	}
	for key, code := range failed {
		out.Errors = append(out.Errors, types.Error{
			Key:     aws.String(key),
			Code:    aws.String(code),
			Message: aws.String(code + " (test)"),
		})
	}
	return out
}

// GenerateRandomData returns size pseudo-random bytes. The same size always
// yields the same bytes.
func GenerateRandomData(size int) []byte {
	data := make([]byte, size)
	r := rand.New(rand.NewSource(int64(size)))
	_, _ = r.Read(data)
	return data
}

var keySeq atomic.Int64

// GenerateTestKey returns a key under prefix that is unique within the test
// binary.
func GenerateTestKey(prefix string) string {
	return path.Join(prefix, fmt.Sprintf("object-%d-%d", os.Getpid(), keySeq.Add(1)))
}

// GenerateTestBucketName returns a DNS-compliant bucket name starting with
// prefix.
func GenerateTestBucketName(prefix string) string {
	name := strings.ToLower(strings.ReplaceAll(prefix, "_", "-"))
	name = fmt.Sprintf("%s-%d-%d", name, time.Now().Unix(), rand.Int31n(10000))
	if len(name) > 63 {
		name = strings.TrimRight(name[:63], "-")
	}
	return name
}

// ETag returns the quoted MD5 entity tag S3 reports for a single PUT of data.
func ETag(data []byte) string {
	sum := md5.Sum(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// GetObjectOutput returns a GetObject response serving data.
func GetObjectOutput(data []byte, contentType string) *s3.GetObjectOutput {
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		ETag:          aws.String(ETag(data)),
	}
}
