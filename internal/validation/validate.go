// Package validation provides centralized input validation logic.
// This includes bucket name validation, object key validation and the key
// set checks applied to bulk deletes.
//
// All inputs are validated before a request is sent so that malformed keys
// fail fast with ErrInvalidInput instead of consuming capacity and retries.
package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/errors"
)

// maxKeyLength is the longest object key S3 accepts, in bytes.
const maxKeyLength = 1024

// IsRoot reports whether key addresses the bucket root.
func IsRoot(key string) bool {
	return key == "" || key == "/"
}

// ValidateBucketName validates that a bucket name is DNS-compliant according to AWS S3 rules.
func ValidateBucketName(bucket string) error {
	if bucket == "" {
		return invalidBucket(bucket, "bucket name cannot be empty")
	}

	// Bucket names must be between 3 and 63 characters long
	if len(bucket) < 3 || len(bucket) > 63 {
		return invalidBucket(bucket, "bucket name must be between 3 and 63 characters long")
	}

	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return invalidBucket(bucket, "bucket name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}

	first, last := bucket[0], bucket[len(bucket)-1]
	if first == '-' || first == '.' || last == '-' || last == '.' {
		return invalidBucket(bucket, "bucket name cannot start or end with a hyphen or dot")
	}

	if strings.Contains(bucket, "..") {
		return invalidBucket(bucket, "bucket name cannot contain two adjacent periods")
	}

	return nil
}

// ValidateObjectKey validates that key can be sent to S3 as an object key.
// Keys must be relative: a leading "/" would address a different object than
// the caller meant.
func ValidateObjectKey(key string) error {
	if key == "" {
		return invalidKey(key, "object key cannot be empty")
	}

	if strings.HasPrefix(key, "/") {
		return invalidKey(key, "object key cannot be absolute")
	}

	if len(key) > maxKeyLength {
		return invalidKey(key, fmt.Sprintf("object key cannot exceed %d bytes", maxKeyLength))
	}

	if hasPathTraversal(key) {
		return invalidKey(key, "object key cannot contain path traversal segments")
	}

	if hasControlCharacters(key) {
		return invalidKey(key, "object key cannot contain control characters")
	}

	return nil
}

// ValidateUnderBase checks that key lives under the directory baseKey. An
// empty baseKey is the bucket root and contains every key. "data" and
// "data/" both contain "data/x" but not "database/x".
func ValidateUnderBase(baseKey, key string) error {
	if IsRoot(baseKey) {
		return nil
	}
	dir := baseKey
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	if !strings.HasPrefix(key, dir) {
		return invalidKey(key, fmt.Sprintf("object key is not under %q", baseKey))
	}
	return nil
}

// ValidateDeleteKeys validates one page of bulk delete keys: at most
// pageSize distinct, valid keys, all under baseKey.
func ValidateDeleteKeys(baseKey string, keys []string, pageSize int) error {
	if len(keys) > pageSize {
		return errors.NewError("validateDeleteKeys", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("%d keys exceed the page size of %d", len(keys), pageSize))
	}

	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if err := ValidateObjectKey(key); err != nil {
			return err
		}
		if err := ValidateUnderBase(baseKey, key); err != nil {
			return err
		}
		if _, dup := seen[key]; dup {
			return invalidKey(key, "duplicate object key")
		}
		seen[key] = struct{}{}
	}

	return nil
}

func invalidBucket(bucket, msg string) error {
	return errors.NewError("validateBucketName", errors.ErrInvalidInput).
		WithBucket(bucket).
		WithMessage(msg)
}

func invalidKey(key, msg string) error {
	return errors.NewError("validateObjectKey", errors.ErrInvalidInput).
		WithKey(key).
		WithMessage(msg)
}

// isValidBucketChar checks if a character is valid in a bucket name
func isValidBucketChar(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z') || char == '.' || char == '-'
}

// hasPathTraversal reports whether any "/"-separated segment of key is "..".
// Names such as "file..txt" are legal S3 keys and pass.
func hasPathTraversal(key string) bool {
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return true
		}
	}
	return false
}

// hasControlCharacters checks for control characters in the key
func hasControlCharacters(key string) bool {
	for _, char := range key {
		if unicode.IsControl(char) {
			return true
		}
	}
	return false
}
