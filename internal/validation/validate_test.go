package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/errors"
)

func TestIsRoot(t *testing.T) {
	assert.True(t, IsRoot(""))
	assert.True(t, IsRoot("/"))
	assert.False(t, IsRoot("a"))
	assert.False(t, IsRoot("//"))
}

func TestValidateBucketName(t *testing.T) {
	tests := []struct {
		name      string
		bucket    string
		wantError bool
		errMsg    string
	}{
		{"valid_simple", "my-bucket", false, ""},
		{"valid_with_dots", "my.bucket", false, ""},
		{"valid_min_length", "abc", false, ""},
		{"valid_max_length", strings.Repeat("a", 63), false, ""},

		{"empty", "", true, "bucket name cannot be empty"},
		{"too_short", "ab", true, "bucket name must be between 3 and 63 characters long"},
		{"too_long", strings.Repeat("a", 64), true, "bucket name must be between 3 and 63 characters long"},
		{"uppercase", "MyBucket", true, "bucket name can only contain lowercase letters, numbers, dots, and hyphens"},
		{"starts_with_hyphen", "-bucket", true, "bucket name cannot start or end with a hyphen or dot"},
		{"ends_with_dot", "bucket.", true, "bucket name cannot start or end with a hyphen or dot"},
		{"double_dots", "my..bucket", true, "bucket name cannot contain two adjacent periods"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBucketName(tt.bucket)
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, errors.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateObjectKey(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		wantError bool
		errMsg    string
	}{
		{"valid_simple", "file.txt", false, ""},
		{"valid_nested", "dir/sub/file.txt", false, ""},
		{"valid_dots_in_name", "file..txt", false, ""},
		{"valid_directory_marker", "dir/", false, ""},
		{"valid_unicode", "données/été.csv", false, ""},
		{"valid_max_length", strings.Repeat("a", 1024), false, ""},

		{"empty", "", true, "object key cannot be empty"},
		{"absolute", "/file.txt", true, "object key cannot be absolute"},
		{"too_long", strings.Repeat("a", 1025), true, "object key cannot exceed 1024 bytes"},
		{"traversal", "dir/../secret", true, "object key cannot contain path traversal segments"},
		{"control_character", "file\x00.txt", true, "object key cannot contain control characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateObjectKey(tt.key)
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, errors.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateUnderBase(t *testing.T) {
	assert.NoError(t, ValidateUnderBase("", "any/key"))
	assert.NoError(t, ValidateUnderBase("/", "any/key"))
	assert.NoError(t, ValidateUnderBase("dir/", "dir/file"))
	assert.NoError(t, ValidateUnderBase("dir", "dir/file"))

	for _, tc := range []struct{ base, key string }{
		{"data", "database/x"},
		{"data/", "database/x"},
		{"data", "data"},
	} {
		assert.ErrorIs(t, ValidateUnderBase(tc.base, tc.key), errors.ErrInvalidInput, "%s under %s", tc.key, tc.base)
	}

	err := ValidateUnderBase("dir/", "other/file")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	assert.Contains(t, err.Error(), `not under "dir/"`)
}

func TestValidateDeleteKeys(t *testing.T) {
	tests := []struct {
		name      string
		baseKey   string
		keys      []string
		pageSize  int
		wantError string
	}{
		{"valid", "dir/", []string{"dir/a", "dir/b"}, 10, ""},
		{"empty", "", nil, 10, ""},
		{"exactly_page_size", "", []string{"a", "b"}, 2, ""},
		{"over_page_size", "", []string{"a", "b", "c"}, 2, "3 keys exceed the page size of 2"},
		{"duplicate", "", []string{"a", "b", "a"}, 10, "duplicate object key"},
		{"outside_base", "dir/", []string{"dir/a", "x"}, 10, "not under"},
		{"sibling_prefix", "data", []string{"database/x"}, 10, "not under"},
		{"empty_key", "", []string{"a", ""}, 10, "object key cannot be empty"},
		{"absolute_key", "", []string{"/a"}, 10, "object key cannot be absolute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDeleteKeys(tt.baseKey, tt.keys, tt.pageSize)
			if tt.wantError == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, errors.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantError)
		})
	}
}
