//go:build integration
// +build integration

package s3store_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/s3types"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/statistics"
)

// TestIntegrationDelete exercises the store against LocalStack.
func TestIntegrationDelete(t *testing.T) {
	ctx := context.Background()
	ls := testutil.StartLocalStack(t)

	stats := statistics.NewCounters()
	store, err := s3store.Open(ls.Params(), s3store.WithStatistics(stats), s3store.WithPageSize(10))
	require.NoError(t, err)
	defer store.Close()

	t.Run("Delete single object", func(t *testing.T) {
		ls.PutObjects(ctx, t, "single/a")

		outcome, err := store.DeleteObject(ctx, "single/a")
		require.NoError(t, err)
		assert.NotNil(t, outcome.Response)
		assert.False(t, ls.Exists(ctx, t, "single/a"))
	})

	t.Run("Delete missing object", func(t *testing.T) {
		_, err := store.DeleteObject(ctx, "single/missing")
		assert.NoError(t, err)
	})

	t.Run("Delete multiple objects", func(t *testing.T) {
		ls.PutObjects(ctx, t, "bulk/a", "bulk/b")

		outcome, err := store.DeleteObjects(ctx, &s3types.DeleteRequest{
			BaseKey: "bulk/",
			Keys:    []string{"bulk/a", "bulk/b", "bulk/missing"},
		})
		require.NoError(t, err)

		assert.Empty(t, outcome.Failed)
		assert.False(t, ls.Exists(ctx, t, "bulk/a"))
		assert.False(t, ls.Exists(ctx, t, "bulk/b"))
		assert.Positive(t, stats.Counter(statistics.ObjectBulkDeleteRequest))
	})

	t.Run("Delete keys across pages", func(t *testing.T) {
		keys := make([]string, 25)
		for i := range keys {
			keys[i] = fmt.Sprintf("paged/%02d", i)
		}
		ls.PutObjects(ctx, t, keys...)

		outcome, err := store.DeleteKeys(ctx, "paged/", keys)
		require.NoError(t, err)

		assert.Empty(t, outcome.Failed)
		for _, key := range keys {
			assert.False(t, ls.Exists(ctx, t, key), key)
		}
	})

	t.Run("Missing bucket", func(t *testing.T) {
		params := ls.Params()
		params.URI = "s3://" + testutil.GenerateTestBucketName("missing")
		other, err := s3store.Open(params)
		require.NoError(t, err)
		defer other.Close()

		_, err = other.DeleteObject(ctx, "any")
		require.Error(t, err)
		assert.True(t, errors.IsBucketNotFound(err))
	})
}

// TestIntegrationTransfer round-trips an object through the transfer manager.
func TestIntegrationTransfer(t *testing.T) {
	ctx := context.Background()
	ls := testutil.StartLocalStack(t)

	store, err := s3store.Open(ls.Params())
	require.NoError(t, err)
	defer store.Close()

	tm, err := store.ClientManager().GetOrCreateTransferManager(ctx)
	require.NoError(t, err)

	data := testutil.GenerateRandomData(64 * 1024)
	key := testutil.GenerateTestKey("transfer")

	result, err := tm.Upload(ctx, ls.Bucket, key, bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), result.Size)

	var buf bytes.Buffer
	_, err = tm.Download(ctx, ls.Bucket, key, &buf)
	require.NoError(t, err)
	assert.Equal(t, data, buf.Bytes())

	require.NoError(t, store.Close())
	_, err = store.ClientManager().GetOrCreateSyncClient(ctx)
	assert.True(t, errors.IsClosed(err))
}
