package lazy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closer struct {
	closes atomic.Int32
	err    error
}

func (c *closer) Close() error {
	c.closes.Add(1)
	return c.err
}

func TestReference_EvalCreatesOnce(t *testing.T) {
	var created atomic.Int32
	c := &closer{}
	ref := NewReference("client", func(context.Context) (*closer, error) {
		created.Add(1)
		return c, nil
	})

	assert.False(t, ref.IsSet())

	const numGoroutines = 16
	var wg sync.WaitGroup
	results := make([]*closer, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := ref.Eval(context.Background())
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.True(t, ref.IsSet())
	for _, v := range results {
		assert.Same(t, c, v)
	}
}

func TestReference_FailedCreationIsRetried(t *testing.T) {
	boom := errors.New("boom")
	attempts := 0
	ref := NewReference("client", func(context.Context) (*closer, error) {
		attempts++
		if attempts == 1 {
			return nil, boom
		}
		return &closer{}, nil
	})

	_, err := ref.Eval(context.Background())
	require.ErrorIs(t, err, boom)
	assert.False(t, ref.IsSet())

	v, err := ref.Eval(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, v)
	assert.True(t, ref.IsSet())
	assert.Equal(t, 2, attempts)
}

func TestReference_Close(t *testing.T) {
	t.Run("unset reference does not create", func(t *testing.T) {
		called := false
		ref := NewReference("client", func(context.Context) (*closer, error) {
			called = true
			return &closer{}, nil
		})

		require.NoError(t, ref.Close())
		assert.False(t, called)
		assert.False(t, ref.IsSet())
	})

	t.Run("closes once", func(t *testing.T) {
		c := &closer{}
		ref := NewReference("client", func(context.Context) (*closer, error) {
			return c, nil
		})
		_, err := ref.Eval(context.Background())
		require.NoError(t, err)

		require.NoError(t, ref.Close())
		require.NoError(t, ref.Close())
		assert.Equal(t, int32(1), c.closes.Load())
	})

	t.Run("wraps close error", func(t *testing.T) {
		boom := errors.New("boom")
		ref := NewReference("async client", func(context.Context) (*closer, error) {
			return &closer{err: boom}, nil
		})
		_, err := ref.Eval(context.Background())
		require.NoError(t, err)

		err = ref.Close()
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "async client")
	})
}

func TestReference_String(t *testing.T) {
	ref := NewReference("sync client", func(context.Context) (*closer, error) {
		return &closer{}, nil
	})
	assert.Equal(t, "lazy.Reference{sync client: unset}", ref.String())

	_, err := ref.Eval(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "lazy.Reference{sync client: set}", ref.String())

	require.NoError(t, ref.Close())
	assert.Equal(t, "lazy.Reference{sync client: closed}", ref.String())
	assert.Equal(t, "sync client", ref.Name())
}
