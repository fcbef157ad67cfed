package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/docshelf/docshelf/internal/admission"
	"github.com/docshelf/docshelf/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterMemoryStore(t *testing.T) {
	t.Run("increments from absent", func(t *testing.T) {
		s := store.NewCounterMemoryStore()

		value, err := s.Incr(context.Background(), "key1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), value)

		value, err = s.Incr(context.Background(), "key1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), value)
	})

	t.Run("decrement floors at zero and skips absent keys", func(t *testing.T) {
		s := store.NewCounterMemoryStore()

		value, err := s.Decr(context.Background(), "missing")
		require.NoError(t, err)
		assert.Equal(t, int64(0), value)
		assert.Equal(t, 0, s.Len(), "decrementing an absent key must not create it")

		_, _ = s.Incr(context.Background(), "key1")

		value, err = s.Decr(context.Background(), "key1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), value)

		value, err = s.Decr(context.Background(), "key1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), value, "counters never go negative")
	})

	t.Run("expire fails for absent keys", func(t *testing.T) {
		s := store.NewCounterMemoryStore()

		ok, err := s.Expire(context.Background(), "missing", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		_, _ = s.Incr(context.Background(), "key1")

		ok, err = s.Expire(context.Background(), "key1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("expired keys read as absent", func(t *testing.T) {
		s := store.NewCounterMemoryStore()

		_, _ = s.Incr(context.Background(), "key1")
		_, err := s.Expire(context.Background(), "key1", 30*time.Millisecond)
		require.NoError(t, err)

		time.Sleep(40 * time.Millisecond)

		value, err := s.Get(context.Background(), "key1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), value)

		// A fresh increment starts over from zero.
		value, err = s.Incr(context.Background(), "key1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), value)
	})

	t.Run("mget returns values in key order", func(t *testing.T) {
		s := store.NewCounterMemoryStore()

		_, _ = s.Incr(context.Background(), "a")
		_, _ = s.Incr(context.Background(), "a")
		_, _ = s.Incr(context.Background(), "c")

		values, err := s.MGet(context.Background(), []string{"a", "b", "c"})
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 0, 1}, values)
	})
}

func TestCounterMemoryStoreBatch(t *testing.T) {
	t.Run("returns results in op order", func(t *testing.T) {
		s := store.NewCounterMemoryStore()

		results, err := s.Batch(context.Background(), []admission.Op{
			{Kind: admission.OpIncr, Key: "a"},
			{Kind: admission.OpIncr, Key: "a"},
			{Kind: admission.OpExpire, Key: "a", TTL: time.Minute},
			{Kind: admission.OpExpire, Key: "missing", TTL: time.Minute},
			{Kind: admission.OpDecr, Key: "a"},
			{Kind: admission.OpDecr, Key: "missing"},
		})

		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 1, 0, 1, 0}, results)
	})

	t.Run("batches do not interleave", func(t *testing.T) {
		s := store.NewCounterMemoryStore()

		// Each batch increments then decrements the same key; if batches
		// interleaved, some batch would observe a value above the batch
		// count.
		const workers = 16

		var wg sync.WaitGroup

		for range workers {
			wg.Add(1)

			go func() {
				defer wg.Done()

				for range 50 {
					results, err := s.Batch(context.Background(), []admission.Op{
						{Kind: admission.OpIncr, Key: "contended"},
						{Kind: admission.OpDecr, Key: "contended"},
					})
					assert.NoError(t, err)
					assert.LessOrEqual(t, results[0], int64(workers))
					assert.Equal(t, results[0]-1, results[1])
				}
			}()
		}

		wg.Wait()

		value, err := s.Get(context.Background(), "contended")
		require.NoError(t, err)
		assert.Equal(t, int64(0), value)
	})
}
