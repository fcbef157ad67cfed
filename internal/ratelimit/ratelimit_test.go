package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketLimiterAllow(t *testing.T) {
	t.Run("allows up to the burst then refuses", func(t *testing.T) {
		l := NewTokenBucketLimiter(1, 3)

		for i := range 3 {
			ok, err := l.Allow(context.Background(), "client")
			require.NoError(t, err)
			assert.True(t, ok, "request %d is within the burst", i+1)
		}

		ok, err := l.Allow(context.Background(), "client")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("keys have independent buckets", func(t *testing.T) {
		l := NewTokenBucketLimiter(1, 1)

		ok, _ := l.Allow(context.Background(), "alice")
		assert.True(t, ok)

		ok, _ = l.Allow(context.Background(), "alice")
		assert.False(t, ok)

		ok, _ = l.Allow(context.Background(), "bob")
		assert.True(t, ok, "bob's bucket is untouched by alice")
	})
}

func TestTokenBucketLimiterCleanup(t *testing.T) {
	l := NewTokenBucketLimiter(1, 1)
	l.idleTTL = 10 * time.Millisecond

	_, _ = l.Allow(context.Background(), "idle")
	assert.Len(t, l.entries, 1)

	time.Sleep(20 * time.Millisecond)
	_, _ = l.Allow(context.Background(), "fresh")

	l.Cleanup()

	assert.Len(t, l.entries, 1)
	_, kept := l.entries["fresh"]
	assert.True(t, kept, "recently used buckets survive the sweep")
}
