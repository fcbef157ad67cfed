// Package ratelimit provides per-client request-rate protection. It is
// separate from admission control: this bounds how often a client may call,
// admission bounds how many protected sections a principal may occupy at
// once.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether a request from the given key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// TokenBucketLimiter keeps one token bucket per client key, with idle
// entries swept by a janitor goroutine.
type TokenBucketLimiter struct {
	mu      sync.Mutex
	entries map[string]*bucketEntry

	rps     rate.Limit
	burst   int
	idleTTL time.Duration
}

type bucketEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewTokenBucketLimiter creates a limiter allowing rps sustained requests
// per key with the given burst.
func NewTokenBucketLimiter(rps float64, burst int) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		entries: make(map[string]*bucketEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: 15 * time.Minute,
	}
}

func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (bool, error) {
	return l.bucket(key).Allow(), nil
}

func (l *TokenBucketLimiter) bucket(key string) *rate.Limiter {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if ent, ok := l.entries[key]; ok {
		ent.lastSeen = now

		return ent.lim
	}

	lim := rate.NewLimiter(l.rps, l.burst)
	l.entries[key] = &bucketEntry{lim: lim, lastSeen: now}

	return lim
}

// Cleanup drops buckets idle longer than the TTL.
func (l *TokenBucketLimiter) Cleanup() {
	cutoff := time.Now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, ent := range l.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}

// StartJanitor sweeps idle buckets until ctx is cancelled.
func (l *TokenBucketLimiter) StartJanitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)

	go func() {
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.Cleanup()
			}
		}
	}()
}
