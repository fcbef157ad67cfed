package admission

import (
	"context"
	"time"
)

// OpKind identifies a counter store operation inside a batch.
type OpKind int

const (
	// OpIncr increments a counter by one, creating it at zero first.
	OpIncr OpKind = iota
	// OpDecr decrements a counter by one, flooring at zero. Absent keys
	// are left absent.
	OpDecr
	// OpExpire arms a deadline on an existing key. Result is 1 if the
	// deadline was set, 0 if the key does not exist.
	OpExpire
)

// Op is a single operation inside an atomic batch. TTL is only used by
// OpExpire.
type Op struct {
	Kind OpKind
	Key  string
	TTL  time.Duration
}

// CounterStore is the atomic counter contract the slot limiter is built on.
// A key whose deadline has passed is logically absent (value 0) even before
// it is physically swept.
type CounterStore interface {
	// Incr creates the key at 0 if absent, adds 1 and returns the result.
	Incr(ctx context.Context, key string) (int64, error)

	// Decr subtracts 1, clamped at a floor of 0. Decrementing an absent
	// or zero key is a no-op returning 0.
	Decr(ctx context.Context, key string) (int64, error)

	// Expire arms a deadline after which the key is treated as absent.
	// Returns false if the key does not currently exist.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Get returns the current value of a key, purging it first if its
	// deadline has passed.
	Get(ctx context.Context, key string) (int64, error)

	// MGet returns the current values of all keys, in order.
	MGet(ctx context.Context, keys []string) ([]int64, error)

	// Batch executes the operations as one indivisible unit: no other
	// operation on the store may observe an intermediate state. Results
	// are returned in op order.
	Batch(ctx context.Context, ops []Op) ([]int64, error)
}
