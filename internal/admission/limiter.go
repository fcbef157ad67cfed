package admission

import (
	"context"
	"time"
)

// LimitSpec bounds concurrent occupancy of one scope key. Multiple specs in
// an acquisition may share keys; each occurrence counts as one unit of
// demand against that key.
type LimitSpec struct {
	Key           string
	MaxConcurrent int64
	TTL           time.Duration
}

// Denial describes which limit turned an acquisition away.
type Denial struct {
	Spec  LimitSpec
	Count int64
}

// Slot is a granted unit of concurrent access against one or more scopes.
// It is immutable after creation and must be released exactly once by the
// caller that acquired it.
type Slot struct {
	specs []LimitSpec
	keys  []string
}

// Keys returns the scope keys held by the slot.
func (s *Slot) Keys() []string {
	keys := make([]string, len(s.keys))
	copy(keys, s.keys)

	return keys
}

// Limiter composes limit specs into all-or-nothing slot acquisitions over a
// CounterStore. It holds no state of its own.
type Limiter struct {
	store CounterStore
}

// NewLimiter creates a slot limiter backed by the given counter store.
func NewLimiter(store CounterStore) *Limiter {
	return &Limiter{store: store}
}

// Acquire attempts to take one slot against every spec at once.
// It returns exactly one of:
//   - a granted Slot,
//   - a Denial when any spec is over its ceiling (all increments are rolled
//     back atomically, so a denied attempt leaves every counter untouched),
//   - an error when the store itself fails.
//
// TTLs are armed only for keys this attempt created (post-increment value of
// exactly 1), so an existing holder's deadline is never reset by a later
// acquire against the same key.
func (l *Limiter) Acquire(ctx context.Context, specs []LimitSpec) (*Slot, *Denial, error) {
	if len(specs) == 0 {
		return &Slot{}, nil, nil
	}

	incrOps := make([]Op, len(specs))
	for i, spec := range specs {
		incrOps[i] = Op{Kind: OpIncr, Key: spec.Key}
	}

	counts, err := l.store.Batch(ctx, incrOps)
	if err != nil {
		return nil, nil, err
	}

	var (
		denial    *Denial
		expireOps []Op
	)

	for i, spec := range specs {
		switch {
		case counts[i] > spec.MaxConcurrent:
			if denial == nil {
				denial = &Denial{Spec: spec, Count: counts[i]}
			}
		case counts[i] == 1:
			// First creator of this key arms its deadline.
			expireOps = append(expireOps, Op{Kind: OpExpire, Key: spec.Key, TTL: spec.TTL})
		}
	}

	if denial != nil {
		if _, err := l.store.Batch(ctx, rollbackOps(specs)); err != nil {
			return nil, nil, err
		}

		return nil, denial, nil
	}

	if len(expireOps) > 0 {
		if _, err := l.store.Batch(ctx, expireOps); err != nil {
			return nil, nil, err
		}
	}

	slot := &Slot{
		specs: append([]LimitSpec(nil), specs...),
		keys:  make([]string, len(specs)),
	}
	for i, spec := range specs {
		slot.keys[i] = spec.Key
	}

	return slot, nil, nil
}

// Release gives back every key held by the slot in one atomic batch.
// Callers must release a granted slot exactly once; the zero floor on
// decrement is a safety net against double release, not a contract.
func (l *Limiter) Release(ctx context.Context, slot *Slot) error {
	if slot == nil || len(slot.keys) == 0 {
		return nil
	}

	ops := make([]Op, len(slot.keys))
	for i, key := range slot.keys {
		ops[i] = Op{Kind: OpDecr, Key: key}
	}

	_, err := l.store.Batch(ctx, ops)

	return err
}

// EmptySlots reports how many acquisitions the given specs would currently
// admit: the minimum over specs of max(MaxConcurrent - current, 0). The
// value is a snapshot and can be stale immediately; it is never a substitute
// for Acquire.
func (l *Limiter) EmptySlots(ctx context.Context, specs []LimitSpec) (int64, error) {
	if len(specs) == 0 {
		return 0, nil
	}

	keys := make([]string, len(specs))
	for i, spec := range specs {
		keys[i] = spec.Key
	}

	counts, err := l.store.MGet(ctx, keys)
	if err != nil {
		return 0, err
	}

	available := int64(-1)

	for i, spec := range specs {
		free := spec.MaxConcurrent - counts[i]
		if free < 0 {
			free = 0
		}

		if available < 0 || free < available {
			available = free
		}
	}

	return available, nil
}

func rollbackOps(specs []LimitSpec) []Op {
	ops := make([]Op, len(specs))
	for i, spec := range specs {
		ops[i] = Op{Kind: OpDecr, Key: spec.Key}
	}

	return ops
}
