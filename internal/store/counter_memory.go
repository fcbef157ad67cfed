package store

import (
	"context"
	"sync"
	"time"

	"github.com/docshelf/docshelf/internal/admission"
)

// CounterMemoryStore is an in-memory implementation of
// admission.CounterStore for tests and single-node deployments. All
// mutations are serialized through one mutex; Batch holds it for the whole
// batch, which is what makes increment-evaluate-rollback sequences atomic
// with respect to other callers.
type CounterMemoryStore struct {
	mu      sync.Mutex
	entries map[string]*counterEntry
	now     func() time.Time
}

type counterEntry struct {
	value     int64
	expiresAt time.Time // zero means no deadline
}

// NewCounterMemoryStore creates a fresh in-memory counter store.
func NewCounterMemoryStore() *CounterMemoryStore {
	return &CounterMemoryStore{
		entries: make(map[string]*counterEntry),
		now:     time.Now,
	}
}

func (s *CounterMemoryStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.incrLocked(key), nil
}

func (s *CounterMemoryStore) Decr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.decrLocked(key), nil
}

func (s *CounterMemoryStore) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.expireLocked(key, ttl), nil
}

func (s *CounterMemoryStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getLocked(key), nil
}

func (s *CounterMemoryStore) MGet(_ context.Context, keys []string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := make([]int64, len(keys))
	for i, key := range keys {
		values[i] = s.getLocked(key)
	}

	return values, nil
}

// Batch executes the operations under a single hold of the mutex. No other
// store operation can observe an intermediate state of the batch.
func (s *CounterMemoryStore) Batch(_ context.Context, ops []admission.Op) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]int64, len(ops))

	for i, op := range ops {
		switch op.Kind {
		case admission.OpIncr:
			results[i] = s.incrLocked(op.Key)
		case admission.OpDecr:
			results[i] = s.decrLocked(op.Key)
		case admission.OpExpire:
			if s.expireLocked(op.Key, op.TTL) {
				results[i] = 1
			}
		}
	}

	return results, nil
}

// Len reports the number of live (unexpired) keys. Intended for tests.
func (s *CounterMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0

	for key := range s.entries {
		if s.liveLocked(key) != nil {
			n++
		}
	}

	return n
}

// liveLocked returns the entry for key, purging it first if its deadline
// has passed.
func (s *CounterMemoryStore) liveLocked(key string) *counterEntry {
	ent, ok := s.entries[key]
	if !ok {
		return nil
	}

	if !ent.expiresAt.IsZero() && !ent.expiresAt.After(s.now()) {
		delete(s.entries, key)

		return nil
	}

	return ent
}

func (s *CounterMemoryStore) incrLocked(key string) int64 {
	ent := s.liveLocked(key)
	if ent == nil {
		ent = &counterEntry{}
		s.entries[key] = ent
	}

	ent.value++

	return ent.value
}

func (s *CounterMemoryStore) decrLocked(key string) int64 {
	ent := s.liveLocked(key)
	if ent == nil {
		return 0
	}

	if ent.value > 0 {
		ent.value--
	}

	return ent.value
}

func (s *CounterMemoryStore) expireLocked(key string, ttl time.Duration) bool {
	ent := s.liveLocked(key)
	if ent == nil {
		return false
	}

	ent.expiresAt = s.now().Add(ttl)

	return true
}

func (s *CounterMemoryStore) getLocked(key string) int64 {
	ent := s.liveLocked(key)
	if ent == nil {
		return 0
	}

	return ent.value
}
