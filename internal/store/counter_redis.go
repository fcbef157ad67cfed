package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/docshelf/docshelf/internal/admission"
	"github.com/redis/go-redis/v9"
)

// batchScript executes a whole op batch server-side so it runs with the
// same no-interleaving guarantee the in-memory store gets from its mutex.
// ARGV carries (kind, ttl-millis) pairs, one per key. Decrement is clamped
// at zero and never creates a key.
var batchScript = redis.NewScript(`
local results = {}
for i = 1, #KEYS do
  local op = ARGV[2*i-1]
  if op == "incr" then
    results[i] = redis.call("INCR", KEYS[i])
  elseif op == "decr" then
    local v = tonumber(redis.call("GET", KEYS[i]) or "0")
    if v > 0 then
      v = redis.call("DECR", KEYS[i])
    else
      v = 0
    end
    results[i] = v
  elseif op == "expire" then
    results[i] = redis.call("PEXPIRE", KEYS[i], tonumber(ARGV[2*i]))
  end
end
return results
`)

// CounterRedisStore is the networked implementation of
// admission.CounterStore, for deployments where admission state is shared
// across processes.
type CounterRedisStore struct {
	client *redis.Client
}

// NewCounterRedisStore creates a Redis-backed counter store.
func NewCounterRedisStore(client *redis.Client) *CounterRedisStore {
	return &CounterRedisStore{client: client}
}

func (s *CounterRedisStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

// Decr goes through the batch script so the clamp at zero is atomic with
// the read.
func (s *CounterRedisStore) Decr(ctx context.Context, key string) (int64, error) {
	results, err := s.Batch(ctx, []admission.Op{{Kind: admission.OpDecr, Key: key}})
	if err != nil {
		return 0, err
	}

	return results[0], nil
}

func (s *CounterRedisStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.PExpire(ctx, key, ttl).Result()
}

func (s *CounterRedisStore) Get(ctx context.Context, key string) (int64, error) {
	value, err := s.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}

		return 0, err
	}

	return value, nil
}

func (s *CounterRedisStore) MGet(ctx context.Context, keys []string) ([]int64, error) {
	raw, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	values := make([]int64, len(keys))

	for i, v := range raw {
		str, ok := v.(string)
		if !ok {
			continue // nil: absent or expired key reads as 0
		}

		n, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("non-integer counter at %q: %w", keys[i], err)
		}

		values[i] = n
	}

	return values, nil
}

// Batch runs the operations as one server-side scripted transaction.
func (s *CounterRedisStore) Batch(ctx context.Context, ops []admission.Op) ([]int64, error) {
	if len(ops) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ops))
	args := make([]any, 0, len(ops)*2)

	for i, op := range ops {
		keys[i] = op.Key

		switch op.Kind {
		case admission.OpIncr:
			args = append(args, "incr", 0)
		case admission.OpDecr:
			args = append(args, "decr", 0)
		case admission.OpExpire:
			args = append(args, "expire", op.TTL.Milliseconds())
		}
	}

	raw, err := batchScript.Run(ctx, s.client, keys, args...).Int64Slice()
	if err != nil {
		return nil, err
	}

	return raw, nil
}
