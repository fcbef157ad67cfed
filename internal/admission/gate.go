package admission

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// MetadataKey is the key used to store admission config in operation metadata.
const MetadataKey = "admission"

// DefaultTTL bounds how long a leaked slot can stay occupied before the
// store treats its counters as absent. It must exceed the longest expected
// protected section.
const DefaultTTL = 60 * time.Second

// EndpointConfig defines per-endpoint admission control. It is attached to
// huma operations via the Metadata field; endpoints without it are not
// gated.
type EndpointConfig struct {
	// MaxConcurrent is the ceiling for this specific route per principal.
	MaxConcurrent int64

	// MaxGlobal overrides the gate's principal-global ceiling when > 0.
	MaxGlobal int64
}

// Gate derives scope keys from request identity and guards a protected
// section with a slot acquisition. It is the integration point the request
// layer uses; the limiter protocol stays hidden behind it.
type Gate struct {
	limiter   *Limiter
	keyPrefix string
	maxGlobal int64
	ttl       time.Duration
	logger    *zap.Logger
}

// NewGate creates a gate enforcing maxGlobal concurrent slots per principal
// across all gated routes, with the given key prefix and TTL.
func NewGate(store CounterStore, keyPrefix string, maxGlobal int64, ttl time.Duration, logger *zap.Logger) *Gate {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Gate{
		limiter:   NewLimiter(store),
		keyPrefix: keyPrefix,
		maxGlobal: maxGlobal,
		ttl:       ttl,
		logger:    logger,
	}
}

// Limiter exposes the underlying slot limiter for introspection reads.
func (g *Gate) Limiter() *Limiter {
	return g.limiter
}

// Specs builds the limit specs for one invocation: one scoped to the
// specific route and principal, one scoped to the principal across all
// routes.
func (g *Gate) Specs(route, principal string, cfg EndpointConfig) []LimitSpec {
	maxGlobal := g.maxGlobal
	if cfg.MaxGlobal > 0 {
		maxGlobal = cfg.MaxGlobal
	}

	return []LimitSpec{
		{
			Key:           fmt.Sprintf("%s:%s:%s", g.keyPrefix, route, principal),
			MaxConcurrent: cfg.MaxConcurrent,
			TTL:           g.ttl,
		},
		{
			Key:           fmt.Sprintf("%s:global:%s", g.keyPrefix, principal),
			MaxConcurrent: maxGlobal,
			TTL:           g.ttl,
		},
	}
}

// Acquire takes a slot for the route/principal pair. On grant it returns a
// release function that must be called exactly once when the protected
// section ends; release failures are logged and swallowed, because a failed
// cleanup must never turn a successful request into an error. The returned
// release is safe to call from a deferred context.
func (g *Gate) Acquire(ctx context.Context, route, principal string, cfg EndpointConfig) (func(), *Denial, error) {
	slot, denial, err := g.limiter.Acquire(ctx, g.Specs(route, principal, cfg))
	if err != nil {
		return nil, nil, err
	}

	if denial != nil {
		return nil, denial, nil
	}

	release := func() {
		// The request context may already be cancelled by the time the
		// protected section unwinds; release must still run.
		if err := g.limiter.Release(context.WithoutCancel(ctx), slot); err != nil {
			g.logger.Warn("failed to release admission slot",
				zap.String("route", route),
				zap.Strings("keys", slot.Keys()),
				zap.Error(err),
			)
		}
	}

	return release, nil, nil
}

// Do runs fn inside a guarded slot, releasing it on every exit path
// including panics. It is the convenience form for non-HTTP callers.
func (g *Gate) Do(ctx context.Context, route, principal string, cfg EndpointConfig, fn func(ctx context.Context) error) (*Denial, error) {
	release, denial, err := g.Acquire(ctx, route, principal, cfg)
	if err != nil {
		return nil, err
	}

	if denial != nil {
		return denial, nil
	}

	defer release()

	return nil, fn(ctx)
}
