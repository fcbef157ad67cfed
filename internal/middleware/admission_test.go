package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/docshelf/docshelf/internal/admission"
	"github.com/docshelf/docshelf/internal/handlers"
	"github.com/docshelf/docshelf/internal/middleware"
	"github.com/docshelf/docshelf/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errStoreDown = errors.New("store down")

// brokenCounterStore fails every batch operation.
type brokenCounterStore struct {
	admission.CounterStore
}

func (b *brokenCounterStore) Batch(_ context.Context, _ []admission.Op) ([]int64, error) {
	return nil, errStoreDown
}

func gatedOperation() *huma.Operation {
	return &huma.Operation{
		Path: "/documents",
		Metadata: map[string]any{
			admission.MetadataKey: admission.EndpointConfig{MaxConcurrent: 1},
		},
	}
}

func admissionContext(op *huma.Operation, principal string) *mockHumaContext {
	ctx := newMockHumaContext()
	ctx.operation = op
	ctx.ctx = handlers.ContextWithRequestMeta(context.Background(), handlers.RequestMeta{
		Principal: principal,
	})

	return ctx
}

func newGate(counters admission.CounterStore) *admission.Gate {
	return admission.NewGate(counters, "doc_upload_slots", 5, time.Minute, zap.NewNop())
}

func TestAdmission(t *testing.T) {
	t.Run("ignores operations without admission metadata", func(t *testing.T) {
		counters := store.NewCounterMemoryStore()
		mw := middleware.Admission(newTestAPI(), newGate(counters), zap.NewNop())

		ctx := admissionContext(&huma.Operation{Path: "/documents"}, "alice")

		nextCalled := false

		mw(ctx, func(_ huma.Context) {
			nextCalled = true
		})

		assert.True(t, nextCalled)
		assert.Equal(t, 0, counters.Len(), "ungated operations must not touch counters")
	})

	t.Run("holds a slot during the handler and releases after", func(t *testing.T) {
		counters := store.NewCounterMemoryStore()
		mw := middleware.Admission(newTestAPI(), newGate(counters), zap.NewNop())

		ctx := admissionContext(gatedOperation(), "alice")

		nextCalled := false

		mw(ctx, func(_ huma.Context) {
			nextCalled = true

			count, err := counters.Get(context.Background(), "doc_upload_slots:/documents:alice")
			assert.NoError(t, err)
			assert.Equal(t, int64(1), count, "slot is held while the handler runs")
		})

		require.True(t, nextCalled)

		count, err := counters.Get(context.Background(), "doc_upload_slots:/documents:alice")
		require.NoError(t, err)
		assert.Equal(t, int64(0), count, "slot must be released after the handler")
	})

	t.Run("returns 429 with a structured payload when denied", func(t *testing.T) {
		counters := store.NewCounterMemoryStore()
		gate := newGate(counters)
		mw := middleware.Admission(newTestAPI(), gate, zap.NewNop())

		_, denial, err := gate.Acquire(context.Background(), "/documents", "alice",
			admission.EndpointConfig{MaxConcurrent: 1})
		require.NoError(t, err)
		require.Nil(t, denial)

		ctx := admissionContext(gatedOperation(), "alice")

		nextCalled := false

		mw(ctx, func(_ huma.Context) {
			nextCalled = true
		})

		assert.False(t, nextCalled, "denied requests must not reach the handler")
		assert.Equal(t, http.StatusTooManyRequests, ctx.statusCode)
		assert.Equal(t, "application/json", ctx.respHeader["Content-Type"])

		var payload struct {
			Error     string `json:"error"`
			Code      string `json:"code"`
			Retryable bool   `json:"retryable"`
			Queueable bool   `json:"queueable"`
		}
		require.NoError(t, json.Unmarshal(ctx.written, &payload))
		assert.Equal(t, "concurrency_limit", payload.Code)
		assert.True(t, payload.Retryable)
		assert.True(t, payload.Queueable)

		// The denied attempt must leave the held slot count untouched.
		count, err := counters.Get(context.Background(), "doc_upload_slots:/documents:alice")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("returns 500 when the counter store fails", func(t *testing.T) {
		mw := middleware.Admission(newTestAPI(), newGate(&brokenCounterStore{}), zap.NewNop())

		ctx := admissionContext(gatedOperation(), "alice")

		nextCalled := false

		mw(ctx, func(_ huma.Context) {
			nextCalled = true
		})

		assert.False(t, nextCalled)
		assert.Equal(t, http.StatusInternalServerError, ctx.statusCode)
		assert.NotContains(t, string(ctx.written), "concurrency_limit",
			"store failures must not read as denials")
	})

	t.Run("releases the slot when the handler panics", func(t *testing.T) {
		counters := store.NewCounterMemoryStore()
		mw := middleware.Admission(newTestAPI(), newGate(counters), zap.NewNop())

		ctx := admissionContext(gatedOperation(), "alice")

		assert.Panics(t, func() {
			mw(ctx, func(_ huma.Context) {
				panic("handler blew up")
			})
		})

		count, err := counters.Get(context.Background(), "doc_upload_slots:/documents:alice")
		require.NoError(t, err)
		assert.Equal(t, int64(0), count, "slot must be released on abrupt handler exits")
	})

	t.Run("principals are gated independently", func(t *testing.T) {
		counters := store.NewCounterMemoryStore()
		gate := newGate(counters)
		mw := middleware.Admission(newTestAPI(), gate, zap.NewNop())

		_, denial, err := gate.Acquire(context.Background(), "/documents", "alice",
			admission.EndpointConfig{MaxConcurrent: 1})
		require.NoError(t, err)
		require.Nil(t, denial)

		ctx := admissionContext(gatedOperation(), "bob")

		nextCalled := false

		mw(ctx, func(_ huma.Context) {
			nextCalled = true
		})

		assert.True(t, nextCalled, "alice's held slot must not block bob")
	})
}
