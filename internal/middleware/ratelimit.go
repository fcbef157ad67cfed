package middleware

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/docshelf/docshelf/internal/handlers"
	"github.com/docshelf/docshelf/internal/ratelimit"
)

// RateLimiter returns a Huma middleware that bounds per-principal request
// rate. Requests over the rate are rejected outright; unlike admission
// denials they carry no queueing hint.
func RateLimiter(api huma.API, limiter ratelimit.Limiter) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		meta := handlers.RequestMetaFromContext(ctx.Context())

		allowed, err := limiter.Allow(ctx.Context(), meta.Principal)
		if err != nil {
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		if !allowed {
			_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, "rate limit exceeded")

			return
		}

		next(ctx)
	}
}
