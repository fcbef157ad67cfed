package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/docshelf/docshelf/internal/admission"
	"github.com/docshelf/docshelf/internal/handlers"
	"go.uber.org/zap"
)

// denialPayload is the structured backpressure result for a concurrency
// denial. Retryable/queueable tell the client this is congestion, not a
// permanent failure.
type denialPayload struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
	Queueable bool   `json:"queueable"`
}

// Admission returns a Huma middleware that gates endpoints carrying
// admission.EndpointConfig metadata. It acquires a concurrency slot before
// the handler runs and guarantees its release on every exit path, including
// handler panics. Denials map to 429 with a structured payload; store
// failures map to 500, kept distinct so congestion is never reported as an
// outage or vice versa.
func Admission(api huma.API, gate *admission.Gate, logger *zap.Logger) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op == nil || op.Metadata == nil {
			next(ctx)

			return
		}

		cfg, ok := op.Metadata[admission.MetadataKey].(admission.EndpointConfig)
		if !ok {
			next(ctx)

			return
		}

		meta := handlers.RequestMetaFromContext(ctx.Context())

		release, denial, err := gate.Acquire(ctx.Context(), op.Path, meta.Principal, cfg)
		if err != nil {
			logger.Error("admission store failure",
				zap.String("path", op.Path),
				zap.Error(err),
			)
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		if denial != nil {
			logger.Warn("concurrency limit reached",
				zap.String("path", op.Path),
				zap.String("key", denial.Spec.Key),
				zap.Int64("count", denial.Count),
				zap.Int64("max", denial.Spec.MaxConcurrent),
			)
			writeDenial(ctx)

			return
		}

		defer release()

		next(ctx)
	}
}

func writeDenial(ctx huma.Context) {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.SetStatus(http.StatusTooManyRequests)

	_ = json.NewEncoder(ctx.BodyWriter()).Encode(denialPayload{
		Error:     "too many concurrent uploads",
		Code:      "concurrency_limit",
		Retryable: true,
		Queueable: true,
	})
}
