package handlers

import "context"

type requestMetaKey struct{}

// RequestMeta holds per-request identity extracted by middleware.
type RequestMeta struct {
	// Principal identifies the caller for ownership and admission
	// scoping: the X-Principal-Id header when present, otherwise a hash
	// of client IP and user agent.
	Principal string
	// Email is the caller's notification address, when the gateway
	// forwards one.
	Email     string
	ClientIP  string
	UserAgent string
}

// ContextWithRequestMeta adds request metadata to context.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext extracts request metadata from context.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if v, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return v
	}

	return RequestMeta{}
}
