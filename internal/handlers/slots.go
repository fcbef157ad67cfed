package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/docshelf/docshelf/internal/admission"
)

// SlotsHandler exposes the non-transactional empty-slots read for the
// upload route. Clients use it to show capacity, never to decide whether an
// upload will be admitted.
type SlotsHandler struct {
	gate      *admission.Gate
	route     string
	uploadCfg admission.EndpointConfig
}

// NewSlotsHandler creates a slots handler reporting on the given route.
func NewSlotsHandler(gate *admission.Gate, route string, uploadCfg admission.EndpointConfig) *SlotsHandler {
	return &SlotsHandler{
		gate:      gate,
		route:     route,
		uploadCfg: uploadCfg,
	}
}

// AvailableSlots reports the minimum free capacity across the caller's
// upload limits.
func (s *SlotsHandler) AvailableSlots(ctx context.Context, _ *struct{}) (*AvailableSlotsResponse, error) {
	meta := RequestMetaFromContext(ctx)

	specs := s.gate.Specs(s.route, meta.Principal, s.uploadCfg)

	free, err := s.gate.Limiter().EmptySlots(ctx, specs)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to read slot availability")
	}

	resp := &AvailableSlotsResponse{}
	resp.Body.EmptySlots = free

	return resp, nil
}
