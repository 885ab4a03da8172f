package handlers

import (
	"net/http"

	"github.com/kart-io/smsprobe/pkg/probe"
)

// HealthHandler reports service liveness and provider reachability.
type HealthHandler struct {
	engine *probe.Engine
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(engine *probe.Engine) *HealthHandler {
	return &HealthHandler{engine: engine}
}

type healthResponse struct {
	Status       string `json:"status"`
	Provider     string `json:"provider"`
	PendingTests int    `json:"pending_tests"`
}

// Handle answers the health probe. The service stays "ok" even when the
// provider is unreachable; callers use the provider field to tell the two
// apart.
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:       "ok",
		Provider:     "unavailable",
		PendingTests: h.engine.Registry().Len(),
	}

	if prov := h.engine.Provider(); prov != nil {
		if err := prov.IsHealthy(r.Context()); err == nil {
			resp.Provider = prov.Name()
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
