// Package handlers implements the HTTP handlers for smsprobe.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kart-io/smsprobe/pkg/logger"
	"github.com/kart-io/smsprobe/pkg/probe"
	"github.com/kart-io/smsprobe/pkg/provider"
)

// WebhookHandler is the inbound sink for provider delivery-receipt events.
type WebhookHandler struct {
	engine *probe.Engine
	logger logger.Logger
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(engine *probe.Engine, log logger.Logger) *WebhookHandler {
	if log == nil {
		log = logger.Discard
	}
	return &WebhookHandler{engine: engine, logger: log}
}

// Handle processes a webhook delivery. The provider retries non-2xx
// responses, so unmatched or partially unusable events still answer OK;
// only an unreadable payload is rejected.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var events []provider.Event
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		h.logger.Warn("Unreadable webhook payload", "error", err)
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.engine.HandleEvents(r.Context(), events)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
