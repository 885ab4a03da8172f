package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kart-io/smsprobe/pkg/config"
	"github.com/kart-io/smsprobe/pkg/errors"
	"github.com/kart-io/smsprobe/pkg/logger"
	"github.com/kart-io/smsprobe/pkg/probe"
	"github.com/kart-io/smsprobe/pkg/provider"
)

// TestHandler runs single blocking tests.
type TestHandler struct {
	engine *probe.Engine
	logger logger.Logger
}

// NewTestHandler creates a single-test handler.
func NewTestHandler(engine *probe.Engine, log logger.Logger) *TestHandler {
	if log == nil {
		log = logger.Discard
	}
	return &TestHandler{engine: engine, logger: log}
}

// testRequest is the body of POST /tests. Source selects a configured
// sending identity by name; destination and carrier may override the
// configured destination list for ad-hoc probes.
type testRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Carrier     string `json:"carrier"`
	MessageType string `json:"message_type"`
	Body        string `json:"body"`
}

// Handle runs one test and blocks until it resolves. The response status
// mirrors the test outcome: delivered and sent-unconfirmed answer 200,
// failures answer 502, and a missing final receipt answers 504 with the
// partial timeline attached.
func (h *TestHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req testRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(err, errors.ErrInvalidConfig, "invalid request body"), nil)
		return
	}

	src, ok := h.resolveSource(req.Source)
	if !ok {
		writeError(w, errors.Newf(errors.ErrInvalidConfig, "unknown source %q", req.Source), nil)
		return
	}

	msgType := provider.MessageType(strings.ToLower(req.MessageType))
	if req.MessageType == "" {
		msgType = provider.TypeSMS
	}

	spec := probe.SingleSpec{
		Source:      src,
		Destination: req.Destination,
		Carrier:     req.Carrier,
		MessageType: msgType,
		Body:        req.Body,
	}
	if spec.Body == "" {
		spec.Body = src.Name + " " + strings.ToUpper(string(msgType)) + " Test"
	}

	result, err := h.engine.RunSingleTest(r.Context(), spec)
	if err != nil {
		h.logger.Warn("Single test did not deliver", "error", err)
		writeError(w, err, result)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// resolveSource finds a configured source by name, case-insensitively.
// An empty name selects the first configured source.
func (h *TestHandler) resolveSource(name string) (config.SourceNumber, bool) {
	sources := h.engine.Config().Sources
	if len(sources) == 0 {
		return config.SourceNumber{}, false
	}
	if name == "" {
		return sources[0], true
	}
	for _, src := range sources {
		if strings.EqualFold(src.Name, name) {
			return src, true
		}
	}
	return config.SourceNumber{}, false
}
