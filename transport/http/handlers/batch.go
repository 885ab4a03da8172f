package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/kart-io/smsprobe/pkg/config"
	"github.com/kart-io/smsprobe/pkg/errors"
	"github.com/kart-io/smsprobe/pkg/logger"
	"github.com/kart-io/smsprobe/pkg/probe"
	"github.com/kart-io/smsprobe/pkg/provider"
)

// BatchHandler starts and polls batch test runs.
type BatchHandler struct {
	engine *probe.Engine
	logger logger.Logger
}

// NewBatchHandler creates a batch handler.
func NewBatchHandler(engine *probe.Engine, log logger.Logger) *BatchHandler {
	if log == nil {
		log = logger.Discard
	}
	return &BatchHandler{engine: engine, logger: log}
}

// batchRequest optionally narrows the batch matrix. Empty fields fall back
// to the full configured matrix.
type batchRequest struct {
	Sources      []string `json:"sources"`
	Destinations []string `json:"destinations"`
	MessageTypes []string `json:"message_types"`
}

type batchStartResponse struct {
	BatchID string `json:"batch_id"`
}

// HandleStart kicks off a batch and returns its identifier immediately.
// The caller polls HandleStatus for completion.
func (h *BatchHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, errors.Wrap(err, errors.ErrInvalidConfig, "invalid request body"), nil)
		return
	}

	spec, err := h.buildSpec(&req)
	if err != nil {
		writeError(w, err, nil)
		return
	}

	batchID, err := h.engine.StartBatch(r.Context(), spec)
	if err != nil {
		writeError(w, err, nil)
		return
	}

	writeJSON(w, http.StatusAccepted, batchStartResponse{BatchID: batchID})
}

// HandleStatus answers the non-blocking completion poll for a batch.
func (h *BatchHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("id")
	status := h.engine.BatchStatus(r.Context(), batchID)
	writeJSON(w, http.StatusOK, status)
}

// buildSpec resolves the request against the configured matrix.
func (h *BatchHandler) buildSpec(req *batchRequest) (probe.BatchSpec, error) {
	cfg := h.engine.Config()

	spec := probe.BatchSpec{
		Sources:      cfg.Sources,
		Destinations: cfg.Destinations,
		MessageTypes: DefaultMessageTypes(),
	}

	if len(req.Sources) > 0 {
		var sources []config.SourceNumber
		for _, name := range req.Sources {
			found := false
			for _, src := range cfg.Sources {
				if strings.EqualFold(src.Name, name) {
					sources = append(sources, src)
					found = true
					break
				}
			}
			if !found {
				return probe.BatchSpec{}, errors.Newf(errors.ErrInvalidConfig, "unknown source %q", name)
			}
		}
		spec.Sources = sources
	}

	if len(req.Destinations) > 0 {
		var dests []config.Destination
		for _, number := range req.Destinations {
			carrier := "N/A"
			for _, d := range cfg.Destinations {
				if d.Number == number {
					carrier = d.Carrier
					break
				}
			}
			dests = append(dests, config.Destination{Number: number, Carrier: carrier})
		}
		spec.Destinations = dests
	}

	if len(req.MessageTypes) > 0 {
		var types []provider.MessageType
		for _, raw := range req.MessageTypes {
			msgType := provider.MessageType(strings.ToLower(raw))
			if !msgType.Valid() {
				return probe.BatchSpec{}, errors.Newf(errors.ErrInvalidConfig, "unknown message type %q", raw)
			}
			types = append(types, msgType)
		}
		spec.MessageTypes = types
	}

	return spec, nil
}
