package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kart-io/smsprobe/pkg/errors"
	"github.com/kart-io/smsprobe/pkg/provider"
)

// DefaultMessageTypes returns the message types exercised by a full batch.
func DefaultMessageTypes() []provider.MessageType {
	return []provider.MessageType{provider.TypeSMS, provider.TypeMMS}
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message"`
	Result  interface{} `json:"result,omitempty"`
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a probe error to an HTTP status with a JSON body. The
// optional result carries the partial timeline for failed or timed-out tests.
func writeError(w http.ResponseWriter, err error, result interface{}) {
	status := http.StatusInternalServerError
	switch errors.CodeOf(err) {
	case errors.ErrInvalidConfig, errors.ErrMissingConfig:
		status = http.StatusBadRequest
	case errors.ErrTestTimeout:
		status = http.StatusGatewayTimeout
	case errors.ErrSendFailed, errors.ErrTestFailed:
		status = http.StatusBadGateway
	case errors.ErrTestNotFound, errors.ErrBatchUnknown:
		status = http.StatusNotFound
	}

	writeJSON(w, status, errorResponse{
		Code:    string(errors.CodeOf(err)),
		Message: err.Error(),
		Result:  result,
	})
}
