package api

import (
	"encoding/json"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/plx30080-ctrl/LeadGen/internal/model"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

// writeError maps the failure taxonomy onto HTTP statuses. Unknown errors
// are logged and reported as a bare 500.
func writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case eris.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case eris.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case eris.Is(err, model.ErrAmbiguousMatch):
		status = http.StatusConflict
	case eris.Is(err, model.ErrExternalService), eris.Is(err, model.ErrGeocodeFailure):
		status = http.StatusBadGateway
	default:
		zap.L().Error("api: internal error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}
