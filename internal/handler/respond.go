package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	appErrors "github.com/slugzin/leadflow-backend/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps the error taxonomy to status codes. The body always
// names the specific cause because the recovery action differs: expired
// codes want regenerate, exhausted quota wants an upgrade, unreachable
// gateways want a retry.
func writeError(w http.ResponseWriter, err error) {
	var campaignNotFound *appErrors.ErrCampaignNotFound
	var connectionNotFound *appErrors.ErrConnectionNotFound

	switch {
	case appErrors.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case appErrors.IsQuotaExhausted(err):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	case appErrors.IsGatewayUnreachable(err):
		http.Error(w, err.Error(), http.StatusBadGateway)
	case errors.As(err, &campaignNotFound), errors.As(err, &connectionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// operatorID identifies the caller. Session handling is upstream; the
// UI forwards the operator it authenticated.
func operatorID(r *http.Request) string {
	return r.Header.Get("X-Operator-ID")
}
