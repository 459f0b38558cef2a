// Package http exposes the application services as a JSON API.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"budgetme/internal/core"
	"budgetme/internal/fallback"
)

// envelope is the standard response wrapper. Source is set on reads
// served through a fallback chain so clients can surface degraded
// data; it is informational only.
type envelope struct {
	Data     any                `json:"data,omitempty"`
	Source   fallback.Tier      `json:"source,omitempty"`
	Error    *core.ServiceError `json:"error,omitempty"`
	Warnings []string           `json:"warnings,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps service error codes onto HTTP statuses. Raw errors
// never reach the client; everything goes out as a structured object.
func writeError(w http.ResponseWriter, err error) {
	se := core.AsServiceError(err)
	writeJSON(w, statusFor(se.Code), envelope{Error: se})
}

func statusFor(code string) int {
	switch code {
	case core.CodeAuth:
		return http.StatusUnauthorized
	case core.CodeValidation, core.CodeInsufficientData:
		return http.StatusUnprocessableEntity
	case core.CodeNotFound:
		return http.StatusNotFound
	case core.CodeQuotaExceeded, core.CodeRateLimited:
		return http.StatusTooManyRequests
	case core.CodeFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return core.NewValidationError("malformed request body", err)
	}
	if dec.More() {
		return core.NewValidationError("request body must contain a single object", errors.New("trailing data"))
	}
	return nil
}
