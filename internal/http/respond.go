package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, r, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func respondFields(w http.ResponseWriter, r *http.Request, status int, code, message string, fields map[string]string) {
	respondJSON(w, r, status, ErrorResponse{
		Error:  message,
		Code:   code,
		Fields: fields,
	})
}

// decodeJSON reads the request body into v and writes the error response
// itself when that fails.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, r, http.StatusRequestEntityTooLarge, "request_too_large", "request body too large")
		return false
	}
	respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
	return false
}
