// Package httputil centralizes JSON response writing so handlers and
// middleware produce consistent envelopes.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "gatekeeper/pkg/domain-errors"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError translates a coded error into an HTTP response. Internal and
// unavailable errors never leak their detail; the caller is expected to log
// the full error before calling this.
func WriteError(w http.ResponseWriter, err error) {
	var coded *dErrors.Error
	if errors.As(err, &coded) && coded.Code == dErrors.CodeInvalidInput {
		WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error":             string(coded.Code),
			"error_description": coded.Message,
		})
		return
	}

	WriteJSON(w, http.StatusInternalServerError, map[string]string{
		"error": string(dErrors.CodeInternal),
	})
}
