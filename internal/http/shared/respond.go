// Package shared holds the JSON response helpers used by every handler.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "freshkeep/pkg/domain-errors"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to its HTTP status and writes the standard
// error envelope. Non-domain errors become opaque 500s.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, http.StatusInternalServerError, errorEnvelope{
			Error: errorBody{Code: string(dErrors.CodeInternal), Message: "internal error"},
		})
		return
	}
	WriteJSON(w, dErrors.ToHTTPStatus(domainErr.Code), errorEnvelope{
		Error: errorBody{Code: string(domainErr.Code), Message: domainErr.Message},
	})
}
