package httpapi

import (
	"encoding/json"
	"net/http"

	"accelrt/internal/status"
	"accelrt/pkg/types"
)

// statusCode maps an error kind to an HTTP status.
func statusCode(err error) int {
	switch status.KindOf(err) {
	case status.NotFound:
		return http.StatusNotFound
	case status.InvalidArgument:
		return http.StatusBadRequest
	case status.Closed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeStatusError(w http.ResponseWriter, err error) {
	writeJSONError(w, statusCode(err), err.Error())
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: code})
}
