package errors

import (
	"encoding/json"
	"net/http"
)

// WriteError writes err as a JSON ErrorResponse with its status code.
func WriteError(w http.ResponseWriter, err error) error {
	appErr := AsAppError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())
	return json.NewEncoder(w).Encode(appErr.Response())
}
