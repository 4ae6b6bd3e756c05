package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"darkGuardAPI/internal/datastore"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// storeStatus picks the HTTP status for a failed store call.
func storeStatus(err error) int {
	var storeErr *datastore.Error
	if !errors.As(err, &storeErr) {
		return http.StatusInternalServerError
	}
	switch storeErr.Code {
	case "22P02", "22003", "23502", "23514":
		return http.StatusBadRequest
	case "42501":
		return http.StatusForbidden
	case "PGRST116":
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
