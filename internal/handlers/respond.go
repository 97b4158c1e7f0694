package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/example/b2room/internal/models"
)

// sendJSONResponse sends a JSON response to the client
func sendJSONResponse(w http.ResponseWriter, response interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// sendJSONError sends a JSON error response to the client
func sendJSONError(w http.ResponseWriter, message string, status int) {
	response := models.APIResponse{
		Success: false,
		Error:   message,
	}

	sendJSONResponse(w, response, status)
}

// requestID returns the caller supplied X-Request-ID or a fresh uuid
func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

// notFound answers unknown routes with a failure envelope
func notFound(w http.ResponseWriter, r *http.Request) {
	sendJSONResponse(w, models.Failed(models.CodeNotFound, "Not found", ""), http.StatusNotFound)
}

// methodNotAllowed answers a known route called with the wrong method
func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	sendJSONResponse(w, models.Failed(models.CodeMethodNotAllowed, "Method not allowed", ""), http.StatusMethodNotAllowed)
}
