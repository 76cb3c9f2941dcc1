package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": s.version,
		"service": "spendlens",
	}

	writeJSON(w, http.StatusOK, response, s.log)
}

// writeJSON writes a JSON response. The payload is encoded before the status is sent, so an
// unencodable payload becomes a 500 instead of an empty body.
func writeJSON(w http.ResponseWriter, status int, data interface{}, log zerolog.Logger) {
	body, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]string{"error": "Failed to encode response"})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body = append(body, '\n')
	if _, err := w.Write(body); err != nil {
		log.Debug().Err(err).Msg("Failed to write JSON response")
	}
}

// writeError writes {"error": message} with the given status
func writeError(w http.ResponseWriter, status int, message string, log zerolog.Logger) {
	writeJSON(w, status, map[string]string{"error": message}, log)
}
