package api

import (
	"encoding/json"
	"net/http"

	"github.com/Priya8975/webhook-receiver/internal/domain"
)

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondAck writes the acknowledgment shape the webhook provider expects.
func respondAck(w http.ResponseWriter, status int, ok bool, message string) {
	respondJSON(w, status, domain.Acknowledgment{OK: ok, Message: message})
}
