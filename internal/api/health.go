package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/Priya8975/webhook-receiver/internal/domain"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Pinger is a dependency the readiness check can ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string             `json:"status"`
	Version     string             `json:"version"`
	WebhookMode domain.WebhookMode `json:"webhook_mode"`
}

// ReadinessResponse lists the state of each dependency.
type ReadinessResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

type HealthHandler struct {
	mode    domain.WebhookMode
	checks  map[string]Pinger
	timeout time.Duration
}

func NewHealthHandler(mode domain.WebhookMode, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{mode: mode, checks: checks, timeout: 2 * time.Second}
}

// Health reports liveness. It never touches dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:      "healthy",
		Version:     Version,
		WebhookMode: h.mode,
	})
}

// Ready pings every dependency and answers 503 if any is down.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := ReadinessResponse{Status: "ready", Services: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			resp.Services[name] = "unhealthy: " + err.Error()
			resp.Status = "unavailable"
			continue
		}
		resp.Services[name] = "healthy"
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}
