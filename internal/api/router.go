package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WebhookPath is where the identity provider delivers events.
const WebhookPath = "/api/webhooks/clerk"

// NewRouter creates and configures the HTTP router. events may be nil, in
// which case the event listing is not exposed.
func NewRouter(webhooks *WebhookHandler, health *HealthHandler, events *EventHandler) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// Registered for every method so provider health checks never see 404 or 405.
	r.Handle(WebhookPath, webhooks)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.Health)
		r.Get("/ready", health.Ready)

		if events != nil {
			r.Get("/webhook-events", events.List)
		}
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
