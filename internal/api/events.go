package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Priya8975/webhook-receiver/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// EventLister reads stored webhook events.
type EventLister interface {
	ListWebhookEvents(ctx context.Context, eventType string, limit int) ([]domain.WebhookEvent, error)
}

type EventHandler struct {
	store EventLister
}

func NewEventHandler(s EventLister) *EventHandler {
	return &EventHandler{store: s}
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	eventType := r.URL.Query().Get("event_type")
	limitStr := r.URL.Query().Get("limit")

	limit := defaultListLimit
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	events, err := h.store.ListWebhookEvents(r.Context(), eventType, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list webhook events")
		return
	}

	respondJSON(w, http.StatusOK, events)
}
