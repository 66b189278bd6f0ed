package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Priya8975/webhook-receiver/internal/domain"
	"github.com/Priya8975/webhook-receiver/internal/metrics"
)

// HandlerFunc handles one verified webhook event.
type HandlerFunc func(ctx context.Context, event domain.WebhookEvent) error

type route struct {
	pattern string
	handler HandlerFunc
}

// Registry routes events to handlers by event type pattern. A pattern is an
// exact type ("user.created"), a prefix wildcard ("user.*") or "*".
type Registry struct {
	mu     sync.RWMutex
	routes []route
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Handle registers h for pattern. Handlers run in registration order.
func (r *Registry) Handle(pattern string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route{pattern: pattern, handler: h})
}

// Matches reports whether eventType is selected by pattern.
func Matches(pattern, eventType string) bool {
	switch {
	case pattern == "*":
		return true
	case strings.HasSuffix(pattern, ".*"):
		return strings.HasPrefix(eventType, strings.TrimSuffix(pattern, "*"))
	default:
		return pattern == eventType
	}
}

// Dispatch runs every matching handler and returns how many ran. Handler
// errors are collected; one failing handler does not stop the others.
func (r *Registry) Dispatch(ctx context.Context, event domain.WebhookEvent) (int, error) {
	r.mu.RLock()
	routes := make([]route, len(r.routes))
	copy(routes, r.routes)
	r.mu.RUnlock()

	var (
		ran  int
		errs []error
	)
	for _, rt := range routes {
		if !Matches(rt.pattern, event.EventType) {
			continue
		}
		ran++
		if err := rt.handler(ctx, event); err != nil {
			r.logger.Error("webhook handler failed",
				"error", err,
				"pattern", rt.pattern,
				"event_type", event.EventType,
				"delivery_id", event.DeliveryID,
			)
			metrics.DispatchTotal.WithLabelValues(event.EventType, "error").Inc()
			errs = append(errs, fmt.Errorf("%s: %w", rt.pattern, err))
			continue
		}
		metrics.DispatchTotal.WithLabelValues(event.EventType, "ok").Inc()
	}

	if ran == 0 {
		r.logger.Debug("no handler for event", "event_type", event.EventType, "delivery_id", event.DeliveryID)
		metrics.DispatchTotal.WithLabelValues(event.EventType, "unhandled").Inc()
	}

	if len(errs) > 0 {
		return ran, fmt.Errorf("dispatching %s: %w", event.EventType, errors.Join(errs...))
	}
	return ran, nil
}
