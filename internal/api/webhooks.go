package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Priya8975/webhook-receiver/internal/domain"
	"github.com/Priya8975/webhook-receiver/internal/engine"
	"github.com/Priya8975/webhook-receiver/internal/metrics"
)

// MaxWebhookBodyBytes caps the body read in processing mode.
const MaxWebhookBodyBytes = 1 << 20

// WebhookProcessor runs the processing-mode pipeline for one delivery.
type WebhookProcessor interface {
	Process(ctx context.Context, headers http.Header, body []byte) (engine.Outcome, error)
}

// WebhookHandler receives provider deliveries. Its behaviour is fixed by the
// mode chosen at startup.
type WebhookHandler struct {
	mode      domain.WebhookMode
	processor WebhookProcessor
	logger    *slog.Logger
}

func NewWebhookHandler(mode domain.WebhookMode, p WebhookProcessor, logger *slog.Logger) (*WebhookHandler, error) {
	switch mode {
	case domain.ModeDisabled:
	case domain.ModeProcessing:
		if p == nil {
			return nil, errors.New("processing mode needs a webhook processor")
		}
	default:
		return nil, fmt.Errorf("unknown webhook mode %q", mode)
	}
	return &WebhookHandler{mode: mode, processor: p, logger: logger}, nil
}

func (h *WebhookHandler) Mode() domain.WebhookMode {
	return h.mode
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch h.mode {
	case domain.ModeProcessing:
		h.process(w, r)
	default:
		h.acknowledge(w, r)
	}
}

// acknowledge answers every request with 200 and never reads the body, so
// the provider keeps the endpoint registered.
func (h *WebhookHandler) acknowledge(w http.ResponseWriter, r *http.Request) {
	metrics.RequestsTotal.WithLabelValues(string(domain.ModeDisabled), "acknowledged").Inc()
	h.logger.Debug("webhook acknowledged without processing", "method", r.Method)
	respondAck(w, http.StatusOK, true, domain.DisabledMessage)
}

func (h *WebhookHandler) process(w http.ResponseWriter, r *http.Request) {
	mode := string(domain.ModeProcessing)

	if r.Method != http.MethodPost {
		metrics.RequestsTotal.WithLabelValues(mode, "method_not_allowed").Inc()
		w.Header().Set("Allow", http.MethodPost)
		respondAck(w, http.StatusMethodNotAllowed, false, "method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.RequestsTotal.WithLabelValues(mode, "too_large").Inc()
			respondAck(w, http.StatusRequestEntityTooLarge, false, "payload too large")
			return
		}
		metrics.RequestsTotal.WithLabelValues(mode, "unreadable").Inc()
		respondAck(w, http.StatusBadRequest, false, "unreadable body")
		return
	}

	outcome, err := h.processor.Process(r.Context(), r.Header, body)
	switch {
	case err == nil:
	case engine.IsSignatureError(err):
		h.logger.Warn("webhook signature rejected", "error", err)
		metrics.RequestsTotal.WithLabelValues(mode, "unauthorized").Inc()
		respondAck(w, http.StatusUnauthorized, false, "invalid signature")
		return
	case errors.Is(err, engine.ErrMalformedEvent):
		h.logger.Warn("malformed webhook event", "error", err)
		metrics.RequestsTotal.WithLabelValues(mode, "malformed").Inc()
		respondAck(w, http.StatusBadRequest, false, "malformed event")
		return
	default:
		h.logger.Error("webhook processing failed", "error", err)
		metrics.RequestsTotal.WithLabelValues(mode, "error").Inc()
		respondAck(w, http.StatusInternalServerError, false, "failed to process webhook")
		return
	}

	metrics.RequestsTotal.WithLabelValues(mode, string(outcome)).Inc()
	if outcome == engine.OutcomeDuplicate {
		respondAck(w, http.StatusOK, true, "Duplicate delivery ignored")
		return
	}
	respondAck(w, http.StatusOK, true, "Webhook received")
}
