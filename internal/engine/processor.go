package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Priya8975/webhook-receiver/internal/domain"
	"github.com/Priya8975/webhook-receiver/internal/metrics"
	"github.com/Priya8975/webhook-receiver/internal/store"
)

// releaseTimeout bounds the dedupe release that runs after a failed store,
// which may happen after the request context is gone.
const releaseTimeout = 5 * time.Second

// ErrMalformedEvent is returned when a verified body is not a valid event envelope.
var ErrMalformedEvent = errors.New("malformed webhook event")

// Outcome is the result of processing one delivery.
type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeDuplicate Outcome = "duplicate"
)

// EventStore persists verified events.
type EventStore interface {
	SaveWebhookEvent(ctx context.Context, event *domain.WebhookEvent) error
}

// Claimer guards against processing the same delivery twice.
type Claimer interface {
	Claim(ctx context.Context, deliveryID string) bool
	Release(ctx context.Context, deliveryID string)
}

// Submitter hands stored events to asynchronous handlers.
type Submitter interface {
	Submit(ctx context.Context, event domain.WebhookEvent) error
}

// Processor runs the full delivery pipeline: verify, parse, dedupe, store
// and queue for dispatch.
type Processor struct {
	verifier  *Verifier
	claimer   Claimer
	store     EventStore
	submitter Submitter
	logger    *slog.Logger
}

func NewProcessor(v *Verifier, c Claimer, s EventStore, sub Submitter, logger *slog.Logger) *Processor {
	return &Processor{
		verifier:  v,
		claimer:   c,
		store:     s,
		submitter: sub,
		logger:    logger,
	}
}

// Process handles one delivery. Signature errors wrap the Err* values from
// Verify; ErrMalformedEvent marks an unparseable body. Any other error means
// the event could not be stored and the provider should retry.
func (p *Processor) Process(ctx context.Context, headers http.Header, body []byte) (Outcome, error) {
	start := time.Now()
	defer func() {
		metrics.ProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	deliveryID, err := p.verifier.Verify(headers, body)
	if err != nil {
		return "", fmt.Errorf("verifying signature: %w", err)
	}

	var env domain.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}

	if !p.claimer.Claim(ctx, deliveryID) {
		return OutcomeDuplicate, nil
	}

	event := domain.WebhookEvent{
		DeliveryID: deliveryID,
		EventType:  env.Type,
		Object:     env.Object,
		Payload:    json.RawMessage(body),
	}

	if err := p.store.SaveWebhookEvent(ctx, &event); err != nil {
		if errors.Is(err, store.ErrDuplicateDelivery) {
			return OutcomeDuplicate, nil
		}
		p.release(ctx, deliveryID)
		return "", fmt.Errorf("storing event: %w", err)
	}

	// The event is durable at this point, so a full or stopped pool must not
	// turn into a provider retry.
	if err := p.submitter.Submit(context.WithoutCancel(ctx), event); err != nil {
		p.logger.Warn("event stored but not dispatched",
			"error", err,
			"delivery_id", deliveryID,
			"event_type", event.EventType,
		)
	}

	p.logger.Info("webhook accepted",
		"delivery_id", deliveryID,
		"event_type", event.EventType,
		"event_id", event.ID,
	)
	return OutcomeAccepted, nil
}

// release drops the claim even when ctx is already cancelled, otherwise the
// provider's retry would be answered as a duplicate.
func (p *Processor) release(ctx context.Context, deliveryID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	p.claimer.Release(ctx, deliveryID)
}

// IsSignatureError reports whether err came from signature verification.
func IsSignatureError(err error) bool {
	return errors.Is(err, ErrMissingHeaders) ||
		errors.Is(err, ErrInvalidTimestamp) ||
		errors.Is(err, ErrTimestampOutOfRange) ||
		errors.Is(err, ErrNoMatchingSignature)
}

// RegisterDefaultHandlers logs the identity events the provider sends.
func RegisterDefaultHandlers(r *Registry, logger *slog.Logger) {
	for _, pattern := range []string{"user.*", "session.*", "organization.*"} {
		r.Handle(pattern, func(ctx context.Context, event domain.WebhookEvent) error {
			logger.Info("identity event",
				"event_type", event.EventType,
				"delivery_id", event.DeliveryID,
				"event_id", event.ID,
			)
			return nil
		})
	}
}
