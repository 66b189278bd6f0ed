package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// WebhookMode selects how the webhook receiver treats inbound deliveries.
// It is fixed at startup.
type WebhookMode string

const (
	// ModeDisabled acknowledges every delivery without reading it.
	ModeDisabled WebhookMode = "disabled"
	// ModeProcessing verifies, stores and dispatches deliveries.
	ModeProcessing WebhookMode = "processing"
)

// DisabledMessage is the acknowledgment message returned in ModeDisabled.
const DisabledMessage = "Webhooks disabled"

// ParseWebhookMode parses a mode name. The empty string means ModeDisabled.
func ParseWebhookMode(s string) (WebhookMode, error) {
	switch WebhookMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeDisabled:
		return ModeDisabled, nil
	case ModeProcessing:
		return ModeProcessing, nil
	default:
		return "", fmt.Errorf("unknown webhook mode %q", s)
	}
}

// Acknowledgment is the JSON body the receiver answers with.
type Acknowledgment struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Envelope is the outer shape of a provider event.
type Envelope struct {
	Type   string          `json:"type"`
	Object string          `json:"object,omitempty"`
	Data   json.RawMessage `json:"data"`
}

// WebhookEvent is a verified delivery as it is stored and dispatched.
type WebhookEvent struct {
	ID         string          `json:"id"`
	DeliveryID string          `json:"delivery_id"`
	EventType  string          `json:"event_type"`
	Object     string          `json:"object,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}
