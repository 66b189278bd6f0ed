package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Priya8975/webhook-receiver/internal/domain"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDuplicateDelivery is returned when a delivery id has already been stored.
var ErrDuplicateDelivery = errors.New("delivery already stored")

// webhookEventRow is the GORM model for the webhook_events table.
type webhookEventRow struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey"`
	DeliveryID string         `gorm:"not null;uniqueIndex:idx_webhook_events_delivery_id"`
	EventType  string         `gorm:"not null"`
	Object     string         `gorm:"not null;default:''"`
	Payload    datatypes.JSON `gorm:"type:jsonb;not null"`
	ReceivedAt time.Time      `gorm:"not null"`
}

func (webhookEventRow) TableName() string { return "webhook_events" }

func (r webhookEventRow) toDomain() domain.WebhookEvent {
	return domain.WebhookEvent{
		ID:         r.ID.String(),
		DeliveryID: r.DeliveryID,
		EventType:  r.EventType,
		Object:     r.Object,
		Payload:    json.RawMessage(r.Payload),
		ReceivedAt: r.ReceivedAt,
	}
}

// SaveWebhookEvent stores a verified delivery. The event's ID and ReceivedAt
// are filled in when empty.
func (s *PostgresStore) SaveWebhookEvent(ctx context.Context, event *domain.WebhookEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}

	id, err := uuid.Parse(event.ID)
	if err != nil {
		return fmt.Errorf("parsing event id: %w", err)
	}

	row := webhookEventRow{
		ID:         id,
		DeliveryID: event.DeliveryID,
		EventType:  event.EventType,
		Object:     event.Object,
		Payload:    datatypes.JSON(event.Payload),
		ReceivedAt: event.ReceivedAt,
	}

	result := s.orm.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "delivery_id"}}, DoNothing: true}).
		Create(&row)
	if result.Error != nil {
		return fmt.Errorf("inserting webhook event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDuplicateDelivery
	}
	return nil
}

// GetWebhookEventByDeliveryID returns nil when no event matches.
func (s *PostgresStore) GetWebhookEventByDeliveryID(ctx context.Context, deliveryID string) (*domain.WebhookEvent, error) {
	var row webhookEventRow
	err := s.orm.WithContext(ctx).Where("delivery_id = ?", deliveryID).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying webhook event: %w", err)
	}
	event := row.toDomain()
	return &event, nil
}

// ListWebhookEvents returns the newest events first, optionally filtered by type.
func (s *PostgresStore) ListWebhookEvents(ctx context.Context, eventType string, limit int) ([]domain.WebhookEvent, error) {
	q := s.orm.WithContext(ctx).Model(&webhookEventRow{})
	if eventType != "" {
		q = q.Where("event_type = ?", eventType)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []webhookEventRow
	if err := q.Order("received_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying webhook events: %w", err)
	}

	events := make([]domain.WebhookEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.toDomain())
	}
	return events, nil
}
