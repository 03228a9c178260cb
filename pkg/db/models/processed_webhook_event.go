package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
)

// ProcessedWebhookEvent is the dedup record for a provider callback. The
// unique (provider, provider_event_id) index is the idempotency authority.
type ProcessedWebhookEvent struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Provider         enums.PaymentProvider `gorm:"column:provider;type:text;not null;uniqueIndex:ux_processed_webhook_events_provider_event,priority:1"`
	ProviderEventID  string                `gorm:"column:provider_event_id;type:text;not null;uniqueIndex:ux_processed_webhook_events_provider_event,priority:2"`
	EventType        string                `gorm:"column:event_type;type:text;not null"`
	NormalizedStatus enums.PaymentOutcome  `gorm:"column:normalized_status;type:text;not null"`
	OrderID          *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	Result           enums.WebhookResult   `gorm:"column:result;type:text;not null"`
	ReceivedAt       time.Time             `gorm:"column:received_at;not null"`
	ProcessedAt      time.Time             `gorm:"column:processed_at;autoCreateTime"`
}

func (e *ProcessedWebhookEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
