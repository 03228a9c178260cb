package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
)

// PaymentIntent records one provider payment attempt for an order. At most
// one intent per order is live; retries supersede the previous one.
type PaymentIntent struct {
	ID                uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID                 `gorm:"column:order_id;type:uuid;not null;index"`
	Provider          enums.PaymentProvider     `gorm:"column:provider;type:text;not null;uniqueIndex:ux_payment_intents_provider_reference,priority:1"`
	ProviderReference string                    `gorm:"column:provider_reference;type:text;not null;uniqueIndex:ux_payment_intents_provider_reference,priority:2"`
	AmountMinor       int64                     `gorm:"column:amount_minor;not null"`
	Currency          string                    `gorm:"column:currency;type:text;not null"`
	Status            enums.PaymentIntentStatus `gorm:"column:status;type:text;not null;default:'CREATED'"`
	ClientSecret      *string                   `gorm:"column:client_secret"`
	RedirectURL       *string                   `gorm:"column:redirect_url"`
	Attempt           int                       `gorm:"column:attempt;not null;default:1"`
	SupersededAt      *time.Time                `gorm:"column:superseded_at"`
	CreatedAt         time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PaymentIntent) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
