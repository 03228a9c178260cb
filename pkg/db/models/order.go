package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
)

// Order is a buyer purchase. Rows are never deleted; cancellation is a status.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber     string              `gorm:"column:order_number;type:text;not null;uniqueIndex:ux_orders_order_number"`
	BuyerID         uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index:ix_orders_buyer_created,priority:1"`
	AddressID       uuid.UUID           `gorm:"column:address_id;type:uuid;not null"`
	Status          enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'PENDING';index:ix_orders_status_created,priority:1"`
	SubtotalMinor   int64               `gorm:"column:subtotal_minor;not null"`
	TaxMinor        int64               `gorm:"column:tax_minor;not null"`
	ShippingMinor   int64               `gorm:"column:shipping_minor;not null"`
	TotalMinor      int64               `gorm:"column:total_minor;not null;check:chk_orders_total,total_minor = subtotal_minor + tax_minor + shipping_minor"`
	Currency        string              `gorm:"column:currency;type:text;not null"`
	Notes           *string             `gorm:"column:notes"`
	PaymentIntentID *uuid.UUID          `gorm:"column:payment_intent_id;type:uuid"`
	CancelReason    *enums.CancelReason `gorm:"column:cancel_reason;type:text"`
	ConfirmedAt     *time.Time          `gorm:"column:confirmed_at"`
	CancelledAt     *time.Time          `gorm:"column:cancelled_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime;index:ix_orders_status_created,priority:2;index:ix_orders_buyer_created,priority:2"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Items []OrderItem `gorm:"foreignKey:OrderID;references:ID"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
