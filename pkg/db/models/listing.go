package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Listing is a seller's stock-bearing part offer. Quantities are only ever
// changed through the inventory ledger's conditional updates.
type Listing struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SellerID     uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`
	Title        string    `gorm:"column:title;not null"`
	PriceMinor   int64     `gorm:"column:price_minor;not null;check:price_minor >= 0"`
	Currency     string    `gorm:"column:currency;type:text;not null;default:'SAR'"`
	AvailableQty int       `gorm:"column:available_qty;not null;default:0;check:available_qty >= 0"`
	ReservedQty  int       `gorm:"column:reserved_qty;not null;default:0;check:reserved_qty >= 0"`
	MinOrderQty  int       `gorm:"column:min_order_qty;not null;default:1;check:min_order_qty >= 1"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *Listing) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
