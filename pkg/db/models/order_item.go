package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderItem snapshots the listing price at order time.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_order_items_order_listing,priority:1"`
	ListingID      uuid.UUID `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:ux_order_items_order_listing,priority:2"`
	SellerID       uuid.UUID `gorm:"column:seller_id;type:uuid;not null"`
	Title          string    `gorm:"column:title;not null"`
	Quantity       int       `gorm:"column:quantity;not null;check:quantity BETWEEN 1 AND 100"`
	UnitPriceMinor int64     `gorm:"column:unit_price_minor;not null"`
	LineTotalMinor int64     `gorm:"column:line_total_minor;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
