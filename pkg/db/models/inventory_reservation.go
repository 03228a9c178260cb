package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
)

// InventoryReservation is the ledger token for units held against one order
// line. The ID doubles as the reservation token handed to callers.
type InventoryReservation struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID              `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_inventory_reservations_order_listing,priority:1"`
	ListingID   uuid.UUID              `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:ux_inventory_reservations_order_listing,priority:2"`
	Quantity    int                    `gorm:"column:quantity;not null;check:quantity > 0"`
	State       enums.ReservationState `gorm:"column:state;type:text;not null;default:'RESERVED'"`
	RestockedAt *time.Time             `gorm:"column:restocked_at"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *InventoryReservation) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
