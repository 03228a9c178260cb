package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Address is a buyer's shipping destination. This engine only reads it to
// confirm ownership.
type Address struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID   uuid.UUID `gorm:"column:buyer_id;type:uuid;not null;index"`
	Line1     string    `gorm:"column:line1;not null"`
	City      string    `gorm:"column:city;not null"`
	Country   string    `gorm:"column:country;not null;default:'SA'"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (a *Address) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
