// Package dbtest opens isolated in-memory sqlite databases carrying the
// order engine schema for package tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/db/models"
)

// New returns a fresh database named after the test. The pool is pinned to
// one connection: sqlite's shared cache reports SQLITE_LOCKED instead of
// waiting when two connections write, while a single connection makes
// concurrent transactions queue the way row locks do in Postgres.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(
		&models.Listing{},
		&models.Address{},
		&models.Order{},
		&models.OrderItem{},
		&models.InventoryReservation{},
		&models.PaymentIntent{},
		&models.ProcessedWebhookEvent{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// SeedListing inserts a listing with the given stock and unit price.
func SeedListing(t testing.TB, conn *gorm.DB, availableQty int, priceMinor int64) models.Listing {
	t.Helper()
	listing := models.Listing{
		SellerID:     uuid.New(),
		Title:        "Used alternator",
		PriceMinor:   priceMinor,
		Currency:     "SAR",
		AvailableQty: availableQty,
		MinOrderQty:  1,
	}
	if err := conn.Create(&listing).Error; err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return listing
}

// SeedAddress inserts an address owned by buyerID.
func SeedAddress(t testing.TB, conn *gorm.DB, buyerID uuid.UUID) models.Address {
	t.Helper()
	address := models.Address{
		BuyerID: buyerID,
		Line1:   "King Fahd Rd 12",
		City:    "Riyadh",
		Country: "SA",
	}
	if err := conn.Create(&address).Error; err != nil {
		t.Fatalf("seed address: %v", err)
	}
	return address
}

// ReloadListing fetches the current counters of a listing.
func ReloadListing(t testing.TB, conn *gorm.DB, id uuid.UUID) models.Listing {
	t.Helper()
	var listing models.Listing
	if err := conn.First(&listing, "id = ?", id).Error; err != nil {
		t.Fatalf("reload listing: %v", err)
	}
	return listing
}
