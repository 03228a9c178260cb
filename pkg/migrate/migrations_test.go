package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir(migrate.DefaultDir); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestListingMigrationGuardsStock(t *testing.T) {
	assertContains(t, readMigration(t, "create_listings_and_addresses"), []string{
		"CREATE TABLE IF NOT EXISTS listings",
		"CHECK (available_qty >= 0)",
		"CHECK (reserved_qty >= 0)",
		"DROP TABLE IF EXISTS listings",
	})
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_orders"), []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_order_number",
		"CONSTRAINT chk_orders_total CHECK (total_minor = subtotal_minor + tax_minor + shipping_minor)",
		"CHECK (quantity BETWEEN 1 AND 100)",
		"ux_inventory_reservations_order_listing",
		"DROP TABLE IF EXISTS orders",
	})
}

func TestPaymentsMigrationDedupsWebhooks(t *testing.T) {
	assertContains(t, readMigration(t, "create_payments"), []string{
		"ux_payment_intents_provider_reference ON payment_intents (provider, provider_reference)",
		"ux_processed_webhook_events_provider_event ON processed_webhook_events (provider, provider_event_id)",
		"DROP TABLE IF EXISTS processed_webhook_events",
	})
}

func TestOutboxMigrationIndexesUnpublished(t *testing.T) {
	assertContains(t, readMigration(t, "create_outbox"), []string{
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"WHERE published_at IS NULL",
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
	})
}
