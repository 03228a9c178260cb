package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDumpNil(t *testing.T) {
	if d := Dump(nil); d.TopMessage != "" || d.Chain != nil {
		t.Fatalf("expected empty dump, got %+v", d)
	}
}

func TestDumpCapturesPgxFields(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "ux_processed_webhook_events_provider_event",
		TableName:      "processed_webhook_events",
		Message:        "duplicate key value violates unique constraint",
	}
	err := Wrap(CodePersistence, fmt.Errorf("insert: %w", pgErr), "record webhook")

	d := Dump(err)
	if d.Code != CodePersistence || !d.Retryable {
		t.Fatalf("unexpected code/retryable %s/%v", d.Code, d.Retryable)
	}
	if d.PGCode != "23505" || d.PGTable != "processed_webhook_events" {
		t.Fatalf("postgres fields missing: %+v", d)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d", len(d.Chain))
	}
	if d.Cause != "" {
		t.Fatalf("unique violation is not contention, got %q", d.Cause)
	}
}

func TestDumpFlagsLockContention(t *testing.T) {
	err := Wrap(CodePersistence, &pq.Error{Code: "40P01", Table: "listings"}, "reserve inventory")
	d := Dump(err)
	if d.PGCode != "40P01" || d.PGTable != "listings" {
		t.Fatalf("pq fields missing: %+v", d)
	}
	if d.Cause != "lock_contention" {
		t.Fatalf("expected lock_contention, got %q", d.Cause)
	}
}

func TestDumpFlagsDeadline(t *testing.T) {
	err := Wrap(CodePaymentGateway, fmt.Errorf("call stripe: %w", context.DeadlineExceeded), "create payment intent")
	if got := Dump(err).Cause; got != "deadline_exceeded" {
		t.Fatalf("expected deadline_exceeded, got %q", got)
	}
}
