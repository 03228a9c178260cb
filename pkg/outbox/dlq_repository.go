package outbox

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/db/models"
)

const (
	maxDLQErrorLen   = 1024
	defaultDLQListed = 50
)

// ErrNotDeadLettered is returned by Requeue when the event has no DLQ entry.
var ErrNotDeadLettered = errors.New("event is not in the dlq")

// DLQRepository stores outbox rows the publisher gave up on and lets an
// operator send them back once the cause is fixed.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if !entry.ErrorReason.IsValid() {
		return fmt.Errorf("dlq error reason %q is invalid", entry.ErrorReason)
	}
	if entry.ErrorMessage != nil {
		msg := truncateUTF8(*entry.ErrorMessage, maxDLQErrorLen)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// ListRecent returns the newest dead-lettered rows first.
func (r *DLQRepository) ListRecent(ctx context.Context, limit int) ([]models.OutboxDLQ, error) {
	if limit <= 0 {
		limit = defaultDLQListed
	}
	var rows []models.OutboxDLQ
	err := r.db.WithContext(ctx).
		Order("failed_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Requeue resets the outbox row behind a DLQ entry so the publisher picks it
// up again, and removes the entry. The row keeps its id, so subscribers still
// dedupe on event_id.
func (r *DLQRepository) Requeue(ctx context.Context, tx *gorm.DB, eventID uuid.UUID) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	tx = tx.WithContext(ctx)

	removed := tx.Where("event_id = ?", eventID).Delete(&models.OutboxDLQ{})
	if removed.Error != nil {
		return removed.Error
	}
	if removed.RowsAffected == 0 {
		return ErrNotDeadLettered
	}

	reset := tx.Model(&models.OutboxEvent{}).
		Where("id = ? AND published_at IS NULL", eventID).
		Updates(map[string]any{"attempt_count": 0, "last_error": nil})
	if reset.Error != nil {
		return reset.Error
	}
	if reset.RowsAffected == 0 {
		return fmt.Errorf("outbox row %s is gone or already published", eventID)
	}
	return nil
}

// truncateUTF8 cuts s to at most max bytes without splitting a rune.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
