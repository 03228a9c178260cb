package reconciler

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/db/models"
)

// Repository maintains the processed webhook ledger outside the reconcile
// path.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// DeleteProcessedBefore prunes dedup rows processed before cutoff.
func (r *Repository) DeleteProcessedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	if tx == nil {
		return 0, errors.New("transaction required")
	}
	res := tx.WithContext(ctx).
		Where("processed_at < ?", cutoff).
		Delete(&models.ProcessedWebhookEvent{})
	return res.RowsAffected, res.Error
}
