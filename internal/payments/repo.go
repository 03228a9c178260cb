package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/db/models"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
)

var liveIntentStatuses = []enums.PaymentIntentStatus{
	enums.PaymentIntentStatusCreated,
	enums.PaymentIntentStatusAuthorized,
}

// Repository persists payment intents.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CountIntents(ctx context.Context, orderID uuid.UUID) (int64, error)
	CreateIntent(ctx context.Context, intent *models.PaymentIntent) error
	SupersedeLive(ctx context.Context, orderID uuid.UUID, at time.Time) ([]models.PaymentIntent, error)
	AttachToOrder(ctx context.Context, orderID, intentID uuid.UUID) (bool, error)
	FindIntent(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)
	FindIntentByReference(ctx context.Context, provider enums.PaymentProvider, reference string) (*models.PaymentIntent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentIntentStatus) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CountIntents(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	return count, err
}

func (r *repository) CreateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	return r.db.WithContext(ctx).Create(intent).Error
}

// SupersedeLive cancels every still-live intent of the order and returns the
// intents it cancelled.
func (r *repository) SupersedeLive(ctx context.Context, orderID uuid.UUID, at time.Time) ([]models.PaymentIntent, error) {
	var live []models.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status IN ?", orderID, liveIntentStatuses).
		Order("attempt ASC").
		Find(&live).Error
	if err != nil || len(live) == 0 {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(live))
	for i := range live {
		ids = append(ids, live[i].ID)
		live[i].Status = enums.PaymentIntentStatusCancelled
		live[i].SupersededAt = &at
	}
	err = r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"status":        enums.PaymentIntentStatusCancelled,
			"superseded_at": at,
			"updated_at":    at,
		}).Error
	if err != nil {
		return nil, err
	}
	return live, nil
}

// AttachToOrder points the order at intentID while it is still PENDING.
func (r *repository) AttachToOrder(ctx context.Context, orderID, intentID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPending).
		Updates(map[string]any{
			"payment_intent_id": intentID,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) FindIntent(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&intent).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}

// FindIntentByReference returns nil, nil when no intent matches.
func (r *repository) FindIntentByReference(ctx context.Context, provider enums.PaymentProvider, reference string) (*models.PaymentIntent, error) {
	if reference == "" {
		return nil, nil
	}
	var intent models.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_reference = ?", provider, reference).
		First(&intent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentIntentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}
