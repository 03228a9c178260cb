// Package inventory owns the stock counters of listings. Every quantity change
// is a single conditional UPDATE so concurrent buyers can never drive
// available_qty below zero.
package inventory

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/db/models"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
	pkgerrors "github.com/OmarEhab007/cargoparts-sub002/pkg/errors"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/metrics"
)

// ReservationToken identifies one reservation row.
type ReservationToken = uuid.UUID

// Line is a quantity of one listing to hold for an order.
type Line struct {
	ListingID uuid.UUID
	Quantity  int
}

// Ledger reserves, commits, and releases stock. All methods run inside the
// caller's transaction.
type Ledger interface {
	Reserve(ctx context.Context, tx *gorm.DB, orderID, listingID uuid.UUID, qty int) (ReservationToken, error)
	ReserveAll(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, lines []Line) ([]ReservationToken, error)
	Commit(ctx context.Context, tx *gorm.DB, token ReservationToken) error
	Release(ctx context.Context, tx *gorm.DB, token ReservationToken) error
	CommitOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	ReleaseOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	RestockOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

type ledger struct {
	metrics *metrics.OrderMetrics
	now     func() time.Time
}

// NewLedger returns the SQL-backed ledger. m may be nil.
func NewLedger(m *metrics.OrderMetrics) Ledger {
	return &ledger{
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (l *ledger) Reserve(ctx context.Context, tx *gorm.DB, orderID, listingID uuid.UUID, qty int) (ReservationToken, error) {
	if tx == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory reserve")
	}
	if qty <= 0 {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "reserve quantity must be positive")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE listings
		SET available_qty = available_qty - ?,
			reserved_qty = reserved_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND available_qty >= ?
	`, qty, qty, listingID, qty)
	if res.Error != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodePersistence, res.Error, "reserve inventory")
	}
	if res.RowsAffected == 0 {
		l.metrics.IncReservation("insufficient")
		return uuid.Nil, insufficientStock(listingID, qty)
	}

	reservation := models.InventoryReservation{
		OrderID:   orderID,
		ListingID: listingID,
		Quantity:  qty,
		State:     enums.ReservationStateReserved,
	}
	if err := tx.WithContext(ctx).Create(&reservation).Error; err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "record reservation")
	}
	l.metrics.IncReservation("reserved")
	return reservation.ID, nil
}

func (l *ledger) ReserveAll(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, lines []Line) ([]ReservationToken, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no lines to reserve")
	}

	ordered := make([]Line, len(lines))
	copy(ordered, lines)
	sort.Slice(ordered, func(i, j int) bool {
		return bytes.Compare(ordered[i].ListingID[:], ordered[j].ListingID[:]) < 0
	})

	tokens := make([]ReservationToken, 0, len(ordered))
	for _, line := range ordered {
		token, err := l.Reserve(ctx, tx, orderID, line.ListingID, line.Quantity)
		if err != nil {
			for _, held := range tokens {
				if releaseErr := l.Release(ctx, tx, held); releaseErr != nil {
					return nil, releaseErr
				}
			}
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

func (l *ledger) Commit(ctx context.Context, tx *gorm.DB, token ReservationToken) error {
	reservation, applied, err := l.settle(ctx, tx, token, enums.ReservationStateCommitted)
	if err != nil || !applied {
		return err
	}
	return l.adjustListing(ctx, tx, reservation.ListingID, 0, -reservation.Quantity)
}

func (l *ledger) Release(ctx context.Context, tx *gorm.DB, token ReservationToken) error {
	reservation, applied, err := l.settle(ctx, tx, token, enums.ReservationStateReleased)
	if err != nil || !applied {
		return err
	}
	return l.adjustListing(ctx, tx, reservation.ListingID, reservation.Quantity, -reservation.Quantity)
}

func (l *ledger) CommitOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	return l.forOrder(ctx, tx, orderID, l.Commit)
}

func (l *ledger) ReleaseOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	return l.forOrder(ctx, tx, orderID, l.Release)
}

func (l *ledger) RestockOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory restock")
	}

	var committed []models.InventoryReservation
	if err := tx.WithContext(ctx).
		Where("order_id = ? AND state = ? AND restocked_at IS NULL", orderID, enums.ReservationStateCommitted).
		Order("listing_id ASC").
		Find(&committed).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list committed reservations")
	}

	for _, reservation := range committed {
		res := tx.WithContext(ctx).
			Model(&models.InventoryReservation{}).
			Where("id = ? AND restocked_at IS NULL", reservation.ID).
			Updates(map[string]any{
				"restocked_at": l.now(),
				"updated_at":   l.now(),
			})
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, res.Error, "mark reservation restocked")
		}
		if res.RowsAffected == 0 {
			continue
		}
		if err := l.adjustListing(ctx, tx, reservation.ListingID, reservation.Quantity, 0); err != nil {
			return err
		}
	}
	return nil
}

// settle moves a RESERVED row to target. applied is false when the row was
// already terminal, which callers treat as success.
func (l *ledger) settle(ctx context.Context, tx *gorm.DB, token ReservationToken, target enums.ReservationState) (*models.InventoryReservation, bool, error) {
	if tx == nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory settle")
	}

	var reservation models.InventoryReservation
	if err := tx.WithContext(ctx).First(&reservation, "id = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load reservation")
	}
	if reservation.State.IsTerminal() {
		return &reservation, false, nil
	}

	res := tx.WithContext(ctx).
		Model(&models.InventoryReservation{}).
		Where("id = ? AND state = ?", token, enums.ReservationStateReserved).
		Updates(map[string]any{
			"state":      target,
			"updated_at": l.now(),
		})
	if res.Error != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodePersistence, res.Error, "update reservation state")
	}
	if res.RowsAffected == 0 {
		return &reservation, false, nil
	}
	reservation.State = target
	return &reservation, true, nil
}

func (l *ledger) adjustListing(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, availableDelta, reservedDelta int) error {
	res := tx.WithContext(ctx).Exec(`
		UPDATE listings
		SET available_qty = available_qty + ?,
			reserved_qty = reserved_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND reserved_qty + ? >= 0
	`, availableDelta, reservedDelta, listingID, reservedDelta)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, res.Error, "adjust listing counters")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInternal, "listing counters out of balance").
			WithDetails(map[string]any{"listing_id": listingID.String()})
	}
	return nil
}

func (l *ledger) forOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, apply func(context.Context, *gorm.DB, ReservationToken) error) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory settle")
	}

	var tokens []ReservationToken
	if err := tx.WithContext(ctx).
		Model(&models.InventoryReservation{}).
		Where("order_id = ? AND state = ?", orderID, enums.ReservationStateReserved).
		Order("listing_id ASC").
		Pluck("id", &tokens).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list order reservations")
	}
	for _, token := range tokens {
		if err := apply(ctx, tx, token); err != nil {
			return err
		}
	}
	return nil
}

func insufficientStock(listingID uuid.UUID, qty int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for listing").
		WithDetails(map[string]any{
			"listing_id": listingID.String(),
			"requested":  qty,
		})
}
