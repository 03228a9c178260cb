package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/OmarEhab007/cargoparts-sub002/internal/inventory"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/db/models"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
	pkgerrors "github.com/OmarEhab007/cargoparts-sub002/pkg/errors"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/metrics"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/outbox"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/outbox/payloads"
)

// TransitionOptions describe the context of a status change.
type TransitionOptions struct {
	// Reason is required when the target is CANCELLED.
	Reason *enums.CancelReason
	Actor  *outbox.ActorRef
	// Intent is the payment intent the change is settling. When nil the
	// order's live intent is used.
	Intent *models.PaymentIntent
	// IntentStatus, when set, is written to the settling intent.
	IntentStatus enums.PaymentIntentStatus
}

// Transitioner applies a validated status change and its stock and event
// side effects inside the caller's transaction. The order service, the
// payment reconciler and the timeout sweeper all go through it.
type Transitioner interface {
	Apply(ctx context.Context, tx *gorm.DB, order *models.Order, to enums.OrderStatus, opts TransitionOptions) error
}

type transitioner struct {
	repo    Repository
	ledger  inventory.Ledger
	outbox  outbox.Emitter
	metrics *metrics.OrderMetrics
	now     func() time.Time
}

// NewTransitioner wires the shared transition path.
func NewTransitioner(repo Repository, ledger inventory.Ledger, emitter outbox.Emitter, m *metrics.OrderMetrics) Transitioner {
	return &transitioner{
		repo:    repo,
		ledger:  ledger,
		outbox:  emitter,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (t *transitioner) Apply(ctx context.Context, tx *gorm.DB, order *models.Order, to enums.OrderStatus, opts TransitionOptions) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for order transition")
	}
	from := order.Status
	if err := Transition(from, to); err != nil {
		return err
	}
	if to == enums.OrderStatusCancelled && opts.Reason == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cancel reason required")
	}

	now := t.now()
	updates := map[string]any{}
	switch to {
	case enums.OrderStatusConfirmed:
		updates["confirmed_at"] = now
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = now
		updates["cancel_reason"] = *opts.Reason
	}

	repo := t.repo.WithTx(tx)
	ok, err := repo.UpdateStatus(ctx, order.ID, from, to, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update order status")
	}
	if !ok {
		return invalidTransition(from, to)
	}

	restocked := false
	switch to {
	case enums.OrderStatusConfirmed:
		if err := t.ledger.CommitOrder(ctx, tx, order.ID); err != nil {
			return err
		}
	case enums.OrderStatusCancelled:
		if err := t.ledger.ReleaseOrder(ctx, tx, order.ID); err != nil {
			return err
		}
		if from == enums.OrderStatusConfirmed || from == enums.OrderStatusProcessing {
			if err := t.ledger.RestockOrder(ctx, tx, order.ID); err != nil {
				return err
			}
			restocked = true
		}
	}

	if err := t.settleIntent(ctx, repo, order, opts); err != nil {
		return err
	}

	order.Status = to
	switch to {
	case enums.OrderStatusConfirmed:
		order.ConfirmedAt = &now
	case enums.OrderStatusCancelled:
		order.CancelledAt = &now
		order.CancelReason = opts.Reason
	}

	if err := t.outbox.Emit(ctx, tx, t.event(order, from, restocked, opts)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "emit order event")
	}
	t.metrics.IncTransition(string(from), string(to))
	return nil
}

func (t *transitioner) settleIntent(ctx context.Context, repo Repository, order *models.Order, opts TransitionOptions) error {
	if opts.IntentStatus == "" {
		return nil
	}
	intentID := order.PaymentIntentID
	if opts.Intent != nil {
		intentID = &opts.Intent.ID
	}
	if intentID == nil {
		return nil
	}
	if err := repo.UpdateIntentStatus(ctx, *intentID, opts.IntentStatus); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update payment intent status")
	}
	if opts.Intent != nil {
		opts.Intent.Status = opts.IntentStatus
	}
	return nil
}

func (t *transitioner) event(order *models.Order, from enums.OrderStatus, restocked bool, opts TransitionOptions) outbox.DomainEvent {
	event := outbox.DomainEvent{
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         opts.Actor,
	}
	switch order.Status {
	case enums.OrderStatusConfirmed:
		data := payloads.OrderConfirmedEvent{
			OrderID:         order.ID,
			OrderNumber:     order.OrderNumber,
			PaymentIntentID: order.PaymentIntentID,
			AmountMinor:     order.TotalMinor,
			Currency:        order.Currency,
		}
		if opts.Intent != nil {
			data.PaymentIntentID = &opts.Intent.ID
			data.Provider = opts.Intent.Provider
			data.AmountMinor = opts.Intent.AmountMinor
		}
		event.EventType = enums.EventOrderConfirmed
		event.Data = data
	case enums.OrderStatusCancelled:
		event.EventType = enums.EventOrderCancelled
		event.Data = payloads.OrderCancelledEvent{
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			PreviousStatus: from,
			Reason:         *opts.Reason,
			Restocked:      restocked,
		}
	default:
		event.EventType = enums.EventOrderStatusChanged
		event.Data = payloads.OrderStatusChangedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			From:        from,
			To:          order.Status,
		}
	}
	return event
}
