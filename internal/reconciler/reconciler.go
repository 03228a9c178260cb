// Package reconciler applies verified payment provider callbacks to orders.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/OmarEhab007/cargoparts-sub002/internal/orders"
	"github.com/OmarEhab007/cargoparts-sub002/internal/payments"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/db"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/db/models"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
	pkgerrors "github.com/OmarEhab007/cargoparts-sub002/pkg/errors"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/logger"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/metrics"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/outbox"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/redis"
)

const (
	component        = "payment-reconciler"
	defaultMarkerTTL = 24 * time.Hour
)

// Result describes how a delivery was handled. Every result except an error
// is acknowledged to the provider.
type Result struct {
	Provider enums.PaymentProvider
	EventID  string
	OrderID  *uuid.UUID
	Outcome  enums.WebhookResult
}

type Reconciler interface {
	Reconcile(ctx context.Context, provider string, rawBody []byte, signature string) (*Result, error)
}

type Params struct {
	Registry    *payments.Registry
	Orders      orders.Repository
	Payments    payments.Repository
	Transitions orders.Transitioner
	TX          db.TxRunner
	// Markers is optional; without it every delivery goes to the database.
	Markers   redis.MarkerStore
	MarkerTTL time.Duration
	Metrics   *metrics.OrderMetrics
	Logger    *logger.Logger
}

type reconciler struct {
	registry    *payments.Registry
	orders      orders.Repository
	payments    payments.Repository
	transitions orders.Transitioner
	tx          db.TxRunner
	markers     redis.MarkerStore
	markerTTL   time.Duration
	metrics     *metrics.OrderMetrics
	logg        *logger.Logger
}

func New(p Params) (Reconciler, error) {
	if p.Registry == nil {
		return nil, fmt.Errorf("payment gateway registry required")
	}
	if p.Orders == nil || p.Payments == nil {
		return nil, fmt.Errorf("orders and payments repositories required")
	}
	if p.Transitions == nil {
		return nil, fmt.Errorf("order transitioner required")
	}
	if p.TX == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	ttl := p.MarkerTTL
	if ttl <= 0 {
		ttl = defaultMarkerTTL
	}
	return &reconciler{
		registry:    p.Registry,
		orders:      p.Orders,
		payments:    p.Payments,
		transitions: p.Transitions,
		tx:          p.TX,
		markers:     p.Markers,
		markerTTL:   ttl,
		metrics:     p.Metrics,
		logg:        p.Logger,
	}, nil
}

func (r *reconciler) Reconcile(ctx context.Context, provider string, rawBody []byte, signature string) (*Result, error) {
	parsed, err := enums.ParsePaymentProvider(provider)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown webhook provider").
			WithDetails(map[string]any{"provider": provider})
	}
	gateway, err := r.registry.Get(parsed)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "webhook provider not configured").
			WithDetails(map[string]any{"provider": provider})
	}

	event, err := gateway.ParseWebhook(ctx, rawBody, signature)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeInvalidSignature) {
			r.security(r.withField(ctx, "provider", string(parsed)), "webhook signature rejected", err)
			r.count(parsed, "invalid_signature")
		}
		return nil, err
	}

	logCtx := ctx
	if r.logg != nil {
		logCtx = r.logg.WithWebhook(ctx, string(event.Provider), event.EventID)
	}

	markerKey := ""
	if r.markers != nil {
		markerKey = r.markers.WebhookKey(string(event.Provider), event.EventID)
		seen, err := r.markers.Exists(ctx, markerKey)
		if err != nil {
			r.warn(logCtx, "webhook marker lookup failed: "+err.Error())
		} else if seen {
			r.info(logCtx, "webhook already processed")
			r.count(event.Provider, string(enums.WebhookResultDuplicate))
			return &Result{Provider: event.Provider, EventID: event.EventID, Outcome: enums.WebhookResultDuplicate}, nil
		}
	}

	var res *Result
	var mismatch bool
	err = r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		res, mismatch, txErr = r.apply(logCtx, tx, event)
		return txErr
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodePersistence, err, "reconcile webhook")
		}
		r.logError(logCtx, "webhook reconciliation failed", err)
		return nil, err
	}

	if mismatch {
		r.security(r.withField(logCtx, "order_id", res.OrderID.String()), "webhook amount does not match order total", nil)
	}
	if markerKey != "" && res.Outcome != enums.WebhookResultDuplicate {
		if err := r.markers.Set(ctx, markerKey, string(res.Outcome), r.markerTTL); err != nil {
			r.warn(logCtx, "webhook marker write failed: "+err.Error())
		}
	}
	r.count(event.Provider, string(res.Outcome))
	r.info(r.withField(logCtx, "result", string(res.Outcome)), "webhook reconciled")
	return res, nil
}

// apply runs inside the effect transaction. The dedup insert comes first so a
// concurrent redelivery blocks on the unique index until this one commits.
func (r *reconciler) apply(ctx context.Context, tx *gorm.DB, event *payments.WebhookEvent) (*Result, bool, error) {
	res := &Result{Provider: event.Provider, EventID: event.EventID, Outcome: enums.WebhookResultRecorded}

	row := &models.ProcessedWebhookEvent{
		Provider:         event.Provider,
		ProviderEventID:  event.EventID,
		EventType:        event.EventType,
		NormalizedStatus: event.Outcome,
		OrderID:          event.OrderID,
		Result:           enums.WebhookResultRecorded,
		ReceivedAt:       event.ReceivedAt,
	}
	insert := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
			DoNothing: true,
		}).
		Create(row)
	if insert.Error != nil {
		return nil, false, insert.Error
	}
	if insert.RowsAffected == 0 {
		res.Outcome = enums.WebhookResultDuplicate
		r.info(ctx, "webhook already processed")
		return res, false, nil
	}

	mismatch := false
	if event.Malformed {
		res.Outcome = enums.WebhookResultMalformed
		r.warn(r.withField(ctx, "event_type", event.EventType), "verified webhook body could not be decoded; acknowledged")
	}
	if !event.Ignored {
		order, intent, err := r.lookup(ctx, tx, event)
		if err != nil {
			return nil, false, err
		}
		if order == nil {
			res.Outcome = enums.WebhookResultOrderNotFound
			r.warn(ctx, "webhook references unknown order")
		} else {
			res.OrderID = &order.ID
			res.Outcome, mismatch, err = r.applyOutcome(ctx, tx, event, order, intent)
			if err != nil {
				return nil, false, err
			}
		}
	}

	err := tx.WithContext(ctx).
		Model(&models.ProcessedWebhookEvent{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"result":   res.Outcome,
			"order_id": res.OrderID,
		}).Error
	if err != nil {
		return nil, false, err
	}
	return res, mismatch, nil
}

// lookup resolves the order from the event's order id, falling back to the
// provider reference of the intent.
func (r *reconciler) lookup(ctx context.Context, tx *gorm.DB, event *payments.WebhookEvent) (*models.Order, *models.PaymentIntent, error) {
	orderRepo := r.orders.WithTx(tx)
	intent, err := r.payments.WithTx(tx).FindIntentByReference(ctx, event.Provider, event.ProviderReference)
	if err != nil {
		return nil, nil, err
	}

	orderID := event.OrderID
	if orderID == nil && intent != nil {
		orderID = &intent.OrderID
	}
	if orderID == nil {
		return nil, intent, nil
	}
	order, err := orderRepo.FindOrder(ctx, *orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if intent == nil || intent.OrderID == *orderID {
			return nil, intent, nil
		}
		order, err = orderRepo.FindOrder(ctx, intent.OrderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, intent, nil
		}
	}
	if err != nil {
		return nil, nil, err
	}
	if intent != nil && intent.OrderID != order.ID {
		intent = nil
	}
	return order, intent, nil
}

func (r *reconciler) applyOutcome(ctx context.Context, tx *gorm.DB, event *payments.WebhookEvent, order *models.Order, intent *models.PaymentIntent) (enums.WebhookResult, bool, error) {
	switch event.Outcome {
	case enums.PaymentOutcomeSucceeded:
		if event.AmountMinor != order.TotalMinor || !strings.EqualFold(event.Currency, order.Currency) {
			return enums.WebhookResultAmountMismatch, true, nil
		}
		return r.transition(ctx, tx, order, enums.OrderStatusConfirmed, orders.TransitionOptions{
			Actor:        outbox.SystemActor(component),
			Intent:       intent,
			IntentStatus: enums.PaymentIntentStatusCaptured,
		})

	case enums.PaymentOutcomeFailed:
		if superseded(order, intent) {
			// A failed earlier attempt must not cancel the order the buyer is
			// still paying through a newer intent.
			if err := r.payments.WithTx(tx).UpdateStatus(ctx, intent.ID, enums.PaymentIntentStatusFailed); err != nil {
				return "", false, err
			}
			return enums.WebhookResultRecorded, false, nil
		}
		if order.Status != enums.OrderStatusPending {
			r.info(r.withField(ctx, "status", string(order.Status)), "payment failure for order no longer awaiting payment; acknowledged")
			return enums.WebhookResultIgnoredTransition, false, nil
		}
		reason := enums.CancelReasonPaymentFailed
		return r.transition(ctx, tx, order, enums.OrderStatusCancelled, orders.TransitionOptions{
			Reason:       &reason,
			Actor:        outbox.SystemActor(component),
			Intent:       intent,
			IntentStatus: enums.PaymentIntentStatusFailed,
		})

	default:
		if event.Authorized && intent != nil && intent.Status == enums.PaymentIntentStatusCreated {
			if err := r.payments.WithTx(tx).UpdateStatus(ctx, intent.ID, enums.PaymentIntentStatusAuthorized); err != nil {
				return "", false, err
			}
			return enums.WebhookResultApplied, false, nil
		}
		return enums.WebhookResultRecorded, false, nil
	}
}

func (r *reconciler) transition(ctx context.Context, tx *gorm.DB, order *models.Order, to enums.OrderStatus, opts orders.TransitionOptions) (enums.WebhookResult, bool, error) {
	from := order.Status
	err := r.transitions.Apply(ctx, tx, order, to, opts)
	if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		r.info(r.withFields(ctx, map[string]any{
			"order_id": order.ID.String(),
			"from":     string(from),
			"to":       string(to),
		}), "webhook transition not allowed; acknowledged")
		return enums.WebhookResultIgnoredTransition, false, nil
	}
	if err != nil {
		return "", false, err
	}
	return enums.WebhookResultApplied, false, nil
}

func superseded(order *models.Order, intent *models.PaymentIntent) bool {
	return intent != nil && order.PaymentIntentID != nil && *order.PaymentIntentID != intent.ID
}

func (r *reconciler) count(provider enums.PaymentProvider, result string) {
	if r.metrics != nil {
		r.metrics.IncWebhook(string(provider), result)
	}
}

func (r *reconciler) withField(ctx context.Context, key string, value any) context.Context {
	if r.logg == nil {
		return ctx
	}
	return r.logg.WithField(ctx, key, value)
}

func (r *reconciler) withFields(ctx context.Context, fields map[string]any) context.Context {
	if r.logg == nil {
		return ctx
	}
	return r.logg.WithFields(ctx, fields)
}

func (r *reconciler) info(ctx context.Context, msg string) {
	if r.logg != nil {
		r.logg.Info(ctx, msg)
	}
}

func (r *reconciler) warn(ctx context.Context, msg string) {
	if r.logg != nil {
		r.logg.Warn(ctx, msg)
	}
}

func (r *reconciler) logError(ctx context.Context, msg string, err error) {
	if r.logg != nil {
		r.logg.Error(ctx, msg, err)
	}
}

func (r *reconciler) security(ctx context.Context, msg string, err error) {
	if r.logg != nil {
		r.logg.Security(ctx, msg, err)
	}
}
