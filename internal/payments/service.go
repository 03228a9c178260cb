package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OmarEhab007/cargoparts-sub002/internal/orders"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/db"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/db/models"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
	pkgerrors "github.com/OmarEhab007/cargoparts-sub002/pkg/errors"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/logger"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/money"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/outbox"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/outbox/payloads"
)

const providerReferenceConstraint = "ux_payment_intents_provider_reference"

// StartInput asks for a new payment attempt on a buyer's order.
type StartInput struct {
	OrderID  uuid.UUID
	BuyerID  uuid.UUID
	Provider string
	SourceID string
}

// StartResult is what the client needs to complete payment.
type StartResult struct {
	Intent       *models.PaymentIntent
	ClientSecret *string
	RedirectURL  *string
}

// Service starts payment attempts.
type Service interface {
	Start(ctx context.Context, input StartInput) (*StartResult, error)
}

type ServiceParams struct {
	Registry *Registry
	Orders   orders.Repository
	Repo     Repository
	TX       db.TxRunner
	Outbox   outbox.Emitter
	Logger   *logger.Logger
}

type service struct {
	registry *Registry
	orders   orders.Repository
	repo     Repository
	tx       db.TxRunner
	outbox   outbox.Emitter
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	if p.Registry == nil {
		return nil, fmt.Errorf("payment gateway registry required")
	}
	if p.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if p.TX == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		registry: p.Registry,
		orders:   p.Orders,
		repo:     p.Repo,
		tx:       p.TX,
		outbox:   p.Outbox,
		logg:     p.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start creates a provider intent for a PENDING order. The provider is called
// outside any transaction; the order is re-checked afterwards and the new
// intent supersedes any live one.
func (s *service) Start(ctx context.Context, input StartInput) (*StartResult, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	provider, err := enums.ParsePaymentProvider(input.Provider)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported payment provider").
			WithDetails(map[string]any{"provider": input.Provider})
	}
	gateway, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindOrder(ctx, input.OrderID)
	if err != nil {
		return nil, orderLookupError(err, input.OrderID)
	}
	if order.BuyerID != input.BuyerID {
		return nil, orderNotFound(input.OrderID)
	}
	if order.Status != enums.OrderStatusPending {
		return nil, notPayable(order)
	}

	count, err := s.repo.CountIntents(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "count payment intents")
	}
	attempt := int(count) + 1

	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"provider": string(provider),
			"attempt":  attempt,
			"amount":   money.Format(order.TotalMinor, order.Currency),
		})
	}

	handle, err := gateway.CreateIntent(ctx, IntentRequest{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		BuyerID:        order.BuyerID,
		AmountMinor:    order.TotalMinor,
		Currency:       order.Currency,
		Attempt:        attempt,
		IdempotencyKey: IdempotencyKey(order.ID, attempt),
		SourceID:       strings.TrimSpace(input.SourceID),
	})
	if err != nil {
		if s.logg != nil {
			s.logg.Error(logCtx, "payment intent creation failed", err)
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentGateway, err, "create payment intent")
	}

	intent := &models.PaymentIntent{
		OrderID:           order.ID,
		Provider:          provider,
		ProviderReference: handle.ProviderReference,
		AmountMinor:       order.TotalMinor,
		Currency:          order.Currency,
		Status:            handle.Status,
		ClientSecret:      handle.ClientSecret,
		RedirectURL:       handle.RedirectURL,
		Attempt:           attempt,
	}
	if intent.Status == "" {
		intent.Status = enums.PaymentIntentStatusCreated
	}

	var superseded []models.PaymentIntent
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		superseded = nil
		current, err := s.orders.WithTx(tx).FindOrder(ctx, order.ID)
		if err != nil {
			return orderLookupError(err, order.ID)
		}
		if current.Status != enums.OrderStatusPending {
			return notPayable(current)
		}

		repo := s.repo.WithTx(tx)
		superseded, err = repo.SupersedeLive(ctx, order.ID, s.now())
		if err != nil {
			return err
		}
		if err := repo.CreateIntent(ctx, intent); err != nil {
			return err
		}
		attached, err := repo.AttachToOrder(ctx, order.ID, intent.ID)
		if err != nil {
			return err
		}
		if !attached {
			return notPayable(current)
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentIntentCreated,
			AggregateType: enums.AggregatePaymentIntent,
			AggregateID:   intent.ID,
			Actor:         &outbox.ActorRef{UserID: input.BuyerID, Role: string(enums.UserRoleBuyer)},
			Data: payloads.PaymentIntentCreatedEvent{
				PaymentIntentID:   intent.ID,
				OrderID:           order.ID,
				Provider:          provider,
				ProviderReference: intent.ProviderReference,
				AmountMinor:       intent.AmountMinor,
				Currency:          intent.Currency,
				Attempt:           attempt,
			},
		})
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) && s.logg != nil {
			s.logg.Warn(s.logg.WithField(logCtx, "provider_reference", handle.ProviderReference), "order left PENDING during payment start; provider intent orphaned")
		}
		if db.IsUniqueViolation(err, providerReferenceConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payment attempt already recorded")
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "record payment intent")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(logCtx, "payment_intent_id", intent.ID.String()), "payment intent created")
	}
	s.cancelAtProvider(logCtx, superseded)
	return &StartResult{
		Intent:       intent,
		ClientSecret: handle.ClientSecret,
		RedirectURL:  handle.RedirectURL,
	}, nil
}

// cancelAtProvider voids superseded attempts so only the newest intent can be
// paid. A failure leaves the old intent payable; its success is then reported
// as an ignored transition and needs a manual refund.
func (s *service) cancelAtProvider(ctx context.Context, superseded []models.PaymentIntent) {
	for _, old := range superseded {
		if old.ProviderReference == "" {
			continue
		}
		err := errors.New("payment gateway not configured")
		if gateway, getErr := s.registry.Get(old.Provider); getErr == nil {
			err = gateway.CancelIntent(ctx, old.ProviderReference)
		}
		if err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"superseded_intent_id": old.ID.String(),
				"provider_reference":   old.ProviderReference,
				"error":                err.Error(),
			}), "superseded payment intent not cancelled at provider")
		}
	}
}

func notPayable(order *models.Order) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment").
		WithDetails(map[string]any{
			"order_id": order.ID.String(),
			"status":   string(order.Status),
		})
}

func orderNotFound(orderID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
		WithDetails(map[string]any{"order_id": orderID.String()})
}

func orderLookupError(err error, orderID uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return orderNotFound(orderID)
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load order")
}
