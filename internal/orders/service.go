package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OmarEhab007/cargoparts-sub002/internal/inventory"
	"github.com/OmarEhab007/cargoparts-sub002/internal/pricing"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/db"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/db/models"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
	pkgerrors "github.com/OmarEhab007/cargoparts-sub002/pkg/errors"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/logger"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/metrics"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/outbox"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/outbox/payloads"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/pagination"
)

const (
	orderNumberConstraint = "ux_orders_order_number"
	maxCreateAttempts     = 5
)

// Service defines buyer and seller order operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	List(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	Advance(ctx context.Context, input AdvanceInput) (*models.Order, error)
}

// ServiceParams groups the collaborators of the order service. Metrics and
// Logger may be nil.
type ServiceParams struct {
	Repo     Repository
	TX       db.TxRunner
	Ledger   inventory.Ledger
	Outbox   outbox.Emitter
	Numbers  NumberGenerator
	Pricing  pricing.Policy
	Currency string
	Metrics  *metrics.OrderMetrics
	Logger   *logger.Logger
}

type service struct {
	repo        Repository
	tx          db.TxRunner
	ledger      inventory.Ledger
	outbox      outbox.Emitter
	numbers     NumberGenerator
	policy      pricing.Policy
	currency    string
	transitions Transitioner
	logg        *logger.Logger
}

// NewService builds the order service with the required dependencies.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.TX == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if p.Numbers == nil {
		return nil, fmt.Errorf("order number generator required")
	}
	currency := enums.CurrencySAR
	if strings.TrimSpace(p.Currency) != "" {
		parsed, err := enums.ParseCurrency(p.Currency)
		if err != nil {
			return nil, err
		}
		currency = parsed
	}
	return &service{
		repo:        p.Repo,
		tx:          p.TX,
		ledger:      p.Ledger,
		outbox:      p.Outbox,
		numbers:     p.Numbers,
		policy:      p.Pricing,
		currency:    string(currency),
		transitions: NewTransitioner(p.Repo, p.Ledger, p.Outbox, p.Metrics),
		logg:        p.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	address, err := s.repo.FindAddress(ctx, input.AddressID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, persistence(err, "load address")
	}
	if address == nil || address.BuyerID != input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address not found").
			WithDetails(map[string]any{"address_id": input.AddressID.String()})
	}

	ids := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		ids = append(ids, item.ListingID)
	}
	listings, err := s.repo.FindListings(ctx, ids)
	if err != nil {
		return nil, persistence(err, "load listings")
	}
	byID := make(map[uuid.UUID]models.Listing, len(listings))
	for _, listing := range listings {
		byID[listing.ID] = listing
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	priced := make([]pricing.Line, 0, len(input.Items))
	lines := make([]inventory.Line, 0, len(input.Items))
	for _, item := range input.Items {
		listing, ok := byID[item.ListingID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing not found").
				WithDetails(map[string]any{"listing_id": item.ListingID.String()})
		}
		if item.Quantity < listing.MinOrderQty {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity below listing minimum").
				WithDetails(map[string]any{
					"listing_id":    item.ListingID.String(),
					"min_order_qty": listing.MinOrderQty,
				})
		}
		if !strings.EqualFold(listing.Currency, s.currency) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing currency not supported").
				WithDetails(map[string]any{"listing_id": item.ListingID.String(), "currency": listing.Currency})
		}
		line := pricing.Line{UnitPriceMinor: listing.PriceMinor, Quantity: item.Quantity}
		priced = append(priced, line)
		lines = append(lines, inventory.Line{ListingID: listing.ID, Quantity: item.Quantity})
		items = append(items, models.OrderItem{
			ListingID:      listing.ID,
			SellerID:       listing.SellerID,
			Title:          listing.Title,
			Quantity:       item.Quantity,
			UnitPriceMinor: listing.PriceMinor,
			LineTotalMinor: pricing.LineTotal(line),
		})
	}
	breakdown := pricing.Calculate(priced, s.policy)

	for attempt := 1; ; attempt++ {
		order := &models.Order{
			ID:            uuid.New(),
			OrderNumber:   s.numbers.Next(ctx),
			BuyerID:       input.BuyerID,
			AddressID:     input.AddressID,
			Status:        enums.OrderStatusPending,
			SubtotalMinor: breakdown.SubtotalMinor,
			TaxMinor:      breakdown.TaxMinor,
			ShippingMinor: breakdown.ShippingMinor,
			TotalMinor:    breakdown.TotalMinor,
			Currency:      s.currency,
			Notes:         input.Notes,
		}
		orderItems := make([]models.OrderItem, len(items))
		for i, item := range items {
			item.OrderID = order.ID
			orderItems[i] = item
		}

		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.CreateOrder(ctx, order); err != nil {
				return err
			}
			if err := repo.CreateOrderItems(ctx, orderItems); err != nil {
				return err
			}
			if _, err := s.ledger.ReserveAll(ctx, tx, order.ID, lines); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, createdEvent(order, orderItems))
		})
		if err == nil {
			order.Items = orderItems
			s.logCreated(ctx, order)
			return order, nil
		}
		if db.IsUniqueViolation(err, orderNumberConstraint) && attempt < maxCreateAttempts {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "order_number", order.OrderNumber), "order number collision, retrying")
			}
			continue
		}
		return nil, persistence(err, "create order")
	}
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, lookupError(err, orderID)
	}
	if !canView(order, actor) {
		return nil, notFound(orderID)
	}
	return order, nil
}

func (s *service) List(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	if buyerID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	orders, next, err := s.repo.ListBuyerOrders(ctx, buyerID, params)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, "", persistence(err, "list orders")
	}
	return orders, next, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	reason := enums.CancelReasonBuyerCancelled
	return s.transition(ctx, input.OrderID, enums.OrderStatusCancelled, input.Actor, func(order *models.Order) (TransitionOptions, error) {
		if order.BuyerID != input.Actor.UserID && input.Actor.Role != enums.UserRoleAdmin {
			return TransitionOptions{}, notFound(order.ID)
		}
		opts := TransitionOptions{Reason: &reason}
		if order.Status == enums.OrderStatusPending {
			opts.IntentStatus = enums.PaymentIntentStatusCancelled
		}
		return opts, nil
	})
}

func (s *service) Advance(ctx context.Context, input AdvanceInput) (*models.Order, error) {
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Actor.Role != enums.UserRoleSeller && input.Actor.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller or admin role required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": string(input.Target)})
	}
	if input.Target == enums.OrderStatusConfirmed {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders are confirmed by payment only")
	}

	return s.transition(ctx, input.OrderID, input.Target, input.Actor, func(order *models.Order) (TransitionOptions, error) {
		if input.Actor.Role == enums.UserRoleSeller && !sellsIn(order, input.Actor.UserID) {
			return TransitionOptions{}, notFound(order.ID)
		}
		opts := TransitionOptions{}
		if input.Target == enums.OrderStatusCancelled {
			reason := enums.CancelReasonSellerRejected
			switch {
			case input.Reason != nil:
				reason = *input.Reason
			case order.Status == enums.OrderStatusDisputed:
				reason = enums.CancelReasonDisputeClosed
			}
			opts.Reason = &reason
			if order.Status == enums.OrderStatusPending {
				opts.IntentStatus = enums.PaymentIntentStatusCancelled
			}
		}
		if input.Target == enums.OrderStatusRefunded {
			opts.IntentStatus = enums.PaymentIntentStatusRefunded
		}
		return opts, nil
	})
}

// transition loads the order inside a transaction, lets authorize veto or
// shape the change, and applies it through the shared transition path.
func (s *service) transition(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, actor Actor, authorize func(*models.Order) (TransitionOptions, error)) (*models.Order, error) {
	var out *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindOrder(ctx, orderID)
		if err != nil {
			return lookupError(err, orderID)
		}
		opts, err := authorize(order)
		if err != nil {
			return err
		}
		opts.Actor = &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
		if err := s.transitions.Apply(ctx, tx, order, to, opts); err != nil {
			return err
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, persistence(err, "transition order")
	}
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, out.ID.String())
		logCtx = s.logg.WithField(logCtx, "status", string(out.Status))
		s.logg.Info(logCtx, "order status changed")
	}
	return out, nil
}

func (s *service) logCreated(ctx context.Context, order *models.Order) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"order_number": order.OrderNumber,
		"total_minor":  order.TotalMinor,
		"items":        len(order.Items),
	})
	s.logg.Info(logCtx, "order created")
}

func validateCreate(input CreateOrderInput) error {
	if input.BuyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer required")
	}
	if input.AddressID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "address_id required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "items required")
	}
	seen := make(map[uuid.UUID]struct{}, len(input.Items))
	for _, item := range input.Items {
		if item.ListingID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "listing_id required")
		}
		if item.Quantity < minItemQuantity || item.Quantity > maxItemQuantity {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity out of range").
				WithDetails(map[string]any{
					"listing_id": item.ListingID.String(),
					"min":        minItemQuantity,
					"max":        maxItemQuantity,
				})
		}
		if _, dup := seen[item.ListingID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate listing in order").
				WithDetails(map[string]any{"listing_id": item.ListingID.String()})
		}
		seen[item.ListingID] = struct{}{}
	}
	return nil
}

func createdEvent(order *models.Order, items []models.OrderItem) outbox.DomainEvent {
	lines := make([]payloads.OrderItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, payloads.OrderItem{
			ListingID:      item.ListingID,
			SellerID:       item.SellerID,
			Quantity:       item.Quantity,
			UnitPriceMinor: item.UnitPriceMinor,
		})
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: order.BuyerID, Role: string(enums.UserRoleBuyer)},
		Data: payloads.OrderCreatedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			BuyerID:     order.BuyerID,
			TotalMinor:  order.TotalMinor,
			Currency:    order.Currency,
			Items:       lines,
		},
	}
}

func canView(order *models.Order, actor Actor) bool {
	switch actor.Role {
	case enums.UserRoleAdmin:
		return true
	case enums.UserRoleSeller:
		return sellsIn(order, actor.UserID)
	default:
		return order.BuyerID == actor.UserID
	}
}

func sellsIn(order *models.Order, sellerID uuid.UUID) bool {
	for _, item := range order.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}

func notFound(orderID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
		WithDetails(map[string]any{"order_id": orderID.String()})
}

func lookupError(err error, orderID uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(orderID)
	}
	return persistence(err, "load order")
}

// persistence passes typed errors through and marks anything else as a
// retryable storage failure.
func persistence(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, msg)
}
