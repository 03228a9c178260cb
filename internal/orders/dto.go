package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/db/models"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/money"
)

const (
	minItemQuantity = 1
	maxItemQuantity = 100
)

// Actor is the authenticated caller of an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// ItemInput is one requested line of a new order.
type ItemInput struct {
	ListingID uuid.UUID `json:"listing_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=100"`
}

// CreateOrderInput carries a buyer's order request.
type CreateOrderInput struct {
	BuyerID   uuid.UUID
	AddressID uuid.UUID
	Items     []ItemInput
	Notes     *string
}

// CancelInput requests cancellation of an order by its buyer.
type CancelInput struct {
	OrderID uuid.UUID
	Actor   Actor
}

// AdvanceInput requests a fulfilment transition by a seller or admin.
type AdvanceInput struct {
	OrderID uuid.UUID
	Target  enums.OrderStatus
	Reason  *enums.CancelReason
	Actor   Actor
}

// OrderItemView is an order line as returned to callers.
type OrderItemView struct {
	ListingID      uuid.UUID `json:"listing_id"`
	SellerID       uuid.UUID `json:"seller_id"`
	Title          string    `json:"title"`
	Quantity       int       `json:"quantity"`
	UnitPriceMinor int64     `json:"unit_price_minor"`
	LineTotalMinor int64     `json:"line_total_minor"`
}

// OrderView is an order as returned to callers. Amounts are minor units; Total
// repeats total_minor as a major-unit string for display.
type OrderView struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	BuyerID         uuid.UUID           `json:"buyer_id"`
	AddressID       uuid.UUID           `json:"address_id"`
	Status          enums.OrderStatus   `json:"status"`
	SubtotalMinor   int64               `json:"subtotal_minor"`
	TaxMinor        int64               `json:"tax_minor"`
	ShippingMinor   int64               `json:"shipping_minor"`
	TotalMinor      int64               `json:"total_minor"`
	Total           string              `json:"total"`
	Currency        string              `json:"currency"`
	Notes           *string             `json:"notes,omitempty"`
	PaymentIntentID *uuid.UUID          `json:"payment_intent_id,omitempty"`
	CancelReason    *enums.CancelReason `json:"cancel_reason,omitempty"`
	AllowedTargets  []enums.OrderStatus `json:"allowed_transitions"`
	Items           []OrderItemView     `json:"items"`
	ConfirmedAt     *time.Time          `json:"confirmed_at,omitempty"`
	CancelledAt     *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderView `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// ToView maps a stored order to its API shape.
func ToView(order *models.Order) *OrderView {
	if order == nil {
		return nil
	}
	items := make([]OrderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemView{
			ListingID:      item.ListingID,
			SellerID:       item.SellerID,
			Title:          item.Title,
			Quantity:       item.Quantity,
			UnitPriceMinor: item.UnitPriceMinor,
			LineTotalMinor: item.LineTotalMinor,
		})
	}
	return &OrderView{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		BuyerID:         order.BuyerID,
		AddressID:       order.AddressID,
		Status:          order.Status,
		SubtotalMinor:   order.SubtotalMinor,
		TaxMinor:        order.TaxMinor,
		ShippingMinor:   order.ShippingMinor,
		TotalMinor:      order.TotalMinor,
		Total:           money.ToMajor(order.TotalMinor),
		Currency:        order.Currency,
		Notes:           order.Notes,
		PaymentIntentID: order.PaymentIntentID,
		CancelReason:    order.CancelReason,
		AllowedTargets:  AllowedTargets(order.Status),
		Items:           items,
		ConfirmedAt:     order.ConfirmedAt,
		CancelledAt:     order.CancelledAt,
		CreatedAt:       order.CreatedAt,
	}
}
