// Package payloads defines the data section of each outbox event.
package payloads

import (
	"github.com/google/uuid"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
)

// OrderItem is a purchased line as carried in order events.
type OrderItem struct {
	ListingID      uuid.UUID `json:"listing_id"`
	SellerID       uuid.UUID `json:"seller_id"`
	Quantity       int       `json:"quantity"`
	UnitPriceMinor int64     `json:"unit_price_minor"`
}

// OrderCreatedEvent is emitted once the order and its reservations commit.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID   `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	BuyerID     uuid.UUID   `json:"buyer_id"`
	TotalMinor  int64       `json:"total_minor"`
	Currency    string      `json:"currency"`
	Items       []OrderItem `json:"items"`
}

// OrderConfirmedEvent is emitted when a successful payment confirms an order.
type OrderConfirmedEvent struct {
	OrderID         uuid.UUID             `json:"order_id"`
	OrderNumber     string                `json:"order_number"`
	PaymentIntentID *uuid.UUID            `json:"payment_intent_id,omitempty"`
	Provider        enums.PaymentProvider `json:"provider"`
	AmountMinor     int64                 `json:"amount_minor"`
	Currency        string                `json:"currency"`
}

// OrderCancelledEvent is emitted for every cancellation regardless of source.
type OrderCancelledEvent struct {
	OrderID        uuid.UUID          `json:"order_id"`
	OrderNumber    string             `json:"order_number"`
	PreviousStatus enums.OrderStatus  `json:"previous_status"`
	Reason         enums.CancelReason `json:"reason"`
	Restocked      bool               `json:"restocked"`
}

// OrderStatusChangedEvent covers fulfilment transitions without a dedicated
// event type.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
}

// PaymentIntentCreatedEvent is emitted when a provider intent is recorded.
type PaymentIntentCreatedEvent struct {
	PaymentIntentID   uuid.UUID             `json:"payment_intent_id"`
	OrderID           uuid.UUID             `json:"order_id"`
	Provider          enums.PaymentProvider `json:"provider"`
	ProviderReference string                `json:"provider_reference"`
	AmountMinor       int64                 `json:"amount_minor"`
	Currency          string                `json:"currency"`
	Attempt           int                   `json:"attempt"`
}
