// Package payments creates provider payment intents and turns provider
// callbacks into provider-neutral webhook events.
package payments

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
	pkgerrors "github.com/OmarEhab007/cargoparts-sub002/pkg/errors"
)

// Gateway is implemented once per payment provider.
type Gateway interface {
	Provider() enums.PaymentProvider
	CreateIntent(ctx context.Context, req IntentRequest) (*IntentHandle, error)
	// CancelIntent stops a superseded attempt from being paid at the provider.
	CancelIntent(ctx context.Context, providerReference string) error
	ParseWebhook(ctx context.Context, rawBody []byte, signatureHeader string) (*WebhookEvent, error)
	NormalizeStatus(providerStatus string) enums.PaymentOutcome
}

// IntentRequest describes one payment attempt for an order.
type IntentRequest struct {
	OrderID     uuid.UUID
	OrderNumber string
	BuyerID     uuid.UUID
	AmountMinor int64
	Currency    string
	Attempt     int
	// IdempotencyKey is stable per (order, attempt) so a retried request
	// never creates a second provider charge.
	IdempotencyKey string
	// SourceID is the tokenized payment source; required by square.
	SourceID string
}

// IntentHandle is the provider-neutral result of CreateIntent.
type IntentHandle struct {
	ProviderReference string
	ClientSecret      *string
	RedirectURL       *string
	Status            enums.PaymentIntentStatus
}

// WebhookEvent is a verified provider callback.
type WebhookEvent struct {
	Provider          enums.PaymentProvider
	EventID           string
	EventType         string
	ProviderReference string
	OrderID           *uuid.UUID
	AmountMinor       int64
	Currency          string
	ProviderStatus    string
	Outcome           enums.PaymentOutcome
	// Authorized marks a PENDING outcome where funds are held but not captured.
	Authorized bool
	// Ignored marks callbacks that carry no payment outcome, e.g. other
	// object types subscribed on the same endpoint.
	Ignored bool
	// Malformed marks a verified callback whose body could not be decoded.
	// It is also Ignored.
	Malformed  bool
	ReceivedAt time.Time
}

// IdempotencyKey is the provider idempotency key for an order attempt.
func IdempotencyKey(orderID uuid.UUID, attempt int) string {
	return fmt.Sprintf("order:%s:attempt:%d", orderID, attempt)
}

// Registry selects a Gateway by provider.
type Registry struct {
	gateways map[enums.PaymentProvider]Gateway
}

// NewRegistry indexes gateways by provider. Nil gateways are skipped.
func NewRegistry(gateways ...Gateway) (*Registry, error) {
	r := &Registry{gateways: make(map[enums.PaymentProvider]Gateway, len(gateways))}
	for _, gw := range gateways {
		if gw == nil {
			continue
		}
		provider := gw.Provider()
		if !provider.IsValid() {
			return nil, fmt.Errorf("unknown payment provider %q", provider)
		}
		if _, exists := r.gateways[provider]; exists {
			return nil, fmt.Errorf("payment provider %q registered twice", provider)
		}
		r.gateways[provider] = gw
	}
	return r, nil
}

// Get returns the gateway for provider or a VALIDATION_ERROR when the provider
// is unknown or not configured.
func (r *Registry) Get(provider enums.PaymentProvider) (Gateway, error) {
	if r != nil {
		if gw, ok := r.gateways[provider]; ok {
			return gw, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment provider not supported").
		WithDetails(map[string]any{"provider": string(provider)})
}

// Providers lists the configured providers in name order.
func (r *Registry) Providers() []enums.PaymentProvider {
	if r == nil {
		return nil
	}
	out := make([]enums.PaymentProvider, 0, len(r.gateways))
	for provider := range r.gateways {
		out = append(out, provider)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func parseOrderID(raw string) *uuid.UUID {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return nil
	}
	return &id
}
