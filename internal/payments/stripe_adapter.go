package payments

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
	pkgerrors "github.com/OmarEhab007/cargoparts-sub002/pkg/errors"
)

const stripeEventPrefix = "payment_intent."

// StripeAPI is the subset of pkg/stripe.Client the adapter calls.
type StripeAPI interface {
	CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error)
	ConstructEvent(payload []byte, header string) (stripe.Event, error)
}

// StripeAdapter implements Gateway on Stripe PaymentIntents.
type StripeAdapter struct {
	api StripeAPI
}

func NewStripeAdapter(api StripeAPI) *StripeAdapter {
	return &StripeAdapter{api: api}
}

func (a *StripeAdapter) Provider() enums.PaymentProvider {
	return enums.PaymentProviderStripe
}

func (a *StripeAdapter) CreateIntent(ctx context.Context, req IntentRequest) (*IntentHandle, error) {
	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Description: stripe.String("Order " + req.OrderNumber),
	}
	params.Metadata = map[string]string{
		"order_id":     req.OrderID.String(),
		"order_number": req.OrderNumber,
	}
	params.SetIdempotencyKey(req.IdempotencyKey)

	intent, err := a.api.CreatePaymentIntent(ctx, params)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentGateway, err, "stripe create payment intent failed")
	}

	handle := &IntentHandle{
		ProviderReference: intent.ID,
		Status:            enums.PaymentIntentStatusCreated,
	}
	if intent.ClientSecret != "" {
		secret := intent.ClientSecret
		handle.ClientSecret = &secret
	}
	if intent.Status == stripe.PaymentIntentStatusRequiresCapture {
		handle.Status = enums.PaymentIntentStatusAuthorized
	}
	return handle, nil
}

func (a *StripeAdapter) CancelIntent(ctx context.Context, providerReference string) error {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	if _, err := a.api.CancelPaymentIntent(ctx, providerReference, params); err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodePaymentGateway, err, "stripe cancel payment intent failed")
	}
	return nil
}

func (a *StripeAdapter) ParseWebhook(_ context.Context, rawBody []byte, signatureHeader string) (*WebhookEvent, error) {
	if strings.TrimSpace(signatureHeader) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSignature, "stripe signature missing")
	}
	event, err := a.api.ConstructEvent(rawBody, signatureHeader)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidSignature, err, "verify stripe signature")
	}

	out := &WebhookEvent{
		Provider:   enums.PaymentProviderStripe,
		EventID:    event.ID,
		EventType:  string(event.Type),
		Outcome:    enums.PaymentOutcomePending,
		ReceivedAt: time.Now().UTC(),
	}
	if event.Created > 0 {
		out.ReceivedAt = time.Unix(event.Created, 0).UTC()
	}
	if !strings.HasPrefix(out.EventType, stripeEventPrefix) || event.Data == nil {
		out.Ignored = true
		return out, nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		out.Ignored = true
		out.Malformed = true
		return out, nil
	}
	out.ProviderReference = intent.ID
	out.AmountMinor = intent.Amount
	out.Currency = strings.ToUpper(string(intent.Currency))
	out.ProviderStatus = string(intent.Status)
	out.OrderID = parseOrderID(intent.Metadata["order_id"])

	out.Outcome = a.NormalizeStatus(out.EventType)
	if out.Outcome == enums.PaymentOutcomePending {
		out.Outcome = a.NormalizeStatus(out.ProviderStatus)
	}
	out.Authorized = out.Outcome == enums.PaymentOutcomePending &&
		intent.Status == stripe.PaymentIntentStatusRequiresCapture
	return out, nil
}

// NormalizeStatus accepts either an event type or a payment intent status.
func (a *StripeAdapter) NormalizeStatus(providerStatus string) enums.PaymentOutcome {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "payment_intent.succeeded", string(stripe.PaymentIntentStatusSucceeded):
		return enums.PaymentOutcomeSucceeded
	case "payment_intent.payment_failed", "payment_intent.canceled", string(stripe.PaymentIntentStatusCanceled):
		return enums.PaymentOutcomeFailed
	default:
		return enums.PaymentOutcomePending
	}
}
