package payments

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
	pkgerrors "github.com/OmarEhab007/cargoparts-sub002/pkg/errors"
	pkgstripe "github.com/OmarEhab007/cargoparts-sub002/pkg/stripe"
)

const testStripeSecret = "whsec_test_secret"

type fakeStripeAPI struct {
	secret string
	params *stripe.PaymentIntentCreateParams
	intent *stripe.PaymentIntent
	err    error

	cancelledID string
	cancel      *stripe.PaymentIntentCancelParams
}

func (f *fakeStripeAPI) CreatePaymentIntent(_ context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return f.intent, nil
}

func (f *fakeStripeAPI) CancelPaymentIntent(_ context.Context, id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error) {
	f.cancelledID = id
	f.cancel = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.PaymentIntent{ID: id, Status: stripe.PaymentIntentStatusCanceled}, nil
}

func (f *fakeStripeAPI) ConstructEvent(payload []byte, header string) (stripe.Event, error) {
	return pkgstripe.ConstructEvent(payload, header, f.secret)
}

func stripePayload(eventID, eventType, intentID, status string, orderID uuid.UUID, amount int64) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"object":"event","type":%q,"created":1772841600,"data":{"object":{"id":%q,"object":"payment_intent","amount":%d,"currency":"sar","status":%q,"metadata":{"order_id":%q}}}}`,
		eventID, eventType, intentID, amount, status, orderID.String()))
}

func signStripe(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: secret}).Header
}

func TestStripeCreateIntent(t *testing.T) {
	api := &fakeStripeAPI{intent: &stripe.PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret", Status: stripe.PaymentIntentStatusRequiresPaymentMethod}}
	adapter := NewStripeAdapter(api)
	orderID := uuid.New()

	handle, err := adapter.CreateIntent(context.Background(), IntentRequest{
		OrderID:        orderID,
		OrderNumber:    "CP2603070001",
		AmountMinor:    31250,
		Currency:       "SAR",
		Attempt:        1,
		IdempotencyKey: IdempotencyKey(orderID, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", handle.ProviderReference)
	require.NotNil(t, handle.ClientSecret)
	assert.Equal(t, "pi_123_secret", *handle.ClientSecret)
	assert.Equal(t, enums.PaymentIntentStatusCreated, handle.Status)

	require.NotNil(t, api.params)
	assert.Equal(t, int64(31250), *api.params.Amount)
	assert.Equal(t, "sar", *api.params.Currency)
	assert.Equal(t, orderID.String(), api.params.Metadata["order_id"])
	require.NotNil(t, api.params.IdempotencyKey)
	assert.Equal(t, IdempotencyKey(orderID, 1), *api.params.IdempotencyKey)
}

func TestStripeCreateIntentGatewayFailure(t *testing.T) {
	adapter := NewStripeAdapter(&fakeStripeAPI{err: errors.New("connection refused")})

	_, err := adapter.CreateIntent(context.Background(), IntentRequest{OrderID: uuid.New(), AmountMinor: 100, Currency: "SAR"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePaymentGateway))
	assert.True(t, pkgerrors.Retryable(err))
}

func TestStripeCancelIntent(t *testing.T) {
	api := &fakeStripeAPI{}
	require.NoError(t, NewStripeAdapter(api).CancelIntent(context.Background(), "pi_old"))
	assert.Equal(t, "pi_old", api.cancelledID)
	require.NotNil(t, api.cancel.CancellationReason)
	assert.Equal(t, "abandoned", *api.cancel.CancellationReason)

	api = &fakeStripeAPI{err: errors.New("connection refused")}
	err := NewStripeAdapter(api).CancelIntent(context.Background(), "pi_old")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePaymentGateway))
}

func TestStripeParseWebhook(t *testing.T) {
	adapter := NewStripeAdapter(&fakeStripeAPI{secret: testStripeSecret})
	orderID := uuid.New()
	payload := stripePayload("evt_1", "payment_intent.succeeded", "pi_1", "succeeded", orderID, 31250)

	event, err := adapter.ParseWebhook(context.Background(), payload, signStripe(payload, testStripeSecret))
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentProviderStripe, event.Provider)
	assert.Equal(t, "evt_1", event.EventID)
	assert.Equal(t, "pi_1", event.ProviderReference)
	require.NotNil(t, event.OrderID)
	assert.Equal(t, orderID, *event.OrderID)
	assert.Equal(t, int64(31250), event.AmountMinor)
	assert.Equal(t, "SAR", event.Currency)
	assert.Equal(t, enums.PaymentOutcomeSucceeded, event.Outcome)
	assert.False(t, event.Ignored)
	assert.Equal(t, int64(1772841600), event.ReceivedAt.Unix())
}

func TestStripeParseWebhookOutcomes(t *testing.T) {
	adapter := NewStripeAdapter(&fakeStripeAPI{secret: testStripeSecret})
	cases := []struct {
		eventType  string
		status     string
		outcome    enums.PaymentOutcome
		authorized bool
	}{
		{"payment_intent.payment_failed", "requires_payment_method", enums.PaymentOutcomeFailed, false},
		{"payment_intent.canceled", "canceled", enums.PaymentOutcomeFailed, false},
		{"payment_intent.processing", "processing", enums.PaymentOutcomePending, false},
		{"payment_intent.amount_capturable_updated", "requires_capture", enums.PaymentOutcomePending, true},
	}
	for _, tc := range cases {
		t.Run(tc.eventType, func(t *testing.T) {
			payload := stripePayload("evt_"+tc.status, tc.eventType, "pi_1", tc.status, uuid.New(), 100)
			event, err := adapter.ParseWebhook(context.Background(), payload, signStripe(payload, testStripeSecret))
			require.NoError(t, err)
			assert.Equal(t, tc.outcome, event.Outcome)
			assert.Equal(t, tc.authorized, event.Authorized)
		})
	}
}

func TestStripeParseWebhookRejectsBadSignature(t *testing.T) {
	adapter := NewStripeAdapter(&fakeStripeAPI{secret: testStripeSecret})
	payload := stripePayload("evt_1", "payment_intent.succeeded", "pi_1", "succeeded", uuid.New(), 100)

	_, err := adapter.ParseWebhook(context.Background(), payload, signStripe(payload, "whsec_attacker"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidSignature))

	_, err = adapter.ParseWebhook(context.Background(), payload, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidSignature))
}

func TestStripeParseWebhookIgnoresOtherObjects(t *testing.T) {
	adapter := NewStripeAdapter(&fakeStripeAPI{secret: testStripeSecret})
	payload := []byte(`{"id":"evt_9","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_1","object":"charge"}}}`)

	event, err := adapter.ParseWebhook(context.Background(), payload, signStripe(payload, testStripeSecret))
	require.NoError(t, err)
	assert.True(t, event.Ignored)
	assert.Equal(t, "evt_9", event.EventID)
}

func TestStripeParseWebhookAcknowledgesUndecodableIntent(t *testing.T) {
	adapter := NewStripeAdapter(&fakeStripeAPI{secret: testStripeSecret})
	payload := []byte(`{"id":"evt_bad","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent","amount":"lots"}}}`)

	event, err := adapter.ParseWebhook(context.Background(), payload, signStripe(payload, testStripeSecret))
	require.NoError(t, err)
	assert.Equal(t, "evt_bad", event.EventID)
	assert.True(t, event.Ignored)
	assert.True(t, event.Malformed)
	assert.Empty(t, event.ProviderReference)
}

func TestStripeNormalizeStatus(t *testing.T) {
	adapter := NewStripeAdapter(nil)
	assert.Equal(t, enums.PaymentOutcomeSucceeded, adapter.NormalizeStatus("succeeded"))
	assert.Equal(t, enums.PaymentOutcomeSucceeded, adapter.NormalizeStatus("payment_intent.succeeded"))
	assert.Equal(t, enums.PaymentOutcomeFailed, adapter.NormalizeStatus("canceled"))
	assert.Equal(t, enums.PaymentOutcomeFailed, adapter.NormalizeStatus("payment_intent.payment_failed"))
	assert.Equal(t, enums.PaymentOutcomePending, adapter.NormalizeStatus("requires_action"))
	assert.Equal(t, enums.PaymentOutcomePending, adapter.NormalizeStatus("something_new"))
}
