package payments

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
	pkgerrors "github.com/OmarEhab007/cargoparts-sub002/pkg/errors"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/square"
)

// SquareAPI is the subset of pkg/square.Client the adapter calls.
type SquareAPI interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
	CancelPayment(ctx context.Context, paymentID string) (*sq.Payment, error)
	VerifySignature(body []byte, signature string) error
}

// SquareAdapter implements Gateway on the Square Payments API.
type SquareAdapter struct {
	api SquareAPI
}

func NewSquareAdapter(api SquareAPI) *SquareAdapter {
	return &SquareAdapter{api: api}
}

func (a *SquareAdapter) Provider() enums.PaymentProvider {
	return enums.PaymentProviderSquare
}

func (a *SquareAdapter) CreateIntent(ctx context.Context, req IntentRequest) (*IntentHandle, error) {
	if strings.TrimSpace(req.SourceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source_id required for square payments")
	}
	payment, err := a.api.CreatePayment(ctx, square.PaymentCreateParams{
		AmountMinor:    req.AmountMinor,
		Currency:       req.Currency,
		SourceID:       req.SourceID,
		IdempotencyKey: squareIdempotencyKey(req.IdempotencyKey),
		ReferenceID:    req.OrderID.String(),
		Note:           "Order " + req.OrderNumber,
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentGateway, err, "square create payment failed")
	}
	if payment == nil || payment.ID == nil {
		return nil, pkgerrors.New(pkgerrors.CodePaymentGateway, "square returned no payment")
	}

	handle := &IntentHandle{
		ProviderReference: *payment.ID,
		Status:            enums.PaymentIntentStatusCreated,
	}
	if payment.Status != nil && strings.EqualFold(*payment.Status, "APPROVED") {
		handle.Status = enums.PaymentIntentStatusAuthorized
	}
	return handle, nil
}

func (a *SquareAdapter) CancelIntent(ctx context.Context, providerReference string) error {
	if _, err := a.api.CancelPayment(ctx, providerReference); err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodePaymentGateway, err, "square cancel payment failed")
	}
	return nil
}

type squareNotification struct {
	EventID   string `json:"event_id"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
	Data      struct {
		Type   string `json:"type"`
		ID     string `json:"id"`
		Object struct {
			Payment *sq.Payment `json:"payment"`
		} `json:"object"`
	} `json:"data"`
}

func (a *SquareAdapter) ParseWebhook(_ context.Context, rawBody []byte, signatureHeader string) (*WebhookEvent, error) {
	if err := a.api.VerifySignature(rawBody, signatureHeader); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidSignature, err, "verify square signature")
	}

	var note squareNotification
	decodeErr := json.Unmarshal(rawBody, &note)
	if decodeErr != nil || note.EventID == "" {
		return malformedSquareEvent(rawBody, note.EventID), nil
	}

	out := &WebhookEvent{
		Provider:   enums.PaymentProviderSquare,
		EventID:    note.EventID,
		EventType:  note.Type,
		Outcome:    enums.PaymentOutcomePending,
		ReceivedAt: time.Now().UTC(),
	}
	if created, err := time.Parse(time.RFC3339, note.CreatedAt); err == nil {
		out.ReceivedAt = created.UTC()
	}

	payment := note.Data.Object.Payment
	if payment == nil || payment.ID == nil {
		out.Ignored = true
		return out, nil
	}
	out.ProviderReference = *payment.ID
	if payment.Status != nil {
		out.ProviderStatus = *payment.Status
	}
	if payment.ReferenceID != nil {
		out.OrderID = parseOrderID(*payment.ReferenceID)
	}
	if m := payment.AmountMoney; m != nil {
		if m.Amount != nil {
			out.AmountMinor = *m.Amount
		}
		if m.Currency != nil {
			out.Currency = strings.ToUpper(string(*m.Currency))
		}
	}
	out.Outcome = a.NormalizeStatus(out.ProviderStatus)
	out.Authorized = strings.EqualFold(out.ProviderStatus, "APPROVED")
	return out, nil
}

// malformedSquareEvent keys an undecodable notification by its body when it
// carries no event_id, so redeliveries still dedupe.
func malformedSquareEvent(rawBody []byte, eventID string) *WebhookEvent {
	if eventID == "" {
		eventID = "body:" + uuid.NewSHA1(uuid.NameSpaceOID, rawBody).String()
	}
	return &WebhookEvent{
		Provider:   enums.PaymentProviderSquare,
		EventID:    eventID,
		Outcome:    enums.PaymentOutcomePending,
		Ignored:    true,
		Malformed:  true,
		ReceivedAt: time.Now().UTC(),
	}
}

func (a *SquareAdapter) NormalizeStatus(providerStatus string) enums.PaymentOutcome {
	switch strings.ToUpper(strings.TrimSpace(providerStatus)) {
	case "COMPLETED":
		return enums.PaymentOutcomeSucceeded
	case "CANCELED", "FAILED":
		return enums.PaymentOutcomeFailed
	default:
		return enums.PaymentOutcomePending
	}
}

// squareIdempotencyKey folds the order attempt key into a UUID; Square caps
// idempotency keys at 45 characters.
func squareIdempotencyKey(key string) string {
	if key == "" {
		return ""
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}
