package orders

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/OmarEhab007/cargoparts-sub002/api/responses"
	"github.com/OmarEhab007/cargoparts-sub002/api/validators"
	"github.com/OmarEhab007/cargoparts-sub002/internal/payments"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
	pkgerrors "github.com/OmarEhab007/cargoparts-sub002/pkg/errors"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/logger"
)

type startPaymentRequest struct {
	Provider string `json:"provider" validate:"required,payment_provider"`
	SourceID string `json:"source_id,omitempty" validate:"omitempty,max=255"`
}

type paymentIntentResponse struct {
	ID                uuid.UUID                 `json:"id"`
	OrderID           uuid.UUID                 `json:"order_id"`
	Provider          enums.PaymentProvider     `json:"provider"`
	ProviderReference string                    `json:"provider_reference"`
	Status            enums.PaymentIntentStatus `json:"status"`
	AmountMinor       int64                     `json:"amount_minor"`
	Currency          string                    `json:"currency"`
	Attempt           int                       `json:"attempt"`
	ClientSecret      *string                   `json:"client_secret,omitempty"`
	RedirectURL       *string                   `json:"redirect_url,omitempty"`
	CreatedAt         time.Time                 `json:"created_at"`
}

// StartPayment opens a payment attempt with the requested provider for a
// pending order owned by the caller.
func StartPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload startPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Start(r.Context(), payments.StartInput{
			OrderID:  orderID,
			BuyerID:  actor.UserID,
			Provider: payload.Provider,
			SourceID: validators.SanitizeString(payload.SourceID, 255),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent := result.Intent
		responses.WriteSuccessStatus(w, http.StatusCreated, paymentIntentResponse{
			ID:                intent.ID,
			OrderID:           intent.OrderID,
			Provider:          intent.Provider,
			ProviderReference: intent.ProviderReference,
			Status:            intent.Status,
			AmountMinor:       intent.AmountMinor,
			Currency:          intent.Currency,
			Attempt:           intent.Attempt,
			ClientSecret:      result.ClientSecret,
			RedirectURL:       result.RedirectURL,
			CreatedAt:         intent.CreatedAt,
		})
	}
}
