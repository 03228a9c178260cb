package webhooks

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/OmarEhab007/cargoparts-sub002/api/responses"
	"github.com/OmarEhab007/cargoparts-sub002/internal/reconciler"
	pkgerrors "github.com/OmarEhab007/cargoparts-sub002/pkg/errors"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/logger"
)

const maxWebhookBody = 1 << 20

var signatureHeaders = []string{"Stripe-Signature", "X-Square-Hmacsha256-Signature"}

type receivedResponse struct {
	Received bool `json:"received"`
}

type ackResponse struct {
	EventID string `json:"event_id"`
	Result  string `json:"result"`
	OrderID string `json:"order_id,omitempty"`
}

// Receive verifies and applies a payment provider notification. Every
// delivery that was recorded, including duplicates and ignored transitions,
// is acknowledged with 200 so the provider stops retrying. A delivery that
// fails verification is logged by the reconciler and acknowledged with a
// bare receipt; only retryable failures reach the provider as errors.
func Receive(rec reconciler.Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if rec == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook reconciler unavailable"))
			return
		}

		provider := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "provider")))
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		result, err := rec.Reconcile(ctx, provider, payload, signature(r))
		if pkgerrors.IsCode(err, pkgerrors.CodeInvalidSignature) {
			responses.WriteSuccess(w, receivedResponse{Received: true})
			return
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ack := ackResponse{EventID: result.EventID, Result: string(result.Outcome)}
		if result.OrderID != nil {
			ack.OrderID = result.OrderID.String()
		}
		responses.WriteSuccess(w, ack)
	}
}

func signature(r *http.Request) string {
	for _, header := range signatureHeaders {
		if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
			return v
		}
	}
	return ""
}
