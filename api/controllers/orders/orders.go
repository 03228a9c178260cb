package orders

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/OmarEhab007/cargoparts-sub002/api/middleware"
	"github.com/OmarEhab007/cargoparts-sub002/api/responses"
	"github.com/OmarEhab007/cargoparts-sub002/api/validators"
	internalorders "github.com/OmarEhab007/cargoparts-sub002/internal/orders"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
	pkgerrors "github.com/OmarEhab007/cargoparts-sub002/pkg/errors"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/logger"
)

const maxNotesLength = 500

type createOrderRequest struct {
	AddressID uuid.UUID                  `json:"address_id" validate:"required"`
	Items     []internalorders.ItemInput `json:"items" validate:"required,min=1,max=50,unique=ListingID,dive"`
	Notes     *string                    `json:"notes,omitempty"`
}

type advanceOrderRequest struct {
	Status string  `json:"status" validate:"required,order_status"`
	Reason *string `json:"reason,omitempty" validate:"omitempty,cancel_reason"`
}

// Create places a new order for the authenticated buyer and reserves its stock.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var notes *string
		if payload.Notes != nil {
			if trimmed := validators.SanitizeString(*payload.Notes, maxNotesLength); trimmed != "" {
				notes = &trimmed
			}
		}

		order, err := svc.Create(r.Context(), internalorders.CreateOrderInput{
			BuyerID:   actor.UserID,
			AddressID: payload.AddressID,
			Items:     payload.Items,
			Notes:     notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, internalorders.ToView(order))
	}
}

// List returns the caller's orders newest first, one cursor page at a time.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, next, err := svc.List(r.Context(), actor.UserID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list := internalorders.OrderList{
			Orders:     make([]internalorders.OrderView, 0, len(rows)),
			NextCursor: next,
		}
		for i := range rows {
			list.Orders = append(list.Orders, *internalorders.ToView(&rows[i]))
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns one order with its items. Orders the caller may not see are
// reported as missing.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
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

		order, err := svc.Get(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToView(order))
	}
}

func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
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

		order, err := svc.Cancel(r.Context(), internalorders.CancelInput{OrderID: orderID, Actor: actor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToView(order))
	}
}

// Advance moves an order along its fulfilment path on behalf of a seller or
// admin. The target is checked against the state machine by the service.
func Advance(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
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

		var payload advanceOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
				WithDetails(map[string]any{"status": payload.Status}))
			return
		}

		input := internalorders.AdvanceInput{OrderID: orderID, Target: target, Actor: actor}
		if payload.Reason != nil {
			reason, err := enums.ParseCancelReason(*payload.Reason)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cancel reason").
					WithDetails(map[string]any{"reason": *payload.Reason}))
				return
			}
			input.Reason = &reason
		}

		order, err := svc.Advance(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToView(order))
	}
}

func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	userID, role, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return internalorders.Actor{UserID: userID, Role: role}, nil
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	return validators.ParseURLUUID(r, "orderId")
}
