package orders

import (
	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
	pkgerrors "github.com/OmarEhab007/cargoparts-sub002/pkg/errors"
)

// transitions is the complete lifecycle table. A status missing from a set is
// not reachable from that key; keys with empty sets are terminal.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:     {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed:   {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing:  {enums.OrderStatusReadyToShip, enums.OrderStatusCancelled},
	enums.OrderStatusReadyToShip: {enums.OrderStatusShipped},
	enums.OrderStatusShipped:     {enums.OrderStatusDelivered},
	enums.OrderStatusDelivered:   {},
	enums.OrderStatusCancelled:   {},
	enums.OrderStatusRefunded:    {},
	enums.OrderStatusDisputed:    {enums.OrderStatusCancelled, enums.OrderStatusRefunded},
}

// CanTransition reports whether from -> to is in the lifecycle table.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AllowedTargets returns the statuses reachable from from.
func AllowedTargets(from enums.OrderStatus) []enums.OrderStatus {
	targets := transitions[from]
	out := make([]enums.OrderStatus, len(targets))
	copy(out, targets)
	return out
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status enums.OrderStatus) bool {
	targets, ok := transitions[status]
	return ok && len(targets) == 0
}

// Transition validates from -> to and returns a STATE_CONFLICT error when the
// move is not allowed. It never touches storage.
func Transition(from, to enums.OrderStatus) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": string(to)})
	}
	if CanTransition(from, to) {
		return nil
	}
	return invalidTransition(from, to)
}

func invalidTransition(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
		WithDetails(map[string]any{
			"from":    string(from),
			"to":      string(to),
			"allowed": AllowedTargets(from),
		})
}
