package orders

import (
	"testing"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
	pkgerrors "github.com/OmarEhab007/cargoparts-sub002/pkg/errors"
)

func TestTransitionGrid(t *testing.T) {
	allowed := map[enums.OrderStatus]map[enums.OrderStatus]bool{
		enums.OrderStatusPending:     {enums.OrderStatusConfirmed: true, enums.OrderStatusCancelled: true},
		enums.OrderStatusConfirmed:   {enums.OrderStatusProcessing: true, enums.OrderStatusCancelled: true},
		enums.OrderStatusProcessing:  {enums.OrderStatusReadyToShip: true, enums.OrderStatusCancelled: true},
		enums.OrderStatusReadyToShip: {enums.OrderStatusShipped: true},
		enums.OrderStatusShipped:     {enums.OrderStatusDelivered: true},
		enums.OrderStatusDisputed:    {enums.OrderStatusCancelled: true, enums.OrderStatusRefunded: true},
	}

	statuses := enums.OrderStatuses()
	if len(statuses) != 9 {
		t.Fatalf("expected 9 statuses, got %d", len(statuses))
	}
	for _, from := range statuses {
		for _, to := range statuses {
			want := allowed[from][to]
			err := Transition(from, to)
			if want && err != nil {
				t.Fatalf("%s -> %s: expected allowed, got %v", from, to, err)
			}
			if !want {
				if err == nil {
					t.Fatalf("%s -> %s: expected rejection", from, to)
				}
				if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
					t.Fatalf("%s -> %s: expected STATE_CONFLICT, got %v", from, to, err)
				}
			}
			if CanTransition(from, to) != want {
				t.Fatalf("%s -> %s: CanTransition disagrees with table", from, to)
			}
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, status := range []enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCancelled, enums.OrderStatusRefunded} {
		if !IsTerminal(status) {
			t.Fatalf("expected %s to be terminal", status)
		}
		if len(AllowedTargets(status)) != 0 {
			t.Fatalf("expected no targets from %s", status)
		}
	}
	if IsTerminal(enums.OrderStatusDisputed) {
		t.Fatalf("disputed resolves to cancelled or refunded")
	}
}

func TestBackwardTransitionsRejected(t *testing.T) {
	cases := [][2]enums.OrderStatus{
		{enums.OrderStatusShipped, enums.OrderStatusPending},
		{enums.OrderStatusConfirmed, enums.OrderStatusPending},
		{enums.OrderStatusDelivered, enums.OrderStatusCancelled},
		{enums.OrderStatusCancelled, enums.OrderStatusConfirmed},
	}
	for _, tc := range cases {
		if err := Transition(tc[0], tc[1]); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			t.Fatalf("%s -> %s: expected STATE_CONFLICT, got %v", tc[0], tc[1], err)
		}
	}
}

func TestTransitionUnknownTarget(t *testing.T) {
	err := Transition(enums.OrderStatusPending, enums.OrderStatus("SHIPPED_TWICE"))
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAllowedTargetsReturnsCopy(t *testing.T) {
	targets := AllowedTargets(enums.OrderStatusPending)
	targets[0] = enums.OrderStatusRefunded
	if !CanTransition(enums.OrderStatusPending, enums.OrderStatusConfirmed) {
		t.Fatalf("table mutated through AllowedTargets")
	}
}
