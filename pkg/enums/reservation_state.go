package enums

// ReservationState tracks an inventory hold for one order line.
type ReservationState string

const (
	ReservationStateReserved  ReservationState = "RESERVED"
	ReservationStateCommitted ReservationState = "COMMITTED"
	ReservationStateReleased  ReservationState = "RELEASED"
)

// String implements fmt.Stringer.
func (s ReservationState) String() string {
	return string(s)
}

// IsTerminal reports whether no further ledger transition is possible.
func (s ReservationState) IsTerminal() bool {
	return s == ReservationStateCommitted || s == ReservationStateReleased
}
