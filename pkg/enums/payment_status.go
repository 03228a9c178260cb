package enums

import "fmt"

// PaymentIntentStatus tracks a provider payment intent from our side.
type PaymentIntentStatus string

const (
	PaymentIntentStatusCreated    PaymentIntentStatus = "CREATED"
	PaymentIntentStatusAuthorized PaymentIntentStatus = "AUTHORIZED"
	PaymentIntentStatusCaptured   PaymentIntentStatus = "CAPTURED"
	PaymentIntentStatusFailed     PaymentIntentStatus = "FAILED"
	PaymentIntentStatusCancelled  PaymentIntentStatus = "CANCELLED"
	PaymentIntentStatusRefunded   PaymentIntentStatus = "REFUNDED"
)

var validPaymentIntentStatuses = []PaymentIntentStatus{
	PaymentIntentStatusCreated,
	PaymentIntentStatusAuthorized,
	PaymentIntentStatusCaptured,
	PaymentIntentStatusFailed,
	PaymentIntentStatusCancelled,
	PaymentIntentStatusRefunded,
}

// String implements fmt.Stringer.
func (p PaymentIntentStatus) String() string {
	return string(p)
}

// IsLive reports whether the intent can still settle.
func (p PaymentIntentStatus) IsLive() bool {
	return p == PaymentIntentStatusCreated || p == PaymentIntentStatusAuthorized
}

// ParsePaymentIntentStatus converts raw input into a PaymentIntentStatus.
func ParsePaymentIntentStatus(value string) (PaymentIntentStatus, error) {
	for _, candidate := range validPaymentIntentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment intent status %q", value)
}

// PaymentOutcome is the provider-neutral result of a payment callback.
type PaymentOutcome string

const (
	PaymentOutcomeSucceeded PaymentOutcome = "SUCCEEDED"
	PaymentOutcomePending   PaymentOutcome = "PENDING"
	PaymentOutcomeFailed    PaymentOutcome = "FAILED"
)

// String implements fmt.Stringer.
func (o PaymentOutcome) String() string {
	return string(o)
}
