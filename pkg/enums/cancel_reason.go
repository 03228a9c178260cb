package enums

import "fmt"

// CancelReason explains why an order reached CANCELLED.
type CancelReason string

const (
	CancelReasonBuyerCancelled CancelReason = "buyer_cancelled"
	CancelReasonSellerRejected CancelReason = "seller_rejected"
	CancelReasonPaymentFailed  CancelReason = "payment_failed"
	CancelReasonPaymentTimeout CancelReason = "payment_timeout"
	CancelReasonDisputeClosed  CancelReason = "dispute_closed"
)

var validCancelReasons = []CancelReason{
	CancelReasonBuyerCancelled,
	CancelReasonSellerRejected,
	CancelReasonPaymentFailed,
	CancelReasonPaymentTimeout,
	CancelReasonDisputeClosed,
}

// IsValid reports whether the value is a known CancelReason.
func (r CancelReason) IsValid() bool {
	for _, candidate := range validCancelReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseCancelReason converts raw input into a CancelReason.
func ParseCancelReason(value string) (CancelReason, error) {
	for _, candidate := range validCancelReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cancel reason %q", value)
}
