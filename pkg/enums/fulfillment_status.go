package enums

import "fmt"

// FulfillmentStatus tracks the delivery axis of an order, independent of payment.
type FulfillmentStatus string

const (
	FulfillmentStatusPendingPayment FulfillmentStatus = "PENDING_PAYMENT"
	FulfillmentStatusPaid           FulfillmentStatus = "PAID"
	FulfillmentStatusQueued         FulfillmentStatus = "QUEUED"
	FulfillmentStatusProcessing     FulfillmentStatus = "PROCESSING"
	FulfillmentStatusFulfilled      FulfillmentStatus = "FULFILLED"
	FulfillmentStatusFailed         FulfillmentStatus = "FAILED"
)

var validFulfillmentStatuses = []FulfillmentStatus{
	FulfillmentStatusPendingPayment,
	FulfillmentStatusPaid,
	FulfillmentStatusQueued,
	FulfillmentStatusProcessing,
	FulfillmentStatusFulfilled,
	FulfillmentStatusFailed,
}

// String implements fmt.Stringer.
func (f FulfillmentStatus) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FulfillmentStatus.
func (f FulfillmentStatus) IsValid() bool {
	for _, candidate := range validFulfillmentStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
// FAILED is not terminal: a failed order may be retried back into PROCESSING.
func (f FulfillmentStatus) IsTerminal() bool {
	return f == FulfillmentStatusFulfilled
}

// IsRetryable reports whether an operator retry may resubmit the order.
func (f FulfillmentStatus) IsRetryable() bool {
	switch f {
	case FulfillmentStatusPaid, FulfillmentStatusQueued, FulfillmentStatusFailed:
		return true
	}
	return false
}

// IsInFlight reports whether the order is waiting on the supplier.
func (f FulfillmentStatus) IsInFlight() bool {
	return f == FulfillmentStatusQueued || f == FulfillmentStatusProcessing
}

// ParseFulfillmentStatus converts raw input into a FulfillmentStatus.
func ParseFulfillmentStatus(value string) (FulfillmentStatus, error) {
	for _, candidate := range validFulfillmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment status %q", value)
}
