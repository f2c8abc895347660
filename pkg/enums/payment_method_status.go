package enums

import "fmt"

// PaymentMethodStatus is the approval state of a saved payout address.
type PaymentMethodStatus string

const (
	PaymentMethodStatusPending  PaymentMethodStatus = "pending"
	PaymentMethodStatusApproved PaymentMethodStatus = "approved"
	PaymentMethodStatusRejected PaymentMethodStatus = "rejected"
)

var validPaymentMethodStatuses = []PaymentMethodStatus{
	PaymentMethodStatusPending,
	PaymentMethodStatusApproved,
	PaymentMethodStatusRejected,
}

// String implements fmt.Stringer.
func (s PaymentMethodStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s PaymentMethodStatus) IsValid() bool {
	for _, candidate := range validPaymentMethodStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePaymentMethodStatus converts raw input into a PaymentMethodStatus.
func ParsePaymentMethodStatus(value string) (PaymentMethodStatus, error) {
	for _, candidate := range validPaymentMethodStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method status %q", value)
}
