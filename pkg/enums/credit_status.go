package enums

import "fmt"

// CreditStatus gates the external balance-crediting call. A deposit's ledger
// transaction starts at pending; exactly one handler claims in_flight before
// calling out, and only a confirmed credit moves it to done.
type CreditStatus string

const (
	CreditStatusPending  CreditStatus = "pending"
	CreditStatusInFlight CreditStatus = "in_flight"
	CreditStatusDone     CreditStatus = "done"
)

var validCreditStatuses = []CreditStatus{
	CreditStatusPending,
	CreditStatusInFlight,
	CreditStatusDone,
}

// String implements fmt.Stringer.
func (s CreditStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s CreditStatus) IsValid() bool {
	for _, candidate := range validCreditStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCreditStatus converts raw input into a CreditStatus.
func ParseCreditStatus(value string) (CreditStatus, error) {
	for _, candidate := range validCreditStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid credit status %q", value)
}
