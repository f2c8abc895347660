package enums

import "fmt"

// LedgerStatus mirrors the deposit lifecycle on the ledger transaction.
type LedgerStatus string

const (
	LedgerStatusPending   LedgerStatus = "pending"
	LedgerStatusApproved  LedgerStatus = "approved"
	LedgerStatusCompleted LedgerStatus = "completed"
	LedgerStatusRejected  LedgerStatus = "rejected"
)

var validLedgerStatuses = []LedgerStatus{
	LedgerStatusPending,
	LedgerStatusApproved,
	LedgerStatusCompleted,
	LedgerStatusRejected,
}

// String implements fmt.Stringer.
func (s LedgerStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s LedgerStatus) IsValid() bool {
	for _, candidate := range validLedgerStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLedgerStatus converts raw input into a LedgerStatus.
func ParseLedgerStatus(value string) (LedgerStatus, error) {
	for _, candidate := range validLedgerStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger status %q", value)
}
