package enums

import "fmt"

// KYCStatus tracks identity verification progress.
type KYCStatus string

const (
	KYCStatusPending   KYCStatus = "pending"
	KYCStatusSubmitted KYCStatus = "submitted"
	KYCStatusVerified  KYCStatus = "verified"
	KYCStatusRejected  KYCStatus = "rejected"
)

var validKYCStatuses = []KYCStatus{
	KYCStatusPending,
	KYCStatusSubmitted,
	KYCStatusVerified,
	KYCStatusRejected,
}

// String implements fmt.Stringer.
func (s KYCStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s KYCStatus) IsValid() bool {
	for _, candidate := range validKYCStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseKYCStatus converts raw input into a KYCStatus.
func ParseKYCStatus(value string) (KYCStatus, error) {
	for _, candidate := range validKYCStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid kyc status %q", value)
}
