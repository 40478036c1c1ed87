package enums

import "fmt"

// CommissionStatus reflects whether the seller accepted the commission offer.
type CommissionStatus string

const (
	CommissionStatusNone     CommissionStatus = "none"
	CommissionStatusPending  CommissionStatus = "pending"
	CommissionStatusAccepted CommissionStatus = "accepted"
	CommissionStatusRejected CommissionStatus = "rejected"
)

var validCommissionStatuses = []CommissionStatus{
	CommissionStatusNone,
	CommissionStatusPending,
	CommissionStatusAccepted,
	CommissionStatusRejected,
}

// String implements fmt.Stringer.
func (c CommissionStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CommissionStatus.
func (c CommissionStatus) IsValid() bool {
	for _, candidate := range validCommissionStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommissionStatus converts raw input into a CommissionStatus.
func ParseCommissionStatus(value string) (CommissionStatus, error) {
	for _, candidate := range validCommissionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission status %q", value)
}
