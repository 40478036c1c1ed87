package enums

import "fmt"

// CheckoutIntentStatus mirrors the processor intent status for a checkout.
type CheckoutIntentStatus string

const (
	CheckoutIntentStatusPending   CheckoutIntentStatus = "pending"
	CheckoutIntentStatusSucceeded CheckoutIntentStatus = "succeeded"
	CheckoutIntentStatusFailed    CheckoutIntentStatus = "failed"
	CheckoutIntentStatusCanceled  CheckoutIntentStatus = "canceled"
)

var validCheckoutIntentStatuses = []CheckoutIntentStatus{
	CheckoutIntentStatusPending,
	CheckoutIntentStatusSucceeded,
	CheckoutIntentStatusFailed,
	CheckoutIntentStatusCanceled,
}

// String implements fmt.Stringer.
func (c CheckoutIntentStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutIntentStatus.
func (c CheckoutIntentStatus) IsValid() bool {
	for _, candidate := range validCheckoutIntentStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCheckoutIntentStatus converts raw input into a CheckoutIntentStatus.
func ParseCheckoutIntentStatus(value string) (CheckoutIntentStatus, error) {
	for _, candidate := range validCheckoutIntentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout intent status %q", value)
}
