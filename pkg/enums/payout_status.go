package enums

import (
	"fmt"
	"strings"
)

// PayoutStatus tracks the payout request lifecycle.
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusApproved   PayoutStatus = "approved"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
	PayoutStatusCancelled  PayoutStatus = "cancelled"
)

var validPayoutStatuses = []PayoutStatus{
	PayoutStatusPending,
	PayoutStatusApproved,
	PayoutStatusProcessing,
	PayoutStatusCompleted,
	PayoutStatusFailed,
	PayoutStatusCancelled,
}

// String implements fmt.Stringer.
func (p PayoutStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PayoutStatus.
func (p PayoutStatus) IsValid() bool {
	for _, candidate := range validPayoutStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePayoutStatus converts raw input into a PayoutStatus, ignoring case and
// surrounding whitespace.
func ParsePayoutStatus(value string) (PayoutStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPayoutStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout status %q", value)
}

// BlocksNewRequest reports whether a payout in this status prevents the seller
// from opening another request. Failed payouts stay on hold until released.
func (p PayoutStatus) BlocksNewRequest() bool {
	switch p {
	case PayoutStatusPending, PayoutStatusApproved, PayoutStatusProcessing, PayoutStatusFailed:
		return true
	}
	return false
}

// CountsAsPaidOut reports whether the payout amount is already committed
// against the seller's net earnings.
func (p PayoutStatus) CountsAsPaidOut() bool {
	switch p {
	case PayoutStatusApproved, PayoutStatusProcessing, PayoutStatusCompleted:
		return true
	}
	return false
}

// OpenPayoutStatuses lists statuses that block a new payout request.
func OpenPayoutStatuses() []PayoutStatus {
	return filterPayoutStatuses(PayoutStatus.BlocksNewRequest)
}

// PaidOutPayoutStatuses lists statuses counted toward total paid out.
func PaidOutPayoutStatuses() []PayoutStatus {
	return filterPayoutStatuses(PayoutStatus.CountsAsPaidOut)
}

func filterPayoutStatuses(keep func(PayoutStatus) bool) []PayoutStatus {
	out := make([]PayoutStatus, 0, len(validPayoutStatuses))
	for _, status := range validPayoutStatuses {
		if keep(status) {
			out = append(out, status)
		}
	}
	return out
}
