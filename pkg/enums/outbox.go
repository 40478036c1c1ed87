package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder          OutboxAggregateType = "order"
	AggregatePayout         OutboxAggregateType = "payout"
	AggregateCheckoutIntent OutboxAggregateType = "checkout_intent"
	AggregatePlatformConfig OutboxAggregateType = "platform_config"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePayout,
	AggregateCheckoutIntent,
	AggregatePlatformConfig,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderCompleted        OutboxEventType = "order_completed"
	EventOrderRefunded         OutboxEventType = "order_refunded"
	EventPaymentFailed         OutboxEventType = "payment_failed"
	EventPayoutStatusChanged   OutboxEventType = "payout_status_changed"
	EventPlatformConfigChanged OutboxEventType = "platform_config_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCompleted,
	EventOrderRefunded,
	EventPaymentFailed,
	EventPayoutStatusChanged,
	EventPlatformConfigChanged,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
