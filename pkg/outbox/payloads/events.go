package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
)

// OrderCompletedEvent is emitted once per settled order.
type OrderCompletedEvent struct {
	OrderID          uuid.UUID           `json:"orderId"`
	BuyerID          uuid.UUID           `json:"buyerId"`
	PaymentReference string              `json:"paymentReference"`
	PaymentMethod    enums.PaymentMethod `json:"paymentMethod"`
	TotalCents       int64               `json:"totalCents"`
	DiscountCents    int64               `json:"discountCents"`
	FinalCents       int64               `json:"finalCents"`
	Currency         string              `json:"currency"`
	PromoCode        *string             `json:"promoCode,omitempty"`
	Lines            []OrderLine         `json:"lines"`
	CompletedAt      time.Time           `json:"completedAt"`
}

type OrderLine struct {
	ProductID      uuid.UUID `json:"productId"`
	SellerID       uuid.UUID `json:"sellerId"`
	UnitPriceCents int64     `json:"unitPriceCents"`
}

// OrderRefundedEvent is emitted when access is revoked for a refunded order.
type OrderRefundedEvent struct {
	OrderID    uuid.UUID `json:"orderId"`
	BuyerID    uuid.UUID `json:"buyerId"`
	FinalCents int64     `json:"finalCents"`
	Reason     string    `json:"reason,omitempty"`
	RefundedAt time.Time `json:"refundedAt"`
}

// PaymentFailedEvent is emitted when the processor reports a failed or canceled intent.
type PaymentFailedEvent struct {
	CheckoutIntentID  uuid.UUID                  `json:"checkoutIntentId"`
	BuyerID           uuid.UUID                  `json:"buyerId"`
	ProcessorIntentID string                     `json:"processorIntentId"`
	Status            enums.CheckoutIntentStatus `json:"status"`
	Reason            string                     `json:"reason,omitempty"`
}

// PayoutStatusChangedEvent is emitted on every payout lifecycle transition.
type PayoutStatusChangedEvent struct {
	PayoutID    uuid.UUID          `json:"payoutId"`
	SellerID    uuid.UUID          `json:"sellerId"`
	From        enums.PayoutStatus `json:"from,omitempty"`
	To          enums.PayoutStatus `json:"to"`
	AmountCents int64              `json:"amountCents"`
	Reason      string             `json:"reason,omitempty"`
	OccurredAt  time.Time          `json:"occurredAt"`
}

// PlatformConfigChangedEvent is emitted when fee or payout settings change.
type PlatformConfigChangedEvent struct {
	ConfigID  uuid.UUID  `json:"configId"`
	UpdatedBy *uuid.UUID `json:"updatedBy,omitempty"`
	Reset     bool       `json:"reset"`
}
