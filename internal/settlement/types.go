package settlement

import (
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	"github.com/google/uuid"
)

const (
	SourceConfirm   = "confirm"
	SourceWebhook   = "webhook"
	SourceReconcile = "reconcile"
	SourceFree      = "free"

	ReasonNoValidItems = "no_valid_items"

	freeReferencePrefix = "free_"
)

// PaymentConfirmation is the processor-agnostic proof of payment settlement consumes.
type PaymentConfirmation struct {
	Reference     string
	Method        enums.PaymentMethod
	TransactionID *string
	AmountCents   int64
	Currency      string
	Source        string
}

// SettleInput carries everything needed to turn a confirmed payment into an order.
type SettleInput struct {
	BuyerID  uuid.UUID
	Snapshot models.CartSnapshot
	Payment  PaymentConfirmation
}

// Result is the settled order. AlreadySettled reports that the payment
// reference had been settled before and no side effects ran.
type Result struct {
	Order          *models.Purchase
	AlreadySettled bool
}

// FailureInput describes a failed or canceled processor payment.
type FailureInput struct {
	BuyerID   uuid.UUID
	Reference string
	Status    enums.CheckoutIntentStatus
	Reason    string
	Source    string
}
