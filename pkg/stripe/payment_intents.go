package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
)

// IntentStatus is the processor-neutral payment outcome.
type IntentStatus string

const (
	IntentStatusSucceeded  IntentStatus = "succeeded"
	IntentStatusFailed     IntentStatus = "failed"
	IntentStatusCanceled   IntentStatus = "canceled"
	IntentStatusProcessing IntentStatus = "processing"
)

// Intent is the subset of a Stripe PaymentIntent the marketplace relies on.
type Intent struct {
	ID             string
	ClientSecret   string
	Status         IntentStatus
	AmountCents    int64
	Currency       string
	Metadata       map[string]string
	ChargeID       string
	FailureMessage string
}

// CreateIntentInput describes a new payment intent.
type CreateIntentInput struct {
	AmountCents    int64
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
	Description    string
}

type intentBackend interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type legacyIntentBackend struct{}

func (legacyIntentBackend) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return paymentintent.New(params)
}

func (legacyIntentBackend) Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return paymentintent.Get(id, params)
}

// CreatePaymentIntent opens a card payment intent for the given amount.
func (c *Client) CreatePaymentIntent(ctx context.Context, input CreateIntentInput) (*Intent, error) {
	if c == nil || c.intents == nil {
		return nil, errors.New("stripe client not initialized")
	}
	if input.AmountCents <= 0 {
		return nil, fmt.Errorf("payment intent amount must be positive")
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(input.AmountCents),
		Currency: stripe.String(strings.ToLower(input.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if input.Description != "" {
		params.Description = stripe.String(input.Description)
	}
	for k, v := range input.Metadata {
		params.AddMetadata(k, v)
	}
	if input.IdempotencyKey != "" {
		params.SetIdempotencyKey(input.IdempotencyKey)
	}
	params.Context = ctx

	pi, err := c.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return IntentFromStripe(pi), nil
}

// GetPaymentIntent fetches the current state of a payment intent.
func (c *Client) GetPaymentIntent(ctx context.Context, id string) (*Intent, error) {
	if c == nil || c.intents == nil {
		return nil, errors.New("stripe client not initialized")
	}
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("payment intent id is required")
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := c.intents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("get payment intent: %w", err)
	}
	return IntentFromStripe(pi), nil
}

// IntentFromStripe maps a Stripe PaymentIntent onto Intent.
func IntentFromStripe(pi *stripe.PaymentIntent) *Intent {
	if pi == nil {
		return nil
	}
	intent := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       mapStatus(pi),
		AmountCents:  pi.Amount,
		Currency:     strings.ToLower(string(pi.Currency)),
		Metadata:     pi.Metadata,
	}
	if pi.LatestCharge != nil {
		intent.ChargeID = pi.LatestCharge.ID
	}
	if pi.LastPaymentError != nil {
		intent.FailureMessage = pi.LastPaymentError.Msg
	}
	return intent
}

func mapStatus(pi *stripe.PaymentIntent) IntentStatus {
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return IntentStatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return IntentStatusCanceled
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		if pi.LastPaymentError != nil {
			return IntentStatusFailed
		}
	}
	return IntentStatusProcessing
}
