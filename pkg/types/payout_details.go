package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
)

// PayoutDetails is the destination snapshot for a payout. Exactly one of the
// method-specific blocks is populated and it always matches Method.
type PayoutDetails struct {
	Method       enums.PayoutMethod    `json:"method"`
	BankTransfer *BankTransferDetails  `json:"bank_transfer,omitempty"`
	PayPal       *PayPalDetails        `json:"paypal,omitempty"`
	Stripe       *StripeConnectDetails `json:"stripe,omitempty"`
	Wise         *WiseDetails          `json:"wise,omitempty"`
}

type BankTransferDetails struct {
	AccountHolder string `json:"account_holder"`
	AccountNumber string `json:"account_number"`
	RoutingNumber string `json:"routing_number"`
	BankName      string `json:"bank_name,omitempty"`
}

type PayPalDetails struct {
	Email string `json:"email"`
}

type StripeConnectDetails struct {
	AccountID string `json:"account_id"`
}

type WiseDetails struct {
	Email    string `json:"email"`
	Currency string `json:"currency,omitempty"`
}

// ParsePayoutDetails builds the typed snapshot from a seller's stored payout
// configuration. Only destination fields are copied, so verification metadata
// kept alongside them never reaches the payout record.
func ParsePayoutDetails(method enums.PayoutMethod, raw map[string]any) (PayoutDetails, error) {
	details := PayoutDetails{Method: method}
	str := func(key string) string {
		v, _ := raw[key].(string)
		return strings.TrimSpace(v)
	}
	switch method {
	case enums.PayoutMethodBankTransfer:
		details.BankTransfer = &BankTransferDetails{
			AccountHolder: str("account_holder"),
			AccountNumber: str("account_number"),
			RoutingNumber: str("routing_number"),
			BankName:      str("bank_name"),
		}
	case enums.PayoutMethodPayPal:
		details.PayPal = &PayPalDetails{Email: str("email")}
	case enums.PayoutMethodStripe:
		details.Stripe = &StripeConnectDetails{AccountID: str("account_id")}
	case enums.PayoutMethodWise:
		details.Wise = &WiseDetails{Email: str("email"), Currency: strings.ToUpper(str("currency"))}
	default:
		return PayoutDetails{}, fmt.Errorf("unsupported payout method %q", method)
	}
	return details, details.Validate()
}

// Validate checks that the populated block matches the method and carries the
// required destination fields.
func (d PayoutDetails) Validate() error {
	switch d.Method {
	case enums.PayoutMethodBankTransfer:
		b := d.BankTransfer
		if b == nil || b.AccountHolder == "" || b.AccountNumber == "" || b.RoutingNumber == "" {
			return fmt.Errorf("bank transfer requires account holder, account number and routing number")
		}
	case enums.PayoutMethodPayPal:
		if d.PayPal == nil || !strings.Contains(d.PayPal.Email, "@") {
			return fmt.Errorf("paypal requires a valid email")
		}
	case enums.PayoutMethodStripe:
		if d.Stripe == nil || !strings.HasPrefix(d.Stripe.AccountID, "acct_") {
			return fmt.Errorf("stripe requires a connected account id")
		}
	case enums.PayoutMethodWise:
		if d.Wise == nil || !strings.Contains(d.Wise.Email, "@") {
			return fmt.Errorf("wise requires a valid email")
		}
	default:
		return fmt.Errorf("unsupported payout method %q", d.Method)
	}
	populated := 0
	for _, set := range []bool{d.BankTransfer != nil, d.PayPal != nil, d.Stripe != nil, d.Wise != nil} {
		if set {
			populated++
		}
	}
	if populated != 1 {
		return fmt.Errorf("payout details must describe exactly one method")
	}
	return nil
}

// Value implements driver.Valuer for the jsonb column.
func (d PayoutDetails) Value() (driver.Value, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner for the jsonb column.
func (d *PayoutDetails) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = PayoutDetails{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("PayoutDetails: unsupported Scan type %T", src)
	}
	return json.Unmarshal(raw, d)
}
