package paystack

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InitializeParams carries the inputs for creating a checkout session.
type InitializeParams struct {
	Email       string
	Amount      decimal.Decimal
	Reference   string
	CallbackURL string
	Metadata    map[string]any
}

func (p InitializeParams) validate() error {
	if strings.TrimSpace(p.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if !p.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}
	if strings.TrimSpace(p.Reference) == "" {
		return fmt.Errorf("reference is required")
	}
	return nil
}

// InitializeResult is the checkout session returned by the gateway.
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyResult is the gateway's view of a transaction.
type VerifyResult struct {
	Status    string     `json:"status"`
	Reference string     `json:"reference"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	Channel   string     `json:"channel"`
	PaidAt    *time.Time `json:"paid_at"`
}

// Succeeded reports whether the gateway settled the transaction.
func (v VerifyResult) Succeeded() bool {
	return strings.EqualFold(v.Status, "success")
}

// AmountValue converts the subunit amount back into major units.
func (v VerifyResult) AmountValue() decimal.Decimal {
	return decimal.NewFromInt(v.Amount).Div(subunitFactorDecimal())
}

func subunitFactorDecimal() decimal.Decimal {
	return decimal.NewFromInt(subunitFactor)
}
