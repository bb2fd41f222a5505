package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNoLineItems      = errors.New("proposal needs at least one line item")
	ErrNegativeQuantity = errors.New("line item quantity must be positive")
	ErrNegativePrice    = errors.New("line item unit price must not be negative")
	ErrInvalidVATRate   = errors.New("line item vat rate must be between 0 and 100")
)

var hundred = decimal.NewFromInt(100)

// LineItem is one priced row of a proposal. VATRate is a percentage.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
}

// Totals is the rounded money summary of a proposal.
type Totals struct {
	Subtotal decimal.Decimal
	VAT      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals sums the items. Each line's net and VAT are rounded to pennies
// before summing so the totals match what is printed per line.
func ComputeTotals(items []LineItem) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, ErrNoLineItems
	}

	subtotal := decimal.Zero
	vat := decimal.Zero
	for _, item := range items {
		if !item.Quantity.IsPositive() {
			return Totals{}, ErrNegativeQuantity
		}
		if item.UnitPrice.IsNegative() {
			return Totals{}, ErrNegativePrice
		}
		if item.VATRate.IsNegative() || item.VATRate.GreaterThan(hundred) {
			return Totals{}, ErrInvalidVATRate
		}

		net := item.Quantity.Mul(item.UnitPrice).Round(2)
		subtotal = subtotal.Add(net)
		vat = vat.Add(net.Mul(item.VATRate).Div(hundred).Round(2))
	}

	return Totals{Subtotal: subtotal, VAT: vat, Total: subtotal.Add(vat)}, nil
}

// SumTotals adds up proposal totals, as used for the payment amount.
func SumTotals(totals []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t)
	}
	return sum
}
