package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeTotals(t *testing.T) {
	items := []LineItem{
		{Description: "Stage", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("1500.00"), VATRate: decimal.NewFromInt(20)},
		{Description: "Chairs", Quantity: decimal.NewFromInt(120), UnitPrice: decimal.RequireFromString("2.35"), VATRate: decimal.NewFromInt(20)},
		{Description: "Catering", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.RequireFromString("33.333"), VATRate: decimal.Zero},
	}

	totals, err := ComputeTotals(items)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if want := decimal.RequireFromString("1882.00"); !totals.Subtotal.Equal(want) {
		t.Fatalf("expected subtotal %s, got %s", want, totals.Subtotal)
	}
	if want := decimal.RequireFromString("356.40"); !totals.VAT.Equal(want) {
		t.Fatalf("expected vat %s, got %s", want, totals.VAT)
	}
	if want := decimal.RequireFromString("2238.40"); !totals.Total.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, totals.Total)
	}
}

func TestComputeTotals_Rejects(t *testing.T) {
	if _, err := ComputeTotals(nil); !errors.Is(err, ErrNoLineItems) {
		t.Fatalf("expected ErrNoLineItems, got %v", err)
	}
	bad := []LineItem{{Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1), VATRate: decimal.NewFromInt(120)}}
	if _, err := ComputeTotals(bad); !errors.Is(err, ErrInvalidVATRate) {
		t.Fatalf("expected ErrInvalidVATRate, got %v", err)
	}
}
