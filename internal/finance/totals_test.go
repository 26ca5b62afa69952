package finance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNormalizeItemsDefaults(t *testing.T) {
	items, err := NormalizeItems([]LineItemInput{{
		Description: "  Consultation  ",
		Quantity:    dec("2"),
		UnitPrice:   dec("500"),
	}})
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "Consultation", items[0].Description)
	assert.True(t, items[0].DiscountRate.IsZero())
	assert.True(t, items[0].TaxRate.Equal(DefaultTaxRate), "nil tax rate takes the default")
}

func TestNormalizeItemsExplicitZeroTax(t *testing.T) {
	zero := decimal.Zero
	items, err := NormalizeItems([]LineItemInput{{
		Description: "Exempt supply",
		Quantity:    dec("1"),
		UnitPrice:   dec("100"),
		TaxRate:     &zero,
	}})
	require.NoError(t, err)
	assert.True(t, items[0].TaxRate.IsZero(), "explicit zero is not replaced by the default")
}

func TestNormalizeItemsValidation(t *testing.T) {
	bad := dec("1.5")
	neg := dec("-1")

	cases := []struct {
		name  string
		in    []LineItemInput
		field string
	}{
		{"empty set", nil, "items"},
		{"missing description", []LineItemInput{{Quantity: dec("1"), UnitPrice: dec("1")}}, "items[0].description"},
		{"negative quantity", []LineItemInput{{Description: "x", Quantity: neg, UnitPrice: dec("1")}}, "items[0].quantity"},
		{"negative price", []LineItemInput{{Description: "x", Quantity: dec("1"), UnitPrice: neg}}, "items[0].unit_price"},
		{"discount above one", []LineItemInput{{Description: "x", Quantity: dec("1"), UnitPrice: dec("1"), DiscountRate: &bad}}, "items[0].discount_rate"},
		{"tax above one", []LineItemInput{{Description: "x", Quantity: dec("1"), UnitPrice: dec("1"), TaxRate: &bad}}, "items[0].tax_rate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeItems(tc.in)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestComputeTotals(t *testing.T) {
	discount := dec("0.10")
	zero := decimal.Zero

	items, err := NormalizeItems([]LineItemInput{
		{Description: "Therapy session", Quantity: dec("2"), UnitPrice: dec("1000")},
		{Description: "Supplies", Quantity: dec("5"), UnitPrice: dec("100"), DiscountRate: &discount, TaxRate: &zero},
	})
	require.NoError(t, err)

	subtotal, tax, total := ComputeTotals(items)

	// Line 1: 2 x 1000 = 2000, tax 16% = 320.
	// Line 2: 5 x 100 x 0.9 = 450, tax 0.
	assert.True(t, subtotal.Equal(dec("2450")), "subtotal %s", subtotal)
	assert.True(t, tax.Equal(dec("320")), "tax %s", tax)
	assert.True(t, total.Equal(dec("2770")), "total %s", total)
}

func TestLineRoundingIsPerLine(t *testing.T) {
	third := dec("0.333")
	items, err := NormalizeItems([]LineItemInput{{
		Description:  "Odd pricing",
		Quantity:     dec("3"),
		UnitPrice:    dec("0.335"),
		DiscountRate: &third,
	}})
	require.NoError(t, err)

	// 3 x 0.335 x 0.667 = 0.670335, rounded per line before summing.
	assert.True(t, items[0].LineSubtotal().Equal(dec("0.67")))
}

func TestDerivePaymentStatus(t *testing.T) {
	total := dec("1000")

	assert.Equal(t, PaymentPending, DerivePaymentStatus(decimal.Zero, total))
	assert.Equal(t, PaymentPending, DerivePaymentStatus(dec("-5"), total))
	assert.Equal(t, PaymentPartial, DerivePaymentStatus(dec("400"), total))
	assert.Equal(t, PaymentPaid, DerivePaymentStatus(dec("1000"), total))
	assert.Equal(t, PaymentPaid, DerivePaymentStatus(dec("1200"), total), "overpayment still counts as paid")
}
