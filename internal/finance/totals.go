package finance

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultTaxRate applies when a line item omits its tax rate.
var DefaultTaxRate = decimal.NewFromFloat(0.16)

var one = decimal.NewFromInt(1)

// LineItemInput is the flat line-item shape accepted on document create and
// update. Nil rates take their defaults (tax 0.16, discount 0); an explicit
// zero stays zero.
type LineItemInput struct {
	Description  string
	ItemType     string
	Quantity     decimal.Decimal
	Unit         string
	UnitPrice    decimal.Decimal
	DiscountRate *decimal.Decimal
	TaxRate      *decimal.Decimal
}

// NormalizeItems validates the inputs and applies defaults. Negative
// quantities, prices or rates are rejected before anything is persisted.
func NormalizeItems(inputs []LineItemInput) ([]LineItem, error) {
	if len(inputs) == 0 {
		return nil, &ValidationError{Field: "items", Message: "at least one line item is required"}
	}

	items := make([]LineItem, 0, len(inputs))
	for i, in := range inputs {
		field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }

		if strings.TrimSpace(in.Description) == "" {
			return nil, &ValidationError{Field: field("description"), Message: "is required"}
		}
		if in.Quantity.IsNegative() {
			return nil, &ValidationError{Field: field("quantity"), Message: "must not be negative"}
		}
		if in.UnitPrice.IsNegative() {
			return nil, &ValidationError{Field: field("unit_price"), Message: "must not be negative"}
		}

		discount := decimal.Zero
		if in.DiscountRate != nil {
			discount = *in.DiscountRate
		}
		if discount.IsNegative() || discount.GreaterThan(one) {
			return nil, &ValidationError{Field: field("discount_rate"), Message: "must be between 0 and 1"}
		}

		tax := DefaultTaxRate
		if in.TaxRate != nil {
			tax = *in.TaxRate
		}
		if tax.IsNegative() || tax.GreaterThan(one) {
			return nil, &ValidationError{Field: field("tax_rate"), Message: "must be between 0 and 1"}
		}

		items = append(items, LineItem{
			Description:  strings.TrimSpace(in.Description),
			ItemType:     in.ItemType,
			Quantity:     in.Quantity,
			Unit:         in.Unit,
			UnitPrice:    in.UnitPrice,
			DiscountRate: discount,
			TaxRate:      tax,
		})
	}
	return items, nil
}

// ComputeTotals sums the per-line subtotals and taxes. Each line's tax uses
// its own rate, so mixed-rate documents come out exact.
func ComputeTotals(items []LineItem) (subtotal, tax, total decimal.Decimal) {
	subtotal = decimal.Zero
	tax = decimal.Zero
	for _, li := range items {
		subtotal = subtotal.Add(li.LineSubtotal())
		tax = tax.Add(li.LineTax())
	}
	return subtotal, tax, subtotal.Add(tax)
}

// DerivePaymentStatus is the single source of truth for payment status:
// nothing paid is PENDING, paid in full (or over) is PAID, anything in
// between is PARTIAL.
func DerivePaymentStatus(amountPaid, total decimal.Decimal) PaymentStatus {
	switch {
	case amountPaid.IsZero() || amountPaid.IsNegative():
		return PaymentPending
	case amountPaid.GreaterThanOrEqual(total):
		return PaymentPaid
	default:
		return PaymentPartial
	}
}
