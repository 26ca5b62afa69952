package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentKind distinguishes the three commercial document types. Sales and
// purchases carry a ledger mirror; quotations never do.
type DocumentKind string

const (
	KindSale      DocumentKind = "sale"
	KindPurchase  DocumentKind = "purchase"
	KindQuotation DocumentKind = "quotation"
)

type DocumentStatus string

const (
	DocActive    DocumentStatus = "ACTIVE"
	DocCancelled DocumentStatus = "CANCELLED"
)

// PaymentStatus is always derived from (amountPaid, total), never set
// independently. See DerivePaymentStatus.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPaid    PaymentStatus = "PAID"
)

// EntryType is the cash-flow direction of a ledger entry.
type EntryType string

const (
	EntryIngreso EntryType = "ingreso" // inflow
	EntryEgreso  EntryType = "egreso"  // outflow
)

// TransactionType links a ledger entry back to the document kind that
// generated it. Manual entries carry TransactionNA and are never synced.
type TransactionType string

const (
	TransactionSale     TransactionType = "sale"
	TransactionPurchase TransactionType = "purchase"
	TransactionNA       TransactionType = "n/a"
)

// LineItem is one line of a document. Subtotal and tax are computed per line
// and summed; see ComputeTotals.
type LineItem struct {
	Description  string
	ItemType     string
	Quantity     decimal.Decimal
	Unit         string
	UnitPrice    decimal.Decimal
	DiscountRate decimal.Decimal
	TaxRate      decimal.Decimal
}

// LineSubtotal is quantity x unitPrice x (1 - discountRate), rounded to
// cents.
func (li LineItem) LineSubtotal() decimal.Decimal {
	gross := li.Quantity.Mul(li.UnitPrice)
	return gross.Mul(decimal.NewFromInt(1).Sub(li.DiscountRate)).Round(2)
}

// LineTax applies the line's own tax rate to its subtotal.
func (li LineItem) LineTax() decimal.Decimal {
	return li.LineSubtotal().Mul(li.TaxRate).Round(2)
}

// Document is a sale, purchase or quotation: a sequential human-readable
// number, a counterparty and a set of line items with derived totals.
type Document struct {
	ID                uuid.UUID
	Kind              DocumentKind
	PractitionerID    uuid.UUID
	Number            string
	CounterpartyName  string
	CounterpartyTaxID string
	Status            DocumentStatus
	PaymentStatus     PaymentStatus
	AmountPaid        decimal.Decimal
	Subtotal          decimal.Decimal
	Tax               decimal.Decimal
	Total             decimal.Decimal
	Items             []LineItem
	IssuedAt          time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// LedgerEntry is one cash-flow record. Entries created as the mirror of a
// sale or purchase reference it through SourceID and are kept in sync by the
// reconciliation engine; manual entries have TransactionNA and a nil
// SourceID.
type LedgerEntry struct {
	ID              uuid.UUID
	PractitionerID  uuid.UUID
	InternalID      int
	Concept         string
	EntryType       EntryType
	Amount          decimal.Decimal
	AmountPaid      decimal.Decimal
	PaymentStatus   PaymentStatus
	TransactionType TransactionType
	SourceID        *uuid.UUID
	EntryAt         time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Derived reports whether the entry mirrors a document and is therefore
// managed by the reconciliation engine.
func (e *LedgerEntry) Derived() bool {
	return e.TransactionType != TransactionNA
}
