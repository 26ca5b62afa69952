package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clinicore/practice-backend/internal/activity"
	"github.com/clinicore/practice-backend/internal/hooks"
)

const (
	// saleNumberAttempts bounds the retry loop on the globally scoped sale
	// sequence, where concurrent practitioners race for the same number.
	saleNumberAttempts = 10
	// scopedNumberAttempts covers the narrower per-practitioner scopes.
	scopedNumberAttempts = 3
)

type Service struct {
	repo     Repository
	recorder activity.Recorder
	runHooks func(ctx context.Context, hs ...hooks.Hook)
	now      func() time.Time
}

func NewService(repo Repository, recorder activity.Recorder) *Service {
	return &Service{
		repo:     repo,
		recorder: recorder,
		runHooks: hooks.Run,
		now:      time.Now,
	}
}

type DocumentInput struct {
	CounterpartyName  string
	CounterpartyTaxID string
	AmountPaid        decimal.Decimal
	Items             []LineItemInput
	IssuedAt          *time.Time
}

// DocumentUpdate replaces the document's content. Items are replaced
// destructively: the full new set is written in array order. Status is
// optional; setting a sale to CANCELLED removes its ledger mirror.
type DocumentUpdate struct {
	CounterpartyName  string
	CounterpartyTaxID string
	AmountPaid        decimal.Decimal
	Items             []LineItemInput
	IssuedAt          *time.Time
	Status            *DocumentStatus
}

// Sales

func (s *Service) CreateSale(ctx context.Context, practitionerID uuid.UUID, in DocumentInput) (*Document, error) {
	return s.createDocument(ctx, KindSale, practitionerID, in)
}

func (s *Service) UpdateSale(ctx context.Context, practitionerID, id uuid.UUID, in DocumentUpdate) (*Document, error) {
	return s.updateDocument(ctx, KindSale, practitionerID, id, in)
}

func (s *Service) DeleteSale(ctx context.Context, practitionerID, id uuid.UUID) error {
	return s.deleteDocument(ctx, KindSale, practitionerID, id)
}

func (s *Service) GetSale(ctx context.Context, practitionerID, id uuid.UUID) (*Document, error) {
	return s.repo.GetDocument(ctx, KindSale, practitionerID, id)
}

func (s *Service) ListSales(ctx context.Context, practitionerID uuid.UUID) ([]Document, error) {
	return s.repo.ListDocuments(ctx, KindSale, practitionerID)
}

// Purchases

func (s *Service) CreatePurchase(ctx context.Context, practitionerID uuid.UUID, in DocumentInput) (*Document, error) {
	return s.createDocument(ctx, KindPurchase, practitionerID, in)
}

func (s *Service) UpdatePurchase(ctx context.Context, practitionerID, id uuid.UUID, in DocumentUpdate) (*Document, error) {
	return s.updateDocument(ctx, KindPurchase, practitionerID, id, in)
}

func (s *Service) DeletePurchase(ctx context.Context, practitionerID, id uuid.UUID) error {
	return s.deleteDocument(ctx, KindPurchase, practitionerID, id)
}

func (s *Service) GetPurchase(ctx context.Context, practitionerID, id uuid.UUID) (*Document, error) {
	return s.repo.GetDocument(ctx, KindPurchase, practitionerID, id)
}

func (s *Service) ListPurchases(ctx context.Context, practitionerID uuid.UUID) ([]Document, error) {
	return s.repo.ListDocuments(ctx, KindPurchase, practitionerID)
}

// Quotations

func (s *Service) CreateQuotation(ctx context.Context, practitionerID uuid.UUID, in DocumentInput) (*Document, error) {
	return s.createDocument(ctx, KindQuotation, practitionerID, in)
}

func (s *Service) UpdateQuotation(ctx context.Context, practitionerID, id uuid.UUID, in DocumentUpdate) (*Document, error) {
	return s.updateDocument(ctx, KindQuotation, practitionerID, id, in)
}

func (s *Service) DeleteQuotation(ctx context.Context, practitionerID, id uuid.UUID) error {
	return s.deleteDocument(ctx, KindQuotation, practitionerID, id)
}

func (s *Service) GetQuotation(ctx context.Context, practitionerID, id uuid.UUID) (*Document, error) {
	return s.repo.GetDocument(ctx, KindQuotation, practitionerID, id)
}

func (s *Service) ListQuotations(ctx context.Context, practitionerID uuid.UUID) ([]Document, error) {
	return s.repo.ListDocuments(ctx, KindQuotation, practitionerID)
}

// Core

func (s *Service) createDocument(ctx context.Context, kind DocumentKind, practitionerID uuid.UUID, in DocumentInput) (*Document, error) {
	if strings.TrimSpace(in.CounterpartyName) == "" {
		return nil, &ValidationError{Field: "counterparty_name", Message: "is required"}
	}
	if in.AmountPaid.IsNegative() {
		return nil, &ValidationError{Field: "amount_paid", Message: "must not be negative"}
	}

	items, err := NormalizeItems(in.Items)
	if err != nil {
		return nil, err
	}
	subtotal, tax, total := ComputeTotals(items)

	issuedAt := s.now().UTC()
	if in.IssuedAt != nil {
		issuedAt = *in.IssuedAt
	}

	doc := &Document{
		Kind:              kind,
		PractitionerID:    practitionerID,
		CounterpartyName:  strings.TrimSpace(in.CounterpartyName),
		CounterpartyTaxID: in.CounterpartyTaxID,
		Status:            DocActive,
		PaymentStatus:     DerivePaymentStatus(in.AmountPaid, total),
		AmountPaid:        in.AmountPaid,
		Subtotal:          subtotal,
		Tax:               tax,
		Total:             total,
		Items:             items,
		IssuedAt:          issuedAt,
	}

	attempts := scopedNumberAttempts
	if kind == KindSale {
		attempts = saleNumberAttempts
	}

	prefix := ScopePrefix(kind, issuedAt.Year())
	for attempt := 0; attempt < attempts; attempt++ {
		max, err := s.repo.MaxDocumentNumber(ctx, kind, practitionerID, prefix)
		if err != nil {
			return nil, fmt.Errorf("read %s sequence: %w", kind, err)
		}
		doc.ID = uuid.New()
		doc.Number = NextNumber(kind, issuedAt.Year(), max)

		err = s.repo.CreateDocument(ctx, doc, s.mirrorEntry(doc))
		if errors.Is(err, ErrDuplicateNumber) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.recordDocument(ctx, doc, "created")
		return doc, nil
	}

	return nil, ErrSequenceExhausted
}

// mirrorEntry builds the ledger mirror for a sale or purchase; quotations
// have no cash-flow effect and get nil.
func (s *Service) mirrorEntry(doc *Document) *LedgerEntry {
	var entryType EntryType
	var txType TransactionType
	var label string

	switch doc.Kind {
	case KindSale:
		entryType, txType, label = EntryIngreso, TransactionSale, "Sale"
	case KindPurchase:
		entryType, txType, label = EntryEgreso, TransactionPurchase, "Purchase"
	default:
		return nil
	}

	sourceID := doc.ID
	return &LedgerEntry{
		PractitionerID:  doc.PractitionerID,
		Concept:         fmt.Sprintf("%s %s - %s", label, doc.Number, doc.CounterpartyName),
		EntryType:       entryType,
		Amount:          doc.Total,
		AmountPaid:      doc.AmountPaid,
		PaymentStatus:   doc.PaymentStatus,
		TransactionType: txType,
		SourceID:        &sourceID,
		EntryAt:         doc.IssuedAt,
	}
}

func (s *Service) updateDocument(ctx context.Context, kind DocumentKind, practitionerID, id uuid.UUID, in DocumentUpdate) (*Document, error) {
	if strings.TrimSpace(in.CounterpartyName) == "" {
		return nil, &ValidationError{Field: "counterparty_name", Message: "is required"}
	}
	if in.AmountPaid.IsNegative() {
		return nil, &ValidationError{Field: "amount_paid", Message: "must not be negative"}
	}
	if in.Status != nil && *in.Status != DocActive && *in.Status != DocCancelled {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", *in.Status)}
	}

	items, err := NormalizeItems(in.Items)
	if err != nil {
		return nil, err
	}
	subtotal, tax, total := ComputeTotals(items)

	doc, err := s.repo.GetDocument(ctx, kind, practitionerID, id)
	if err != nil {
		return nil, err
	}

	doc.CounterpartyName = strings.TrimSpace(in.CounterpartyName)
	doc.CounterpartyTaxID = in.CounterpartyTaxID
	doc.AmountPaid = in.AmountPaid
	doc.Items = items
	doc.Subtotal = subtotal
	doc.Tax = tax
	doc.Total = total
	doc.PaymentStatus = DerivePaymentStatus(in.AmountPaid, total)
	if in.IssuedAt != nil {
		doc.IssuedAt = *in.IssuedAt
	}
	if in.Status != nil {
		doc.Status = *in.Status
	}

	// A cancelled sale has no cash-flow effect: its mirror entry is removed
	// outright rather than zeroed. Purchases keep their mirror regardless.
	deleteEntry := kind == KindSale && doc.Status == DocCancelled

	var entrySync *LedgerEntry
	if !deleteEntry {
		entrySync = s.mirrorEntry(doc)
	}

	if err := s.repo.UpdateDocument(ctx, doc, entrySync, deleteEntry); err != nil {
		return nil, err
	}

	if deleteEntry {
		s.recordDocument(ctx, doc, "cancelled")
	} else {
		s.recordDocument(ctx, doc, "updated")
	}
	return doc, nil
}

func (s *Service) deleteDocument(ctx context.Context, kind DocumentKind, practitionerID, id uuid.UUID) error {
	doc, err := s.repo.GetDocument(ctx, kind, practitionerID, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteDocument(ctx, kind, practitionerID, id); err != nil {
		return err
	}

	s.recordDocument(ctx, doc, "deleted")
	return nil
}

func (s *Service) recordDocument(ctx context.Context, doc *Document, verb string) {
	d := *doc
	s.runHooks(ctx, hooks.Hook{Name: "activity.document_" + verb, Fn: func(ctx context.Context) error {
		return s.recorder.Record(ctx, activity.Entry{
			ActorID:    d.PractitionerID,
			Action:     string(d.Kind) + "." + verb,
			EntityType: string(d.Kind),
			EntityID:   d.ID.String(),
			Message:    fmt.Sprintf("%s %s %s (%s, total %s)", d.Kind, d.Number, verb, d.CounterpartyName, d.Total.StringFixed(2)),
			Metadata:   map[string]any{"number": d.Number, "total": d.Total.StringFixed(2)},
		})
	}})
}

// Manual ledger entries

type EntryInput struct {
	Concept    string
	EntryType  EntryType
	Amount     decimal.Decimal
	AmountPaid decimal.Decimal
	EntryAt    *time.Time
}

func (in EntryInput) validate() error {
	if strings.TrimSpace(in.Concept) == "" {
		return &ValidationError{Field: "concept", Message: "is required"}
	}
	if in.EntryType != EntryIngreso && in.EntryType != EntryEgreso {
		return &ValidationError{Field: "entry_type", Message: fmt.Sprintf("must be %q or %q", EntryIngreso, EntryEgreso)}
	}
	if in.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Message: "must not be negative"}
	}
	if in.AmountPaid.IsNegative() {
		return &ValidationError{Field: "amount_paid", Message: "must not be negative"}
	}
	return nil
}

// CreateManualEntry records a direct cash-flow entry with no source
// document. The reconciliation engine never touches it.
func (s *Service) CreateManualEntry(ctx context.Context, practitionerID uuid.UUID, in EntryInput) (*LedgerEntry, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	entryAt := s.now().UTC()
	if in.EntryAt != nil {
		entryAt = *in.EntryAt
	}

	e := &LedgerEntry{
		PractitionerID:  practitionerID,
		Concept:         strings.TrimSpace(in.Concept),
		EntryType:       in.EntryType,
		Amount:          in.Amount,
		AmountPaid:      in.AmountPaid,
		PaymentStatus:   DerivePaymentStatus(in.AmountPaid, in.Amount),
		TransactionType: TransactionNA,
		EntryAt:         entryAt,
	}
	if err := s.repo.CreateEntry(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) UpdateManualEntry(ctx context.Context, practitionerID, id uuid.UUID, in EntryInput) (*LedgerEntry, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	e, err := s.repo.GetEntry(ctx, practitionerID, id)
	if err != nil {
		return nil, err
	}
	if e.Derived() {
		return nil, ErrEntryManaged
	}

	e.Concept = strings.TrimSpace(in.Concept)
	e.EntryType = in.EntryType
	e.Amount = in.Amount
	e.AmountPaid = in.AmountPaid
	e.PaymentStatus = DerivePaymentStatus(in.AmountPaid, in.Amount)
	if in.EntryAt != nil {
		e.EntryAt = *in.EntryAt
	}

	if err := s.repo.UpdateEntry(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) DeleteManualEntry(ctx context.Context, practitionerID, id uuid.UUID) error {
	e, err := s.repo.GetEntry(ctx, practitionerID, id)
	if err != nil {
		return err
	}
	if e.Derived() {
		return ErrEntryManaged
	}
	return s.repo.DeleteEntry(ctx, practitionerID, id)
}

func (s *Service) GetEntry(ctx context.Context, practitionerID, id uuid.UUID) (*LedgerEntry, error) {
	return s.repo.GetEntry(ctx, practitionerID, id)
}

func (s *Service) ListEntries(ctx context.Context, practitionerID uuid.UUID) ([]LedgerEntry, error) {
	return s.repo.ListEntries(ctx, practitionerID)
}
