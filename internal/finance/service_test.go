package finance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/practice-backend/internal/activity"
	"github.com/clinicore/practice-backend/internal/hooks"
)

func newTestService() (*Service, *MemoryRepository) {
	repo := NewMemoryRepository()
	svc := NewService(repo, activity.NopRecorder{})
	svc.runHooks = func(ctx context.Context, hs ...hooks.Hook) {
		for _, h := range hs {
			_ = h.Fn(ctx)
		}
	}
	svc.now = func() time.Time {
		return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	}
	return svc, repo
}

func saleInput() DocumentInput {
	return DocumentInput{
		CounterpartyName: "Paciente García",
		Items: []LineItemInput{{
			Description: "Consultation",
			Quantity:    dec("1"),
			UnitPrice:   dec("1000"),
		}},
	}
}

func TestCreateSaleMirrorsLedgerEntry(t *testing.T) {
	svc, repo := newTestService()
	practitionerID := uuid.New()

	doc, err := svc.CreateSale(context.Background(), practitionerID, saleInput())
	require.NoError(t, err)

	assert.Equal(t, "VEN-2026-001", doc.Number)
	assert.Equal(t, DocActive, doc.Status)
	assert.Equal(t, PaymentPending, doc.PaymentStatus)
	assert.True(t, doc.Total.Equal(dec("1160")), "1000 + 16%% tax, got %s", doc.Total)

	entry, err := repo.GetEntryBySource(context.Background(), practitionerID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, EntryIngreso, entry.EntryType)
	assert.Equal(t, TransactionSale, entry.TransactionType)
	assert.True(t, entry.Amount.Equal(doc.Total))
	assert.Equal(t, "Sale VEN-2026-001 - Paciente García", entry.Concept)
	assert.Equal(t, 1, entry.InternalID)
	assert.True(t, entry.Derived())
}

func TestCreatePurchaseMirrorsEgreso(t *testing.T) {
	svc, repo := newTestService()
	practitionerID := uuid.New()

	taxed := dec("0.16")
	exempt := decimal.Zero
	doc, err := svc.CreatePurchase(context.Background(), practitionerID, DocumentInput{
		CounterpartyName: "Proveedor Médico SA",
		AmountPaid:       dec("2240"),
		Items: []LineItemInput{
			{Description: "Disposable supplies", Quantity: dec("10"), UnitPrice: dec("150"), TaxRate: &taxed},
			{Description: "Equipment service", Quantity: dec("1"), UnitPrice: dec("500"), TaxRate: &exempt},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "COM-2026-001", doc.Number)
	assert.True(t, doc.Subtotal.Equal(dec("2000")), "subtotal %s", doc.Subtotal)
	assert.True(t, doc.Tax.Equal(dec("240")), "only the taxed line contributes, got %s", doc.Tax)
	assert.True(t, doc.Total.Equal(dec("2240")))
	assert.Equal(t, PaymentPaid, doc.PaymentStatus)

	entry, err := repo.GetEntryBySource(context.Background(), practitionerID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, EntryEgreso, entry.EntryType)
	assert.Equal(t, TransactionPurchase, entry.TransactionType)
	assert.True(t, entry.Amount.Equal(dec("2240")))
	assert.Equal(t, PaymentPaid, entry.PaymentStatus)
}

func TestCreateQuotationHasNoLedgerEntry(t *testing.T) {
	svc, repo := newTestService()
	practitionerID := uuid.New()

	doc, err := svc.CreateQuotation(context.Background(), practitionerID, saleInput())
	require.NoError(t, err)
	assert.Equal(t, "COT-2026-001", doc.Number)

	_, err = repo.GetEntryBySource(context.Background(), practitionerID, doc.ID)
	assert.ErrorIs(t, err, ErrEntryNotFound)

	entries, err := svc.ListEntries(context.Background(), practitionerID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaleNumbersAreGlobal(t *testing.T) {
	svc, _ := newTestService()
	alice, bob := uuid.New(), uuid.New()

	d1, err := svc.CreateSale(context.Background(), alice, saleInput())
	require.NoError(t, err)
	d2, err := svc.CreateSale(context.Background(), bob, saleInput())
	require.NoError(t, err)

	// Sales share one sequence across practitioners.
	assert.Equal(t, "VEN-2026-001", d1.Number)
	assert.Equal(t, "VEN-2026-002", d2.Number)

	// Purchases and quotations are scoped per practitioner.
	p1, err := svc.CreatePurchase(context.Background(), alice, saleInput())
	require.NoError(t, err)
	p2, err := svc.CreatePurchase(context.Background(), bob, saleInput())
	require.NoError(t, err)
	assert.Equal(t, "COM-2026-001", p1.Number)
	assert.Equal(t, "COM-2026-001", p2.Number)
}

func TestConcurrentSalesGetDistinctNumbers(t *testing.T) {
	svc, _ := newTestService()
	const runs = 10

	var wg sync.WaitGroup
	numbers := make(chan string, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := svc.CreateSale(context.Background(), uuid.New(), saleInput())
			if assert.NoError(t, err) {
				numbers <- doc.Number
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[string]bool)
	for n := range numbers {
		assert.False(t, seen[n], "duplicate number %s", n)
		seen[n] = true
	}
	assert.Len(t, seen, runs)
}

func TestUpdateSaleResyncsEntry(t *testing.T) {
	svc, repo := newTestService()
	practitionerID := uuid.New()

	doc, err := svc.CreateSale(context.Background(), practitionerID, saleInput())
	require.NoError(t, err)

	updated, err := svc.UpdateSale(context.Background(), practitionerID, doc.ID, DocumentUpdate{
		CounterpartyName: "Paciente García",
		AmountPaid:       dec("580"),
		Items: []LineItemInput{{
			Description: "Consultation",
			Quantity:    dec("2"),
			UnitPrice:   dec("500"),
		}},
	})
	require.NoError(t, err)
	assert.True(t, updated.Total.Equal(dec("1160")))
	assert.Equal(t, PaymentPartial, updated.PaymentStatus)
	assert.Equal(t, doc.Number, updated.Number, "document number never changes on update")

	entry, err := repo.GetEntryBySource(context.Background(), practitionerID, doc.ID)
	require.NoError(t, err)
	assert.True(t, entry.Amount.Equal(updated.Total))
	assert.True(t, entry.AmountPaid.Equal(dec("580")))
	assert.Equal(t, PaymentPartial, entry.PaymentStatus)
}

func TestCancelSaleRemovesEntry(t *testing.T) {
	svc, repo := newTestService()
	practitionerID := uuid.New()

	doc, err := svc.CreateSale(context.Background(), practitionerID, saleInput())
	require.NoError(t, err)

	cancelled := DocCancelled
	updated, err := svc.UpdateSale(context.Background(), practitionerID, doc.ID, DocumentUpdate{
		CounterpartyName: doc.CounterpartyName,
		Items: []LineItemInput{{
			Description: "Consultation",
			Quantity:    dec("1"),
			UnitPrice:   dec("1000"),
		}},
		Status: &cancelled,
	})
	require.NoError(t, err)
	assert.Equal(t, DocCancelled, updated.Status)

	_, err = repo.GetEntryBySource(context.Background(), practitionerID, doc.ID)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestDeleteSaleRemovesEntry(t *testing.T) {
	svc, repo := newTestService()
	practitionerID := uuid.New()

	doc, err := svc.CreateSale(context.Background(), practitionerID, saleInput())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSale(context.Background(), practitionerID, doc.ID))

	_, err = svc.GetSale(context.Background(), practitionerID, doc.ID)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	_, err = repo.GetEntryBySource(context.Background(), practitionerID, doc.ID)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestDocumentsAreTenantScoped(t *testing.T) {
	svc, _ := newTestService()
	owner, stranger := uuid.New(), uuid.New()

	doc, err := svc.CreateSale(context.Background(), owner, saleInput())
	require.NoError(t, err)

	_, err = svc.GetSale(context.Background(), stranger, doc.ID)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	err = svc.DeleteSale(context.Background(), stranger, doc.ID)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestManualEntryLifecycle(t *testing.T) {
	svc, _ := newTestService()
	practitionerID := uuid.New()

	entry, err := svc.CreateManualEntry(context.Background(), practitionerID, EntryInput{
		Concept:    "Office rent",
		EntryType:  EntryEgreso,
		Amount:     dec("8000"),
		AmountPaid: dec("8000"),
	})
	require.NoError(t, err)
	assert.Equal(t, TransactionNA, entry.TransactionType)
	assert.Nil(t, entry.SourceID)
	assert.Equal(t, PaymentPaid, entry.PaymentStatus)
	assert.False(t, entry.Derived())

	updated, err := svc.UpdateManualEntry(context.Background(), practitionerID, entry.ID, EntryInput{
		Concept:    "Office rent (September)",
		EntryType:  EntryEgreso,
		Amount:     dec("8000"),
		AmountPaid: dec("4000"),
	})
	require.NoError(t, err)
	assert.Equal(t, PaymentPartial, updated.PaymentStatus)

	require.NoError(t, svc.DeleteManualEntry(context.Background(), practitionerID, entry.ID))
	_, err = svc.GetEntry(context.Background(), practitionerID, entry.ID)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestDerivedEntriesAreProtected(t *testing.T) {
	svc, repo := newTestService()
	practitionerID := uuid.New()

	doc, err := svc.CreateSale(context.Background(), practitionerID, saleInput())
	require.NoError(t, err)
	entry, err := repo.GetEntryBySource(context.Background(), practitionerID, doc.ID)
	require.NoError(t, err)

	_, err = svc.UpdateManualEntry(context.Background(), practitionerID, entry.ID, EntryInput{
		Concept:   "tamper",
		EntryType: EntryIngreso,
		Amount:    dec("1"),
	})
	assert.ErrorIs(t, err, ErrEntryManaged)

	err = svc.DeleteManualEntry(context.Background(), practitionerID, entry.ID)
	assert.ErrorIs(t, err, ErrEntryManaged)
}

func TestInternalIDsIncrementPerPractitioner(t *testing.T) {
	svc, _ := newTestService()
	alice, bob := uuid.New(), uuid.New()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateManualEntry(context.Background(), alice, EntryInput{
			Concept: "x", EntryType: EntryIngreso, Amount: dec("1"),
		})
		require.NoError(t, err)
	}
	_, err := svc.CreateManualEntry(context.Background(), bob, EntryInput{
		Concept: "y", EntryType: EntryIngreso, Amount: dec("1"),
	})
	require.NoError(t, err)

	aliceEntries, err := svc.ListEntries(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, aliceEntries, 3)
	ids := []int{aliceEntries[0].InternalID, aliceEntries[1].InternalID, aliceEntries[2].InternalID}
	assert.ElementsMatch(t, []int{1, 2, 3}, ids)

	bobEntries, err := svc.ListEntries(context.Background(), bob)
	require.NoError(t, err)
	require.Len(t, bobEntries, 1)
	assert.Equal(t, 1, bobEntries[0].InternalID, "internal ids are per practitioner")
}
