package finance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests and local
// development. One mutex stands in for the transaction boundary.
type MemoryRepository struct {
	mu      sync.Mutex
	docs    map[uuid.UUID]*Document
	entries map[uuid.UUID]*LedgerEntry
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		docs:    make(map[uuid.UUID]*Document),
		entries: make(map[uuid.UUID]*LedgerEntry),
		now:     time.Now,
	}
}

func (m *MemoryRepository) MaxDocumentNumber(_ context.Context, kind DocumentKind, practitionerID uuid.UUID, prefix string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	max := ""
	for _, d := range m.docs {
		if d.Kind != kind {
			continue
		}
		if kind != KindSale && d.PractitionerID != practitionerID {
			continue
		}
		if len(d.Number) < len(prefix) || d.Number[:len(prefix)] != prefix {
			continue
		}
		if numberLess(max, d.Number) {
			max = d.Number
		}
	}
	return max, nil
}

// numberLess orders by length first so VEN-2026-1000 beats VEN-2026-999.
func numberLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

func (m *MemoryRepository) CreateDocument(_ context.Context, doc *Document, entry *LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.docs {
		if d.Kind != doc.Kind || d.Number != doc.Number {
			continue
		}
		if doc.Kind == KindSale || d.PractitionerID == doc.PractitionerID {
			return ErrDuplicateNumber
		}
	}

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := m.now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	cp := copyDocument(doc)
	m.docs[doc.ID] = cp

	if entry != nil {
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		entry.InternalID = m.nextInternalIDLocked(entry.PractitionerID)
		entry.CreatedAt = now
		entry.UpdatedAt = now
		ecp := *entry
		m.entries[entry.ID] = &ecp
	}

	return nil
}

func (m *MemoryRepository) nextInternalIDLocked(practitionerID uuid.UUID) int {
	max := 0
	for _, e := range m.entries {
		if e.PractitionerID == practitionerID && e.InternalID > max {
			max = e.InternalID
		}
	}
	return max + 1
}

func (m *MemoryRepository) GetDocument(_ context.Context, kind DocumentKind, practitionerID, id uuid.UUID) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.docs[id]
	if !ok || d.Kind != kind || d.PractitionerID != practitionerID {
		return nil, ErrDocumentNotFound
	}
	return copyDocument(d), nil
}

func (m *MemoryRepository) ListDocuments(_ context.Context, kind DocumentKind, practitionerID uuid.UUID) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Document
	for _, d := range m.docs {
		if d.Kind == kind && d.PractitionerID == practitionerID {
			result = append(result, *copyDocument(d))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return numberLess(result[j].Number, result[i].Number)
	})
	return result, nil
}

func (m *MemoryRepository) UpdateDocument(_ context.Context, doc *Document, entrySync *LedgerEntry, deleteEntry bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.docs[doc.ID]
	if !ok || existing.Kind != doc.Kind || existing.PractitionerID != doc.PractitionerID {
		return ErrDocumentNotFound
	}

	doc.CreatedAt = existing.CreatedAt
	doc.UpdatedAt = m.now()
	m.docs[doc.ID] = copyDocument(doc)

	switch {
	case deleteEntry:
		m.deleteEntryBySourceLocked(doc.PractitionerID, doc.ID)
	case entrySync != nil:
		for _, e := range m.entries {
			if e.SourceID != nil && *e.SourceID == doc.ID && e.PractitionerID == doc.PractitionerID {
				e.Concept = entrySync.Concept
				e.Amount = entrySync.Amount
				e.AmountPaid = entrySync.AmountPaid
				e.PaymentStatus = entrySync.PaymentStatus
				e.UpdatedAt = m.now()
			}
		}
	}

	return nil
}

func (m *MemoryRepository) deleteEntryBySourceLocked(practitionerID, sourceID uuid.UUID) {
	for id, e := range m.entries {
		if e.SourceID != nil && *e.SourceID == sourceID && e.PractitionerID == practitionerID {
			delete(m.entries, id)
		}
	}
}

func (m *MemoryRepository) DeleteDocument(_ context.Context, kind DocumentKind, practitionerID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.docs[id]
	if !ok || d.Kind != kind || d.PractitionerID != practitionerID {
		return ErrDocumentNotFound
	}

	m.deleteEntryBySourceLocked(practitionerID, id)
	delete(m.docs, id)
	return nil
}

func (m *MemoryRepository) CreateEntry(_ context.Context, e *LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.InternalID = m.nextInternalIDLocked(e.PractitionerID)
	now := m.now()
	e.CreatedAt = now
	e.UpdatedAt = now

	cp := *e
	m.entries[e.ID] = &cp
	return nil
}

func (m *MemoryRepository) GetEntry(_ context.Context, practitionerID, id uuid.UUID) (*LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || e.PractitionerID != practitionerID {
		return nil, ErrEntryNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MemoryRepository) GetEntryBySource(_ context.Context, practitionerID, sourceID uuid.UUID) (*LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.SourceID != nil && *e.SourceID == sourceID && e.PractitionerID == practitionerID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrEntryNotFound
}

func (m *MemoryRepository) ListEntries(_ context.Context, practitionerID uuid.UUID) ([]LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []LedgerEntry
	for _, e := range m.entries {
		if e.PractitionerID == practitionerID {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].InternalID < result[j].InternalID
	})
	return result, nil
}

func (m *MemoryRepository) UpdateEntry(_ context.Context, e *LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.entries[e.ID]
	if !ok || existing.PractitionerID != e.PractitionerID {
		return ErrEntryNotFound
	}

	existing.Concept = e.Concept
	existing.EntryType = e.EntryType
	existing.Amount = e.Amount
	existing.AmountPaid = e.AmountPaid
	existing.PaymentStatus = e.PaymentStatus
	existing.EntryAt = e.EntryAt
	existing.UpdatedAt = m.now()
	return nil
}

func (m *MemoryRepository) DeleteEntry(_ context.Context, practitionerID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || e.PractitionerID != practitionerID {
		return ErrEntryNotFound
	}
	delete(m.entries, id)
	return nil
}

func copyDocument(d *Document) *Document {
	cp := *d
	cp.Items = append([]LineItem(nil), d.Items...)
	return &cp
}
