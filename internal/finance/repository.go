package finance

import (
	"context"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the service. Operations
// that touch a document and its ledger mirror are single methods so
// implementations can run them in one transaction; a document must never
// exist without its mirror entry, and vice versa.
type Repository interface {
	// MaxDocumentNumber returns the greatest existing number starting with
	// prefix, or "" when the scope is empty. practitionerID is ignored for
	// sales: their numbers are unique across all practitioners.
	MaxDocumentNumber(ctx context.Context, kind DocumentKind, practitionerID uuid.UUID, prefix string) (string, error)

	// CreateDocument inserts the document, its items and, when entry is
	// non-nil, the mirror ledger entry with a freshly allocated per-
	// practitioner internal ID. Returns ErrDuplicateNumber when the number
	// is already taken.
	CreateDocument(ctx context.Context, doc *Document, entry *LedgerEntry) error

	GetDocument(ctx context.Context, kind DocumentKind, practitionerID, id uuid.UUID) (*Document, error)
	ListDocuments(ctx context.Context, kind DocumentKind, practitionerID uuid.UUID) ([]Document, error)

	// UpdateDocument rewrites the document row, destructively replaces its
	// items, and syncs the linked entry: entrySync carries the new mirror
	// values, deleteEntry removes it (cancelled sale). A missing linked
	// entry is not an error.
	UpdateDocument(ctx context.Context, doc *Document, entrySync *LedgerEntry, deleteEntry bool) error

	// DeleteDocument removes the linked entry first, then items and the
	// document, in one transaction.
	DeleteDocument(ctx context.Context, kind DocumentKind, practitionerID, id uuid.UUID) error

	// CreateEntry inserts a manual ledger entry, allocating its per-
	// practitioner internal ID in the same transaction.
	CreateEntry(ctx context.Context, e *LedgerEntry) error
	GetEntry(ctx context.Context, practitionerID, id uuid.UUID) (*LedgerEntry, error)
	GetEntryBySource(ctx context.Context, practitionerID, sourceID uuid.UUID) (*LedgerEntry, error)
	ListEntries(ctx context.Context, practitionerID uuid.UUID) ([]LedgerEntry, error)
	UpdateEntry(ctx context.Context, e *LedgerEntry) error
	DeleteEntry(ctx context.Context, practitionerID, id uuid.UUID) error
}
