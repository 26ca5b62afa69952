package finance

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrEntryNotFound    = errors.New("ledger entry not found")

	// ErrDuplicateNumber is the repository's translation of a unique
	// violation on a document number. The service retries the globally
	// scoped sale sequence on it.
	ErrDuplicateNumber = errors.New("document number already exists")

	// ErrSequenceExhausted is returned after the bounded retry loop for the
	// global sale-number sequence gives up.
	ErrSequenceExhausted = errors.New("document number sequence exhausted")

	// ErrEntryManaged rejects direct edits to entries that mirror a sale or
	// purchase; those are owned by the reconciliation engine.
	ErrEntryManaged = errors.New("ledger entry is managed by its source document")
)

// ValidationError reports malformed input with field-level detail.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
