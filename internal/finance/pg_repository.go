package finance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const documentColumns = `id, kind, practitioner_id, number, counterparty_name,
	counterparty_tax_id, status, payment_status, amount_paid, subtotal, tax,
	total, issued_at, created_at, updated_at`

const entryColumns = `id, practitioner_id, internal_id, concept, entry_type,
	amount, amount_paid, payment_status, transaction_type, source_id,
	entry_at, created_at, updated_at`

// Helpers

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	var taxID *string

	err := row.Scan(
		&d.ID,
		&d.Kind,
		&d.PractitionerID,
		&d.Number,
		&d.CounterpartyName,
		&taxID,
		&d.Status,
		&d.PaymentStatus,
		&d.AmountPaid,
		&d.Subtotal,
		&d.Tax,
		&d.Total,
		&d.IssuedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	if taxID != nil {
		d.CounterpartyTaxID = *taxID
	}
	return &d, nil
}

func scanEntry(row pgx.Row) (*LedgerEntry, error) {
	var e LedgerEntry

	err := row.Scan(
		&e.ID,
		&e.PractitionerID,
		&e.InternalID,
		&e.Concept,
		&e.EntryType,
		&e.Amount,
		&e.AmountPaid,
		&e.PaymentStatus,
		&e.TransactionType,
		&e.SourceID,
		&e.EntryAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}

	return &e, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Interface methods

func (r *PgRepository) MaxDocumentNumber(ctx context.Context, kind DocumentKind, practitionerID uuid.UUID, prefix string) (string, error) {
	// length-then-lexicographic so VEN-2026-1000 sorts after VEN-2026-999
	query := `
		SELECT number
		FROM documents
		WHERE kind = $1 AND number LIKE $2 || '%'
		ORDER BY length(number) DESC, number DESC
		LIMIT 1
	`
	args := []any{kind, prefix}
	if kind != KindSale {
		query = `
			SELECT number
			FROM documents
			WHERE kind = $1 AND number LIKE $2 || '%' AND practitioner_id = $3
			ORDER BY length(number) DESC, number DESC
			LIMIT 1
		`
		args = append(args, practitionerID)
	}

	var number string
	err := r.pool.QueryRow(ctx, query, args...).Scan(&number)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return number, nil
}

func (r *PgRepository) CreateDocument(ctx context.Context, doc *Document, entry *LedgerEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO documents
			(id, kind, practitioner_id, number, counterparty_name,
			 counterparty_tax_id, status, payment_status, amount_paid,
			 subtotal, tax, total, issued_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
		RETURNING created_at, updated_at
	`, doc.ID, doc.Kind, doc.PractitionerID, doc.Number, doc.CounterpartyName,
		nullable(doc.CounterpartyTaxID), doc.Status, doc.PaymentStatus,
		doc.AmountPaid, doc.Subtotal, doc.Tax, doc.Total, doc.IssuedAt)
	if err := row.Scan(&doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateNumber
		}
		return fmt.Errorf("insert document: %w", err)
	}

	if err := insertItems(ctx, tx, doc.ID, doc.Items); err != nil {
		return err
	}

	if entry != nil {
		if err := insertEntry(ctx, tx, entry); err != nil {
			if isUniqueViolation(err) {
				// internal_id race for the same practitioner; the caller's
				// retry loop recomputes everything.
				return ErrDuplicateNumber
			}
			return err
		}
	}

	return tx.Commit(ctx)
}

func insertItems(ctx context.Context, tx pgx.Tx, documentID uuid.UUID, items []LineItem) error {
	for i, li := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO document_items
				(document_id, position, description, item_type, quantity,
				 unit, unit_price, discount_rate, tax_rate)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, documentID, i, li.Description, li.ItemType, li.Quantity,
			li.Unit, li.UnitPrice, li.DiscountRate, li.TaxRate)
		if err != nil {
			return fmt.Errorf("insert line item %d: %w", i, err)
		}
	}
	return nil
}

func insertEntry(ctx context.Context, tx pgx.Tx, e *LedgerEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO ledger_entries
			(id, practitioner_id, internal_id, concept, entry_type, amount,
			 amount_paid, payment_status, transaction_type, source_id,
			 entry_at, created_at, updated_at)
		VALUES ($1, $2,
			(SELECT COALESCE(MAX(internal_id), 0) + 1
			 FROM ledger_entries WHERE practitioner_id = $2),
			$3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING internal_id, created_at, updated_at
	`, e.ID, e.PractitionerID, e.Concept, e.EntryType, e.Amount,
		e.AmountPaid, e.PaymentStatus, e.TransactionType, e.SourceID, e.EntryAt)
	if err := row.Scan(&e.InternalID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func (r *PgRepository) GetDocument(ctx context.Context, kind DocumentKind, practitionerID, id uuid.UUID) (*Document, error) {
	doc, err := scanDocument(r.pool.QueryRow(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE id = $1 AND kind = $2 AND practitioner_id = $3
	`, id, kind, practitionerID))
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *PgRepository) loadItems(ctx context.Context, doc *Document) error {
	rows, err := r.pool.Query(ctx, `
		SELECT description, item_type, quantity, unit, unit_price,
		       discount_rate, tax_rate
		FROM document_items
		WHERE document_id = $1
		ORDER BY position
	`, doc.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.Description, &li.ItemType, &li.Quantity,
			&li.Unit, &li.UnitPrice, &li.DiscountRate, &li.TaxRate); err != nil {
			return err
		}
		doc.Items = append(doc.Items, li)
	}
	return rows.Err()
}

func (r *PgRepository) ListDocuments(ctx context.Context, kind DocumentKind, practitionerID uuid.UUID) ([]Document, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE kind = $1 AND practitioner_id = $2
		ORDER BY issued_at DESC, number DESC
	`, kind, practitionerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpdateDocument(ctx context.Context, doc *Document, entrySync *LedgerEntry, deleteEntry bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE documents
		SET counterparty_name = $4,
		    counterparty_tax_id = $5,
		    status = $6,
		    payment_status = $7,
		    amount_paid = $8,
		    subtotal = $9,
		    tax = $10,
		    total = $11,
		    issued_at = $12,
		    updated_at = now()
		WHERE id = $1 AND kind = $2 AND practitioner_id = $3
	`, doc.ID, doc.Kind, doc.PractitionerID, doc.CounterpartyName,
		nullable(doc.CounterpartyTaxID), doc.Status, doc.PaymentStatus,
		doc.AmountPaid, doc.Subtotal, doc.Tax, doc.Total, doc.IssuedAt)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}

	// Destructive replace: drop every line and insert the new set with
	// positions matching array order.
	if _, err := tx.Exec(ctx, `DELETE FROM document_items WHERE document_id = $1`, doc.ID); err != nil {
		return fmt.Errorf("clear line items: %w", err)
	}
	if err := insertItems(ctx, tx, doc.ID, doc.Items); err != nil {
		return err
	}

	switch {
	case deleteEntry:
		if _, err := tx.Exec(ctx, `
			DELETE FROM ledger_entries WHERE source_id = $1 AND practitioner_id = $2
		`, doc.ID, doc.PractitionerID); err != nil {
			return fmt.Errorf("delete mirror entry: %w", err)
		}
	case entrySync != nil:
		if _, err := tx.Exec(ctx, `
			UPDATE ledger_entries
			SET concept = $3, amount = $4, amount_paid = $5,
			    payment_status = $6, updated_at = now()
			WHERE source_id = $1 AND practitioner_id = $2
		`, doc.ID, doc.PractitionerID, entrySync.Concept, entrySync.Amount,
			entrySync.AmountPaid, entrySync.PaymentStatus); err != nil {
			return fmt.Errorf("sync mirror entry: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) DeleteDocument(ctx context.Context, kind DocumentKind, practitionerID, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Mirror entry goes first so no orphan can survive a partial failure.
	if _, err := tx.Exec(ctx, `
		DELETE FROM ledger_entries WHERE source_id = $1 AND practitioner_id = $2
	`, id, practitionerID); err != nil {
		return fmt.Errorf("delete mirror entry: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM document_items WHERE document_id = $1`, id); err != nil {
		return fmt.Errorf("delete line items: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM documents WHERE id = $1 AND kind = $2 AND practitioner_id = $3
	`, id, kind, practitionerID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) CreateEntry(ctx context.Context, e *LedgerEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertEntry(ctx, tx, e); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PgRepository) GetEntry(ctx context.Context, practitionerID, id uuid.UUID) (*LedgerEntry, error) {
	return scanEntry(r.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE id = $1 AND practitioner_id = $2
	`, id, practitionerID))
}

func (r *PgRepository) GetEntryBySource(ctx context.Context, practitionerID, sourceID uuid.UUID) (*LedgerEntry, error) {
	return scanEntry(r.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE source_id = $1 AND practitioner_id = $2
	`, sourceID, practitionerID))
}

func (r *PgRepository) ListEntries(ctx context.Context, practitionerID uuid.UUID) ([]LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE practitioner_id = $1
		ORDER BY internal_id
	`, practitionerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpdateEntry(ctx context.Context, e *LedgerEntry) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ledger_entries
		SET concept = $3, entry_type = $4, amount = $5, amount_paid = $6,
		    payment_status = $7, entry_at = $8, updated_at = now()
		WHERE id = $1 AND practitioner_id = $2
	`, e.ID, e.PractitionerID, e.Concept, e.EntryType, e.Amount,
		e.AmountPaid, e.PaymentStatus, e.EntryAt)
	if err != nil {
		return fmt.Errorf("update ledger entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *PgRepository) DeleteEntry(ctx context.Context, practitionerID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM ledger_entries WHERE id = $1 AND practitioner_id = $2
	`, id, practitionerID)
	if err != nil {
		return fmt.Errorf("delete ledger entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
