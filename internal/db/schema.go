package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate applies the schema. Statements are idempotent so the server can run
// it unconditionally on startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS appointment_slots (
		id uuid PRIMARY KEY,
		practitioner_id uuid NOT NULL,
		start_at timestamptz NOT NULL,
		end_at timestamptz NOT NULL,
		duration_minutes int NOT NULL,
		price numeric(12,2) NOT NULL DEFAULT 0,
		max_bookings int NOT NULL CHECK (max_bookings >= 1),
		current_bookings int NOT NULL DEFAULT 0
			CHECK (current_bookings >= 0 AND current_bookings <= max_bookings),
		status varchar(16) NOT NULL DEFAULT 'AVAILABLE',
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS appointment_slots_practitioner_start_idx
		ON appointment_slots (practitioner_id, start_at)`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id uuid PRIMARY KEY,
		slot_id uuid NOT NULL REFERENCES appointment_slots(id),
		practitioner_id uuid NOT NULL,
		patient_name text NOT NULL,
		patient_phone text,
		patient_email text,
		notes text,
		final_price numeric(12,2) NOT NULL,
		confirmation_code varchar(8) NOT NULL UNIQUE,
		status varchar(16) NOT NULL DEFAULT 'PENDING',
		confirmed_at timestamptz,
		cancelled_at timestamptz,
		completed_at timestamptz,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS bookings_slot_idx ON bookings (slot_id)`,
	`CREATE INDEX IF NOT EXISTS bookings_practitioner_idx ON bookings (practitioner_id)`,

	`CREATE TABLE IF NOT EXISTS documents (
		id uuid PRIMARY KEY,
		kind varchar(16) NOT NULL,
		practitioner_id uuid NOT NULL,
		number varchar(32) NOT NULL,
		counterparty_name text NOT NULL,
		counterparty_tax_id text,
		status varchar(16) NOT NULL DEFAULT 'ACTIVE',
		payment_status varchar(16) NOT NULL,
		amount_paid numeric(12,2) NOT NULL DEFAULT 0,
		subtotal numeric(12,2) NOT NULL,
		tax numeric(12,2) NOT NULL,
		total numeric(12,2) NOT NULL,
		issued_at timestamptz NOT NULL DEFAULT now(),
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now(),
		UNIQUE (kind, practitioner_id, number)
	)`,
	// Sale numbers are unique across all practitioners, not just per tenant.
	`CREATE UNIQUE INDEX IF NOT EXISTS documents_sale_number_idx
		ON documents (number) WHERE kind = 'sale'`,
	`CREATE INDEX IF NOT EXISTS documents_kind_practitioner_idx
		ON documents (kind, practitioner_id)`,

	`CREATE TABLE IF NOT EXISTS document_items (
		id bigserial PRIMARY KEY,
		document_id uuid NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		position int NOT NULL,
		description text NOT NULL,
		item_type varchar(32) NOT NULL DEFAULT '',
		quantity numeric(12,3) NOT NULL,
		unit varchar(16) NOT NULL DEFAULT '',
		unit_price numeric(12,2) NOT NULL,
		discount_rate numeric(6,4) NOT NULL DEFAULT 0,
		tax_rate numeric(6,4) NOT NULL DEFAULT 0.16
	)`,
	`CREATE INDEX IF NOT EXISTS document_items_document_idx
		ON document_items (document_id)`,

	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id uuid PRIMARY KEY,
		practitioner_id uuid NOT NULL,
		internal_id int NOT NULL,
		concept text NOT NULL,
		entry_type varchar(8) NOT NULL,
		amount numeric(12,2) NOT NULL,
		amount_paid numeric(12,2) NOT NULL DEFAULT 0,
		payment_status varchar(16) NOT NULL,
		transaction_type varchar(16) NOT NULL DEFAULT 'n/a',
		source_id uuid,
		entry_at timestamptz NOT NULL DEFAULT now(),
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now(),
		UNIQUE (practitioner_id, internal_id)
	)`,
	`CREATE INDEX IF NOT EXISTS ledger_entries_source_idx
		ON ledger_entries (source_id)`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id uuid PRIMARY KEY,
		practitioner_id uuid NOT NULL,
		title text NOT NULL,
		notes text,
		task_date date NOT NULL,
		start_at timestamptz,
		end_at timestamptz,
		status varchar(16) NOT NULL DEFAULT 'PENDING',
		priority varchar(8) NOT NULL DEFAULT 'NORMAL',
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS tasks_practitioner_date_idx
		ON tasks (practitioner_id, task_date)`,

	`CREATE TABLE IF NOT EXISTS activity_log (
		id bigserial PRIMARY KEY,
		actor_id uuid,
		action varchar(64) NOT NULL,
		entity_type varchar(32) NOT NULL,
		entity_id text NOT NULL,
		message text NOT NULL,
		metadata jsonb,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
}
