// Package activity is the append-only audit trail. Recording is best-effort:
// callers invoke it after their primary transaction commits and never fail an
// operation because the trail is unreachable.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Entry struct {
	ActorID    uuid.UUID
	Action     string // e.g. booking.confirmed, task.created
	EntityType string // booking, slot, sale, purchase, quotation, ledger_entry, task
	EntityID   string
	Message    string
	Metadata   map[string]any
}

type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

type PgRecorder struct {
	pool *pgxpool.Pool
}

func NewPgRecorder(pool *pgxpool.Pool) *PgRecorder {
	return &PgRecorder{pool: pool}
}

func (r *PgRecorder) Record(ctx context.Context, e Entry) error {
	var meta []byte
	if e.Metadata != nil {
		data, err := json.Marshal(e.Metadata)
		if err != nil {
			log.Printf("activity: marshal metadata for %s: %v", e.Action, err)
		} else {
			meta = data
		}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO activity_log (actor_id, action, entity_type, entity_id, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, e.ActorID, e.Action, e.EntityType, e.EntityID, e.Message, meta)
	if err != nil {
		return fmt.Errorf("insert activity entry: %w", err)
	}
	return nil
}

// NopRecorder drops every entry. Used in tests and when the trail is
// disabled.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Entry) error { return nil }
