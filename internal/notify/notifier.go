// Package notify delivers booking status notifications to the messaging
// collaborator. Delivery is fire-and-forget; the booking transition has
// already committed by the time a notifier runs.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type BookingEvent struct {
	BookingID        uuid.UUID `json:"booking_id"`
	ConfirmationCode string    `json:"confirmation_code"`
	PatientName      string    `json:"patient_name"`
	PatientPhone     string    `json:"patient_phone,omitempty"`
	Status           string    `json:"status"`
	SlotStartAt      time.Time `json:"slot_start_at"`
	OccurredAt       time.Time `json:"occurred_at"`
}

type Notifier interface {
	BookingStatusChanged(ctx context.Context, ev BookingEvent) error
}

// NopNotifier is used when no broker is configured.
type NopNotifier struct{}

func (NopNotifier) BookingStatusChanged(context.Context, BookingEvent) error { return nil }
