package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, practitionerID, id uuid.UUID) (*Task, error)
	ListTasks(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]Task, error)
	// ListTasksOn returns every task of the practitioner on the calendar
	// day, regardless of status; the conflict detector filters.
	ListTasksOn(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]Task, error)
	UpdateTask(ctx context.Context, t *Task) error
	DeleteTask(ctx context.Context, practitionerID, id uuid.UUID) error
}

// BookingSource is the read-only port to the booking data used for the
// non-blocking Task-Booking awareness check. Failures degrade to a logged
// skip, never to a failed task write.
type BookingSource interface {
	BusyWindows(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]BusyWindow, error)
}

// BusyWindow is a slot window holding at least one active booking.
type BusyWindow struct {
	SlotID         uuid.UUID
	StartAt        time.Time
	EndAt          time.Time
	ActiveBookings int
}
