package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the service. Multi-row
// invariants (reserve-and-create, transition-and-release) are single methods
// so implementations can run them in one transaction.
type Repository interface {
	CreateSlots(ctx context.Context, slots []*AppointmentSlot) error
	GetSlot(ctx context.Context, practitionerID, id uuid.UUID) (*AppointmentSlot, error)
	ListSlots(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]AppointmentSlot, error)
	SetSlotBlocked(ctx context.Context, practitionerID, id uuid.UUID, blocked bool) (*AppointmentSlot, error)

	// CreateBookingReservingCapacity atomically re-checks the slot's status
	// and capacity, increments current_bookings, recomputes slot status and
	// inserts the booking with the slot's price copied into FinalPrice.
	// Fails with ErrSlotBlocked, ErrCapacityExceeded or ErrCodeConflict.
	// Returns the created booking and the slot as updated.
	CreateBookingReservingCapacity(ctx context.Context, b *Booking) (*Booking, *AppointmentSlot, error)

	// ListActiveSlotWindows returns slot windows overlapping [from, to) that
	// hold at least one pending or confirmed booking.
	ListActiveSlotWindows(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]ActiveWindow, error)

	GetBookingByID(ctx context.Context, practitionerID, id uuid.UUID) (*Booking, error)
	GetBookingByCode(ctx context.Context, code string) (*Booking, error)
	ListBookingsBySlot(ctx context.Context, practitionerID, slotID uuid.UUID) ([]Booking, error)
	ListBookings(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]Booking, error)

	// TransitionBooking compare-and-swaps the booking's status from -> to,
	// stamps the matching timestamp and, when releaseCapacity is set,
	// decrements the slot's occupancy in the same transaction. A lost race
	// (status no longer `from`) comes back as *InvalidTransitionError.
	TransitionBooking(ctx context.Context, practitionerID, id uuid.UUID, from, to BookingStatus, at time.Time, releaseCapacity bool) (*Booking, error)
}
