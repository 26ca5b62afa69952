package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "PENDING"
	StatusConfirmed BookingStatus = "CONFIRMED"
	StatusCancelled BookingStatus = "CANCELLED"
	StatusCompleted BookingStatus = "COMPLETED"
	StatusNoShow    BookingStatus = "NO_SHOW"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "AVAILABLE"
	SlotBooked    SlotStatus = "BOOKED"
	SlotBlocked   SlotStatus = "BLOCKED"
)

// AppointmentSlot is a bookable time window owned by one practitioner.
// CurrentBookings counts non-cancelled bookings and never exceeds MaxBookings;
// the slot is BOOKED exactly when it is full. BLOCKED slots never accept
// bookings regardless of remaining capacity.
type AppointmentSlot struct {
	ID              uuid.UUID
	PractitionerID  uuid.UUID
	StartAt         time.Time
	EndAt           time.Time
	DurationMinutes int
	Price           decimal.Decimal
	MaxBookings     int
	CurrentBookings int
	Status          SlotStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Remaining reports how much capacity the slot still has.
func (s *AppointmentSlot) Remaining() int {
	return s.MaxBookings - s.CurrentBookings
}

// ActiveWindow is a slot window that currently holds at least one active
// (pending or confirmed) booking. Consumed read-only by the schedule
// conflict detector.
type ActiveWindow struct {
	SlotID         uuid.UUID
	StartAt        time.Time
	EndAt          time.Time
	ActiveBookings int
}

type PatientInfo struct {
	Name  string
	Phone string
	Email string
}

// Booking is one patient's reservation of a slot. FinalPrice is copied from
// the slot at creation so later slot price edits never change an existing
// booking's charge. ConfirmationCode is assigned once and is the
// patient-facing handle for the booking.
type Booking struct {
	ID               uuid.UUID
	SlotID           uuid.UUID
	PractitionerID   uuid.UUID
	Patient          PatientInfo
	Notes            string
	FinalPrice       decimal.Decimal
	ConfirmationCode string
	Status           BookingStatus
	ConfirmedAt      *time.Time
	CancelledAt      *time.Time
	CompletedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
