package booking

import (
	"errors"
	"fmt"
)

var (
	ErrSlotNotFound    = errors.New("slot not found")
	ErrBookingNotFound = errors.New("booking not found")

	// ErrSlotBlocked and ErrCapacityExceeded are the two reasons a reserve
	// can fail on a slot that exists.
	ErrSlotBlocked      = errors.New("slot is blocked")
	ErrCapacityExceeded = errors.New("slot is at capacity")

	// ErrCodeConflict is returned when a generated confirmation code already
	// exists. The service retries with a fresh code.
	ErrCodeConflict = errors.New("confirmation code already in use")

	ErrSlotBeingBooked = errors.New("slot is currently being booked, please retry")
)

// InvalidTransitionError rejects a (from, to) pair not present in the
// transition table.
type InvalidTransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid booking transition: %s -> %s", e.From, e.To)
}

// ValidationError reports malformed input with field-level detail.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
