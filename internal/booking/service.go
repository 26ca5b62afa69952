package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clinicore/practice-backend/internal/activity"
	"github.com/clinicore/practice-backend/internal/hooks"
	"github.com/clinicore/practice-backend/internal/notify"
	redisclient "github.com/clinicore/practice-backend/internal/redis"
)

// codeAttempts bounds confirmation-code regeneration on a uniqueness
// conflict. With a 36^8 space one retry is already unlikely.
const codeAttempts = 5

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	notifier notify.Notifier
	recorder activity.Recorder
	runHooks func(ctx context.Context, hs ...hooks.Hook)
}

func NewService(repo Repository, locker redisclient.Locker, notifier notify.Notifier, recorder activity.Recorder) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		recorder: recorder,
		runHooks: hooks.Run,
	}
}

type SlotInput struct {
	StartAt     time.Time
	EndAt       time.Time
	Price       decimal.Decimal
	MaxBookings int
}

func (in SlotInput) validate() error {
	if in.StartAt.IsZero() || in.EndAt.IsZero() {
		return &ValidationError{Field: "start_at", Message: "start and end are required"}
	}
	if !in.StartAt.Before(in.EndAt) {
		return &ValidationError{Field: "end_at", Message: "must be after start_at"}
	}
	if in.MaxBookings < 1 {
		return &ValidationError{Field: "max_bookings", Message: "must be at least 1"}
	}
	if in.Price.IsNegative() {
		return &ValidationError{Field: "price", Message: "must not be negative"}
	}
	return nil
}

func (s *Service) CreateSlot(ctx context.Context, practitionerID uuid.UUID, in SlotInput) (*AppointmentSlot, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	slot := &AppointmentSlot{
		PractitionerID:  practitionerID,
		StartAt:         in.StartAt,
		EndAt:           in.EndAt,
		DurationMinutes: int(in.EndAt.Sub(in.StartAt) / time.Minute),
		Price:           in.Price,
		MaxBookings:     in.MaxBookings,
	}
	if err := s.repo.CreateSlots(ctx, []*AppointmentSlot{slot}); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}
	return slot, nil
}

type GenerateSlotsInput struct {
	DayStart        time.Time
	DayEnd          time.Time
	DurationMinutes int
	Price           decimal.Decimal
	MaxBookings     int
}

// GenerateSlots slices [DayStart, DayEnd) into consecutive windows of
// DurationMinutes. A trailing remainder shorter than the duration is not
// emitted.
func (s *Service) GenerateSlots(ctx context.Context, practitionerID uuid.UUID, in GenerateSlotsInput) ([]AppointmentSlot, error) {
	if in.DurationMinutes < 5 {
		return nil, &ValidationError{Field: "duration_minutes", Message: "must be at least 5"}
	}
	base := SlotInput{StartAt: in.DayStart, EndAt: in.DayEnd, Price: in.Price, MaxBookings: in.MaxBookings}
	if err := base.validate(); err != nil {
		return nil, err
	}

	step := time.Duration(in.DurationMinutes) * time.Minute
	var slots []*AppointmentSlot
	for start := in.DayStart; !start.Add(step).After(in.DayEnd); start = start.Add(step) {
		slots = append(slots, &AppointmentSlot{
			PractitionerID:  practitionerID,
			StartAt:         start,
			EndAt:           start.Add(step),
			DurationMinutes: in.DurationMinutes,
			Price:           in.Price,
			MaxBookings:     in.MaxBookings,
		})
	}
	if len(slots) == 0 {
		return nil, &ValidationError{Field: "day_end", Message: "window shorter than one slot"}
	}

	if err := s.repo.CreateSlots(ctx, slots); err != nil {
		return nil, fmt.Errorf("generate slots: %w", err)
	}

	s.runHooks(ctx, hooks.Hook{Name: "activity.slots_generated", Fn: func(ctx context.Context) error {
		return s.recorder.Record(ctx, activity.Entry{
			ActorID:    practitionerID,
			Action:     "slots.generated",
			EntityType: "slot",
			EntityID:   in.DayStart.Format("2006-01-02"),
			Message:    fmt.Sprintf("generated %d slots of %d min from %s to %s", len(slots), in.DurationMinutes, in.DayStart.Format("15:04"), in.DayEnd.Format("15:04")),
			Metadata:   map[string]any{"count": len(slots)},
		})
	}})

	result := make([]AppointmentSlot, len(slots))
	for i, sl := range slots {
		result[i] = *sl
	}
	return result, nil
}

func (s *Service) GetSlot(ctx context.Context, practitionerID, id uuid.UUID) (*AppointmentSlot, error) {
	return s.repo.GetSlot(ctx, practitionerID, id)
}

func (s *Service) ListSlots(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]AppointmentSlot, error) {
	if !from.Before(to) {
		return nil, &ValidationError{Field: "to", Message: "must be after from"}
	}
	return s.repo.ListSlots(ctx, practitionerID, from, to)
}

// BlockSlot marks the slot BLOCKED. Existing bookings stay untouched; the
// slot just stops accepting new ones.
func (s *Service) BlockSlot(ctx context.Context, practitionerID, id uuid.UUID) (*AppointmentSlot, error) {
	return s.setBlocked(ctx, practitionerID, id, true)
}

func (s *Service) OpenSlot(ctx context.Context, practitionerID, id uuid.UUID) (*AppointmentSlot, error) {
	return s.setBlocked(ctx, practitionerID, id, false)
}

func (s *Service) setBlocked(ctx context.Context, practitionerID, id uuid.UUID, blocked bool) (*AppointmentSlot, error) {
	slot, err := s.repo.SetSlotBlocked(ctx, practitionerID, id, blocked)
	if err != nil {
		return nil, err
	}

	action := "slot.opened"
	if blocked {
		action = "slot.blocked"
	}
	s.runHooks(ctx, hooks.Hook{Name: "activity." + action, Fn: func(ctx context.Context) error {
		return s.recorder.Record(ctx, activity.Entry{
			ActorID:    practitionerID,
			Action:     action,
			EntityType: "slot",
			EntityID:   slot.ID.String(),
			Message:    fmt.Sprintf("slot %s on %s is now %s", slot.ID, slot.StartAt.Format("2006-01-02 15:04"), slot.Status),
		})
	}})

	return slot, nil
}

// CreateBooking reserves capacity on the slot and creates the booking in one
// transaction. The per-slot lock keeps concurrent writers from piling onto
// the same row; the capacity check is still re-validated inside the
// transaction.
func (s *Service) CreateBooking(ctx context.Context, practitionerID, slotID uuid.UUID, patient PatientInfo, notes string) (*Booking, *AppointmentSlot, error) {
	if strings.TrimSpace(patient.Name) == "" {
		return nil, nil, &ValidationError{Field: "patient_name", Message: "is required"}
	}
	if patient.Phone == "" && patient.Email == "" {
		return nil, nil, &ValidationError{Field: "patient_phone", Message: "phone or email is required"}
	}

	var created *Booking
	var slot *AppointmentSlot

	err := s.locker.WithSlotLock(ctx, slotID, func(lockCtx context.Context) error {
		for attempt := 0; attempt < codeAttempts; attempt++ {
			code, err := NewConfirmationCode()
			if err != nil {
				return err
			}

			b := &Booking{
				SlotID:           slotID,
				PractitionerID:   practitionerID,
				Patient:          patient,
				Notes:            notes,
				ConfirmationCode: code,
			}

			created, slot, err = s.repo.CreateBookingReservingCapacity(lockCtx, b)
			if errors.Is(err, ErrCodeConflict) {
				continue
			}
			return err
		}
		return ErrCodeConflict
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, nil, ErrSlotBeingBooked
		}
		return nil, nil, err
	}

	s.runHooks(ctx, hooks.Hook{Name: "activity.booking_created", Fn: func(ctx context.Context) error {
		return s.recorder.Record(ctx, activity.Entry{
			ActorID:    practitionerID,
			Action:     "booking.created",
			EntityType: "booking",
			EntityID:   created.ID.String(),
			Message: fmt.Sprintf("booking for %s on %s (code %s)",
				created.Patient.Name, slot.StartAt.Format("2006-01-02 15:04"), created.ConfirmationCode),
			Metadata: map[string]any{"slot_id": slotID.String()},
		})
	}})

	return created, slot, nil
}

// GetBooking resolves ref as either the booking ID or its confirmation code.
// Patient-facing callers pass the code, internal tooling the ID.
func (s *Service) GetBooking(ctx context.Context, practitionerID uuid.UUID, ref string) (*Booking, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.repo.GetBookingByID(ctx, practitionerID, id)
	}
	b, err := s.repo.GetBookingByCode(ctx, strings.ToUpper(strings.TrimSpace(ref)))
	if err != nil {
		return nil, err
	}
	if b.PractitionerID != practitionerID {
		// Uniform not-found so tenants cannot probe each other's bookings.
		return nil, ErrBookingNotFound
	}
	return b, nil
}

// GetBookingByCode is the public, patient-facing lookup. Codes are unique
// across tenants, so no practitioner scope applies.
func (s *Service) GetBookingByCode(ctx context.Context, code string) (*Booking, error) {
	return s.repo.GetBookingByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

func (s *Service) ListBookingsBySlot(ctx context.Context, practitionerID, slotID uuid.UUID) ([]Booking, error) {
	return s.repo.ListBookingsBySlot(ctx, practitionerID, slotID)
}

func (s *Service) ListBookings(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]Booking, error) {
	return s.repo.ListBookings(ctx, practitionerID, from, to)
}

// Transition moves a booking to target per the transition table. A move into
// CANCELLED releases the slot's capacity in the same transaction; COMPLETED
// and NO_SHOW never do (the time was consumed either way). CONFIRMED
// notifies the patient after commit, fire-and-forget.
func (s *Service) Transition(ctx context.Context, practitionerID uuid.UUID, ref string, target BookingStatus) (*Booking, error) {
	if !validStatus(target) {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", target)}
	}

	b, err := s.GetBooking(ctx, practitionerID, ref)
	if err != nil {
		return nil, err
	}

	if !CanTransition(b.Status, target) {
		return nil, &InvalidTransitionError{From: b.Status, To: target}
	}

	release := target == StatusCancelled
	updated, err := s.repo.TransitionBooking(ctx, practitionerID, b.ID, b.Status, target, time.Now().UTC(), release)
	if err != nil {
		return nil, err
	}

	slot, slotErr := s.repo.GetSlot(ctx, practitionerID, updated.SlotID)

	hs := []hooks.Hook{{Name: "activity.booking_transition", Fn: func(ctx context.Context) error {
		msg := fmt.Sprintf("booking for %s moved %s -> %s", updated.Patient.Name, b.Status, target)
		if slotErr == nil {
			msg = fmt.Sprintf("booking for %s on %s moved %s -> %s (code %s)",
				updated.Patient.Name, slot.StartAt.Format("2006-01-02 15:04"), b.Status, target, updated.ConfirmationCode)
		}
		return s.recorder.Record(ctx, activity.Entry{
			ActorID:    practitionerID,
			Action:     "booking." + strings.ToLower(string(target)),
			EntityType: "booking",
			EntityID:   updated.ID.String(),
			Message:    msg,
			Metadata:   map[string]any{"from": string(b.Status), "to": string(target)},
		})
	}}}

	if target == StatusConfirmed {
		startAt := updated.CreatedAt
		if slotErr == nil {
			startAt = slot.StartAt
		}
		hs = append(hs, hooks.Hook{Name: "notify.booking_confirmed", Fn: func(ctx context.Context) error {
			return s.notifier.BookingStatusChanged(ctx, notify.BookingEvent{
				BookingID:        updated.ID,
				ConfirmationCode: updated.ConfirmationCode,
				PatientName:      updated.Patient.Name,
				PatientPhone:     updated.Patient.Phone,
				Status:           string(target),
				SlotStartAt:      startAt,
				OccurredAt:       time.Now().UTC(),
			})
		}})
	}

	s.runHooks(ctx, hs...)

	return updated, nil
}
