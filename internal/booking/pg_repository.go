package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const slotColumns = `id, practitioner_id, start_at, end_at, duration_minutes, price,
	max_bookings, current_bookings, status, created_at, updated_at`

const bookingColumns = `id, slot_id, practitioner_id, patient_name, patient_phone,
	patient_email, notes, final_price, confirmation_code, status,
	confirmed_at, cancelled_at, completed_at, created_at, updated_at`

// Helpers

func scanSlot(row pgx.Row) (*AppointmentSlot, error) {
	var s AppointmentSlot

	err := row.Scan(
		&s.ID,
		&s.PractitionerID,
		&s.StartAt,
		&s.EndAt,
		&s.DurationMinutes,
		&s.Price,
		&s.MaxBookings,
		&s.CurrentBookings,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var phone, email, notes *string

	err := row.Scan(
		&b.ID,
		&b.SlotID,
		&b.PractitionerID,
		&b.Patient.Name,
		&phone,
		&email,
		&notes,
		&b.FinalPrice,
		&b.ConfirmationCode,
		&b.Status,
		&b.ConfirmedAt,
		&b.CancelledAt,
		&b.CompletedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	if phone != nil {
		b.Patient.Phone = *phone
	}
	if email != nil {
		b.Patient.Email = *email
	}
	if notes != nil {
		b.Notes = *notes
	}
	return &b, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Interface methods

func (r *PgRepository) CreateSlots(ctx context.Context, slots []*AppointmentSlot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, s := range slots {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		row := tx.QueryRow(ctx, `
			INSERT INTO appointment_slots
				(id, practitioner_id, start_at, end_at, duration_minutes, price,
				 max_bookings, current_bookings, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, now(), now())
			RETURNING created_at, updated_at
		`, s.ID, s.PractitionerID, s.StartAt, s.EndAt, s.DurationMinutes,
			s.Price, s.MaxBookings, SlotAvailable)
		if err := row.Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
			return fmt.Errorf("insert slot: %w", err)
		}
		s.Status = SlotAvailable
		s.CurrentBookings = 0
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) GetSlot(ctx context.Context, practitionerID, id uuid.UUID) (*AppointmentSlot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM appointment_slots
		WHERE id = $1 AND practitioner_id = $2
	`, id, practitionerID)
	return scanSlot(row)
}

func (r *PgRepository) ListSlots(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]AppointmentSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM appointment_slots
		WHERE practitioner_id = $1 AND start_at >= $2 AND start_at < $3
		ORDER BY start_at
	`, practitionerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (r *PgRepository) SetSlotBlocked(ctx context.Context, practitionerID, id uuid.UUID, blocked bool) (*AppointmentSlot, error) {
	// Reopening a full slot lands on BOOKED, not AVAILABLE.
	status := `CASE WHEN current_bookings >= max_bookings THEN 'BOOKED' ELSE 'AVAILABLE' END`
	if blocked {
		status = `'BLOCKED'`
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE appointment_slots
		SET status = `+status+`,
		    updated_at = now()
		WHERE id = $1 AND practitioner_id = $2
		RETURNING `+slotColumns+`
	`, id, practitionerID)
	return scanSlot(row)
}

func (r *PgRepository) CreateBookingReservingCapacity(ctx context.Context, b *Booking) (*Booking, *AppointmentSlot, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	// Re-check status and capacity under the row lock; the Redis slot lock
	// only reduces contention, it is not the correctness boundary.
	slot, err := scanSlot(tx.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM appointment_slots
		WHERE id = $1 AND practitioner_id = $2
		FOR UPDATE
	`, b.SlotID, b.PractitionerID))
	if err != nil {
		return nil, nil, err
	}

	if slot.Status == SlotBlocked {
		return nil, nil, ErrSlotBlocked
	}
	if slot.CurrentBookings >= slot.MaxBookings {
		return nil, nil, ErrCapacityExceeded
	}

	slot.CurrentBookings++
	slot.Status = SlotAvailable
	if slot.CurrentBookings >= slot.MaxBookings {
		slot.Status = SlotBooked
	}

	if _, err := tx.Exec(ctx, `
		UPDATE appointment_slots
		SET current_bookings = $2, status = $3, updated_at = now()
		WHERE id = $1
	`, slot.ID, slot.CurrentBookings, slot.Status); err != nil {
		return nil, nil, fmt.Errorf("reserve slot capacity: %w", err)
	}

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.FinalPrice = slot.Price
	b.Status = StatusPending

	row := tx.QueryRow(ctx, `
		INSERT INTO bookings
			(id, slot_id, practitioner_id, patient_name, patient_phone,
			 patient_email, notes, final_price, confirmation_code, status,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING created_at, updated_at
	`, b.ID, b.SlotID, b.PractitionerID, b.Patient.Name,
		nullable(b.Patient.Phone), nullable(b.Patient.Email), nullable(b.Notes),
		b.FinalPrice, b.ConfirmationCode, b.Status)
	if err := row.Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, nil, ErrCodeConflict
		}
		return nil, nil, fmt.Errorf("insert booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	return b, slot, nil
}

func (r *PgRepository) ListActiveSlotWindows(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]ActiveWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.start_at, s.end_at, count(b.id)
		FROM appointment_slots s
		JOIN bookings b ON b.slot_id = s.id
		WHERE s.practitioner_id = $1
		  AND s.start_at < $3 AND s.end_at > $2
		  AND b.status IN ('PENDING', 'CONFIRMED')
		GROUP BY s.id, s.start_at, s.end_at
		ORDER BY s.start_at
	`, practitionerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ActiveWindow
	for rows.Next() {
		var w ActiveWindow
		if err := rows.Scan(&w.SlotID, &w.StartAt, &w.EndAt, &w.ActiveBookings); err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetBookingByID(ctx context.Context, practitionerID, id uuid.UUID) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1 AND practitioner_id = $2
	`, id, practitionerID)
	return scanBooking(row)
}

func (r *PgRepository) GetBookingByCode(ctx context.Context, code string) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE confirmation_code = $1
	`, code)
	return scanBooking(row)
}

func (r *PgRepository) ListBookingsBySlot(ctx context.Context, practitionerID, slotID uuid.UUID) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE slot_id = $1 AND practitioner_id = $2
		ORDER BY created_at
	`, slotID, practitionerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

func (r *PgRepository) ListBookings(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE practitioner_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at
	`, practitionerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

func collectBookings(rows pgx.Rows) ([]Booking, error) {
	var result []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	return result, rows.Err()
}

func (r *PgRepository) TransitionBooking(ctx context.Context, practitionerID, id uuid.UUID, from, to BookingStatus, at time.Time, releaseCapacity bool) (*Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	stamp := stampColumn(to)
	set := `status = $2, updated_at = now()`
	args := []any{id, to, from, practitionerID}
	if stamp != "" {
		set += `, ` + stamp + ` = $5`
		args = append(args, at)
	}

	b, err := scanBooking(tx.QueryRow(ctx, `
		UPDATE bookings
		SET `+set+`
		WHERE id = $1 AND status = $3 AND practitioner_id = $4
		RETURNING `+bookingColumns+`
	`, args...))
	if err != nil {
		if !errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		// Zero rows: either the booking is gone or another writer moved it
		// first. Distinguish so the caller sees a state conflict, not a 404.
		current, readErr := scanBooking(tx.QueryRow(ctx, `
			SELECT `+bookingColumns+`
			FROM bookings
			WHERE id = $1 AND practitioner_id = $2
		`, id, practitionerID))
		if readErr != nil {
			return nil, readErr
		}
		return nil, &InvalidTransitionError{From: current.Status, To: to}
	}

	if releaseCapacity {
		if _, err := tx.Exec(ctx, `
			UPDATE appointment_slots
			SET current_bookings = GREATEST(current_bookings - 1, 0),
			    status = CASE
			        WHEN status = 'BLOCKED' THEN 'BLOCKED'
			        WHEN GREATEST(current_bookings - 1, 0) >= max_bookings THEN 'BOOKED'
			        ELSE 'AVAILABLE'
			    END,
			    updated_at = now()
			WHERE id = $1
		`, b.SlotID); err != nil {
			return nil, fmt.Errorf("release slot capacity: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func stampColumn(to BookingStatus) string {
	switch to {
	case StatusConfirmed:
		return "confirmed_at"
	case StatusCancelled:
		return "cancelled_at"
	case StatusCompleted, StatusNoShow:
		return "completed_at"
	}
	return ""
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
