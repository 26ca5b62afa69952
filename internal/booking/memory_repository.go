package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests and local
// development. One mutex stands in for the transaction boundary: every
// compound operation holds it end to end.
type MemoryRepository struct {
	mu       sync.Mutex
	slots    map[uuid.UUID]*AppointmentSlot
	bookings map[uuid.UUID]*Booking
	byCode   map[string]uuid.UUID
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		slots:    make(map[uuid.UUID]*AppointmentSlot),
		bookings: make(map[uuid.UUID]*Booking),
		byCode:   make(map[string]uuid.UUID),
		now:      time.Now,
	}
}

func (m *MemoryRepository) CreateSlots(_ context.Context, slots []*AppointmentSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, s := range slots {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		s.Status = SlotAvailable
		s.CurrentBookings = 0
		s.CreatedAt = now
		s.UpdatedAt = now
		cp := *s
		m.slots[s.ID] = &cp
	}
	return nil
}

func (m *MemoryRepository) GetSlot(_ context.Context, practitionerID, id uuid.UUID) (*AppointmentSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slotLocked(practitionerID, id)
}

func (m *MemoryRepository) slotLocked(practitionerID, id uuid.UUID) (*AppointmentSlot, error) {
	s, ok := m.slots[id]
	if !ok || s.PractitionerID != practitionerID {
		return nil, ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryRepository) ListSlots(_ context.Context, practitionerID uuid.UUID, from, to time.Time) ([]AppointmentSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []AppointmentSlot
	for _, s := range m.slots {
		if s.PractitionerID != practitionerID {
			continue
		}
		if s.StartAt.Before(from) || !s.StartAt.Before(to) {
			continue
		}
		result = append(result, *s)
	}
	sortSlots(result)
	return result, nil
}

func (m *MemoryRepository) SetSlotBlocked(_ context.Context, practitionerID, id uuid.UUID, blocked bool) (*AppointmentSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok || s.PractitionerID != practitionerID {
		return nil, ErrSlotNotFound
	}

	switch {
	case blocked:
		s.Status = SlotBlocked
	case s.CurrentBookings >= s.MaxBookings:
		s.Status = SlotBooked
	default:
		s.Status = SlotAvailable
	}
	s.UpdatedAt = m.now()
	cp := *s
	return &cp, nil
}

func (m *MemoryRepository) CreateBookingReservingCapacity(_ context.Context, b *Booking) (*Booking, *AppointmentSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[b.SlotID]
	if !ok || s.PractitionerID != b.PractitionerID {
		return nil, nil, ErrSlotNotFound
	}
	if s.Status == SlotBlocked {
		return nil, nil, ErrSlotBlocked
	}
	if s.CurrentBookings >= s.MaxBookings {
		return nil, nil, ErrCapacityExceeded
	}
	if _, exists := m.byCode[b.ConfirmationCode]; exists {
		return nil, nil, ErrCodeConflict
	}

	s.CurrentBookings++
	s.Status = SlotAvailable
	if s.CurrentBookings >= s.MaxBookings {
		s.Status = SlotBooked
	}
	s.UpdatedAt = m.now()

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.FinalPrice = s.Price
	b.Status = StatusPending
	b.CreatedAt = m.now()
	b.UpdatedAt = b.CreatedAt

	cp := *b
	m.bookings[b.ID] = &cp
	m.byCode[b.ConfirmationCode] = b.ID

	slotCp := *s
	return b, &slotCp, nil
}

func (m *MemoryRepository) ListActiveSlotWindows(_ context.Context, practitionerID uuid.UUID, from, to time.Time) ([]ActiveWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := make(map[uuid.UUID]int)
	for _, b := range m.bookings {
		if b.Status == StatusPending || b.Status == StatusConfirmed {
			active[b.SlotID]++
		}
	}

	var result []ActiveWindow
	for id, s := range m.slots {
		n := active[id]
		if n == 0 || s.PractitionerID != practitionerID {
			continue
		}
		if !s.StartAt.Before(to) || !from.Before(s.EndAt) {
			continue
		}
		result = append(result, ActiveWindow{SlotID: id, StartAt: s.StartAt, EndAt: s.EndAt, ActiveBookings: n})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartAt.Before(result[j].StartAt)
	})
	return result, nil
}

func (m *MemoryRepository) GetBookingByID(_ context.Context, practitionerID, id uuid.UUID) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok || b.PractitionerID != practitionerID {
		return nil, ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *MemoryRepository) GetBookingByCode(_ context.Context, code string) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byCode[code]
	if !ok {
		return nil, ErrBookingNotFound
	}
	cp := *m.bookings[id]
	return &cp, nil
}

func (m *MemoryRepository) ListBookingsBySlot(_ context.Context, practitionerID, slotID uuid.UUID) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Booking
	for _, b := range m.bookings {
		if b.PractitionerID == practitionerID && b.SlotID == slotID {
			result = append(result, *b)
		}
	}
	sortBookings(result)
	return result, nil
}

func (m *MemoryRepository) ListBookings(_ context.Context, practitionerID uuid.UUID, from, to time.Time) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Booking
	for _, b := range m.bookings {
		if b.PractitionerID != practitionerID {
			continue
		}
		if b.CreatedAt.Before(from) || !b.CreatedAt.Before(to) {
			continue
		}
		result = append(result, *b)
	}
	sortBookings(result)
	return result, nil
}

func (m *MemoryRepository) TransitionBooking(_ context.Context, practitionerID, id uuid.UUID, from, to BookingStatus, at time.Time, releaseCapacity bool) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok || b.PractitionerID != practitionerID {
		return nil, ErrBookingNotFound
	}
	if b.Status != from {
		return nil, &InvalidTransitionError{From: b.Status, To: to}
	}

	b.Status = to
	b.UpdatedAt = m.now()
	stamp := at
	switch to {
	case StatusConfirmed:
		b.ConfirmedAt = &stamp
	case StatusCancelled:
		b.CancelledAt = &stamp
	case StatusCompleted, StatusNoShow:
		b.CompletedAt = &stamp
	}

	if releaseCapacity {
		if s, ok := m.slots[b.SlotID]; ok {
			if s.CurrentBookings > 0 {
				s.CurrentBookings--
			}
			if s.Status != SlotBlocked {
				if s.CurrentBookings >= s.MaxBookings {
					s.Status = SlotBooked
				} else {
					s.Status = SlotAvailable
				}
			}
			s.UpdatedAt = m.now()
		}
	}

	cp := *b
	return &cp, nil
}

func sortSlots(slots []AppointmentSlot) {
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartAt.Before(slots[j].StartAt)
	})
}

func sortBookings(bookings []Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
	})
}
