package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/practice-backend/internal/activity"
	"github.com/clinicore/practice-backend/internal/hooks"
	"github.com/clinicore/practice-backend/internal/notify"
	redisclient "github.com/clinicore/practice-backend/internal/redis"
)

type recorderStub struct {
	mu      sync.Mutex
	entries []activity.Entry
}

func (r *recorderStub) Record(_ context.Context, e activity.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *recorderStub) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type notifierStub struct {
	mu     sync.Mutex
	events []notify.BookingEvent
}

func (n *notifierStub) BookingStatusChanged(_ context.Context, ev notify.BookingEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func newTestService(t *testing.T) (*Service, *recorderStub, *notifierStub) {
	t.Helper()
	recorder := &recorderStub{}
	notifier := &notifierStub{}
	svc := NewService(NewMemoryRepository(), redisclient.NewLocalLocker(), notifier, recorder)
	// Run side effects inline so assertions see them.
	svc.runHooks = func(ctx context.Context, hs ...hooks.Hook) {
		for _, h := range hs {
			_ = h.Fn(ctx)
		}
	}
	return svc, recorder, notifier
}

func mustCreateSlot(t *testing.T, svc *Service, practitionerID uuid.UUID, maxBookings int) *AppointmentSlot {
	t.Helper()
	start := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	slot, err := svc.CreateSlot(context.Background(), practitionerID, SlotInput{
		StartAt:     start,
		EndAt:       start.Add(30 * time.Minute),
		Price:       decimal.NewFromInt(500),
		MaxBookings: maxBookings,
	})
	require.NoError(t, err)
	return slot
}

func patient(name string) PatientInfo {
	return PatientInfo{Name: name, Phone: "+5215512345678"}
}

func TestCreateSlotValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	practitionerID := uuid.New()
	start := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		in    SlotInput
		field string
	}{
		{"missing times", SlotInput{MaxBookings: 1}, "start_at"},
		{"end before start", SlotInput{StartAt: start, EndAt: start.Add(-time.Hour), MaxBookings: 1}, "end_at"},
		{"zero capacity", SlotInput{StartAt: start, EndAt: start.Add(time.Hour)}, "max_bookings"},
		{"negative price", SlotInput{StartAt: start, EndAt: start.Add(time.Hour), MaxBookings: 1, Price: decimal.NewFromInt(-1)}, "price"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateSlot(context.Background(), practitionerID, tc.in)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestGenerateSlots(t *testing.T) {
	svc, _, _ := newTestService(t)
	practitionerID := uuid.New()

	dayStart := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	slots, err := svc.GenerateSlots(context.Background(), practitionerID, GenerateSlotsInput{
		DayStart:        dayStart,
		DayEnd:          dayStart.Add(2*time.Hour + 15*time.Minute),
		DurationMinutes: 30,
		Price:           decimal.NewFromInt(400),
		MaxBookings:     2,
	})
	require.NoError(t, err)
	// 135 minutes of day yields four full 30-minute windows; the 15-minute
	// remainder is dropped.
	require.Len(t, slots, 4)
	assert.Equal(t, dayStart, slots[0].StartAt)
	assert.Equal(t, dayStart.Add(2*time.Hour), slots[3].EndAt)
	for _, s := range slots {
		assert.Equal(t, 30, s.DurationMinutes)
		assert.Equal(t, SlotAvailable, s.Status)
	}
}

func TestCreateBooking(t *testing.T) {
	svc, recorder, _ := newTestService(t)
	practitionerID := uuid.New()
	slot := mustCreateSlot(t, svc, practitionerID, 2)

	b, updated, err := svc.CreateBooking(context.Background(), practitionerID, slot.ID, patient("Ana Flores"), "first visit")
	require.NoError(t, err)

	assert.Equal(t, StatusPending, b.Status)
	assert.Len(t, b.ConfirmationCode, 8)
	assert.True(t, b.FinalPrice.Equal(slot.Price), "final price snapshots the slot price")
	assert.Equal(t, 1, updated.CurrentBookings)
	assert.Equal(t, SlotAvailable, updated.Status)
	assert.Contains(t, recorder.actions(), "booking.created")

	// Second booking fills the slot.
	_, updated, err = svc.CreateBooking(context.Background(), practitionerID, slot.ID, patient("Luis Vega"), "")
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CurrentBookings)
	assert.Equal(t, SlotBooked, updated.Status)

	// Third is rejected.
	_, _, err = svc.CreateBooking(context.Background(), practitionerID, slot.ID, patient("Marta Ríos"), "")
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestCreateBookingRequiresContact(t *testing.T) {
	svc, _, _ := newTestService(t)
	practitionerID := uuid.New()
	slot := mustCreateSlot(t, svc, practitionerID, 1)

	_, _, err := svc.CreateBooking(context.Background(), practitionerID, slot.ID, PatientInfo{Name: "Ana"}, "")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "patient_phone", vErr.Field)

	_, _, err = svc.CreateBooking(context.Background(), practitionerID, slot.ID, PatientInfo{Phone: "123"}, "")
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "patient_name", vErr.Field)
}

func TestCreateBookingBlockedSlot(t *testing.T) {
	svc, _, _ := newTestService(t)
	practitionerID := uuid.New()
	slot := mustCreateSlot(t, svc, practitionerID, 3)

	_, err := svc.BlockSlot(context.Background(), practitionerID, slot.ID)
	require.NoError(t, err)

	_, _, err = svc.CreateBooking(context.Background(), practitionerID, slot.ID, patient("Ana"), "")
	assert.ErrorIs(t, err, ErrSlotBlocked)

	// Reopening restores bookability.
	_, err = svc.OpenSlot(context.Background(), practitionerID, slot.ID)
	require.NoError(t, err)
	_, _, err = svc.CreateBooking(context.Background(), practitionerID, slot.ID, patient("Ana"), "")
	assert.NoError(t, err)
}

func TestConcurrentBookingsRespectCapacity(t *testing.T) {
	svc, _, _ := newTestService(t)
	practitionerID := uuid.New()
	const capacity = 3
	const attempts = 20
	slot := mustCreateSlot(t, svc, practitionerID, capacity)

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.CreateBooking(context.Background(), practitionerID, slot.ID, patient("Race Patient"), "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, rejected int
	for err := range results {
		switch {
		case err == nil:
			ok++
		default:
			assert.ErrorIs(t, err, ErrCapacityExceeded)
			rejected++
		}
	}
	assert.Equal(t, capacity, ok, "exactly the slot capacity succeeds")
	assert.Equal(t, attempts-capacity, rejected)

	got, err := svc.GetSlot(context.Background(), practitionerID, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, capacity, got.CurrentBookings)
	assert.Equal(t, SlotBooked, got.Status)
}

func TestTransitionLifecycle(t *testing.T) {
	svc, recorder, notifier := newTestService(t)
	practitionerID := uuid.New()
	slot := mustCreateSlot(t, svc, practitionerID, 1)

	b, _, err := svc.CreateBooking(context.Background(), practitionerID, slot.ID, patient("Ana Flores"), "")
	require.NoError(t, err)

	confirmed, err := svc.Transition(context.Background(), practitionerID, b.ID.String(), StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)

	// Confirmation is the only transition that notifies the patient.
	require.Len(t, notifier.events, 1)
	assert.Equal(t, b.ConfirmationCode, notifier.events[0].ConfirmationCode)
	assert.Equal(t, string(StatusConfirmed), notifier.events[0].Status)

	completed, err := svc.Transition(context.Background(), practitionerID, b.ID.String(), StatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, completed.CompletedAt)

	// COMPLETED never gives the capacity back.
	got, err := svc.GetSlot(context.Background(), practitionerID, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentBookings)

	assert.Contains(t, recorder.actions(), "booking.confirmed")
	assert.Contains(t, recorder.actions(), "booking.completed")
	assert.Len(t, notifier.events, 1, "completion does not notify")
}

func TestTransitionCancelReleasesCapacity(t *testing.T) {
	svc, _, _ := newTestService(t)
	practitionerID := uuid.New()
	slot := mustCreateSlot(t, svc, practitionerID, 1)

	b, full, err := svc.CreateBooking(context.Background(), practitionerID, slot.ID, patient("Ana"), "")
	require.NoError(t, err)
	require.Equal(t, SlotBooked, full.Status)

	cancelled, err := svc.Transition(context.Background(), practitionerID, b.ConfirmationCode, StatusCancelled)
	require.NoError(t, err)
	require.NotNil(t, cancelled.CancelledAt)

	got, err := svc.GetSlot(context.Background(), practitionerID, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentBookings)
	assert.Equal(t, SlotAvailable, got.Status, "cancellation reopens the slot")

	// The freed seat is bookable again.
	_, _, err = svc.CreateBooking(context.Background(), practitionerID, slot.ID, patient("Luis"), "")
	assert.NoError(t, err)
}

func TestTransitionRejectsIllegalMoves(t *testing.T) {
	svc, _, _ := newTestService(t)
	practitionerID := uuid.New()
	slot := mustCreateSlot(t, svc, practitionerID, 1)

	b, _, err := svc.CreateBooking(context.Background(), practitionerID, slot.ID, patient("Ana"), "")
	require.NoError(t, err)

	// PENDING cannot go straight to COMPLETED.
	_, err = svc.Transition(context.Background(), practitionerID, b.ID.String(), StatusCompleted)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StatusPending, invalid.From)
	assert.Equal(t, StatusCompleted, invalid.To)

	// Terminal states reject everything.
	_, err = svc.Transition(context.Background(), practitionerID, b.ID.String(), StatusCancelled)
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), practitionerID, b.ID.String(), StatusConfirmed)
	assert.ErrorAs(t, err, &invalid)

	// Unknown target is a validation error, not a transition error.
	_, err = svc.Transition(context.Background(), practitionerID, b.ID.String(), BookingStatus("ARCHIVED"))
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestGetBookingResolvesIDAndCode(t *testing.T) {
	svc, _, _ := newTestService(t)
	practitionerID := uuid.New()
	slot := mustCreateSlot(t, svc, practitionerID, 1)

	b, _, err := svc.CreateBooking(context.Background(), practitionerID, slot.ID, patient("Ana"), "")
	require.NoError(t, err)

	byID, err := svc.GetBooking(context.Background(), practitionerID, b.ID.String())
	require.NoError(t, err)
	assert.Equal(t, b.ID, byID.ID)

	byCode, err := svc.GetBooking(context.Background(), practitionerID, "  "+b.ConfirmationCode+" ")
	require.NoError(t, err)
	assert.Equal(t, b.ID, byCode.ID)

	// Another tenant gets the same not-found either way.
	stranger := uuid.New()
	_, err = svc.GetBooking(context.Background(), stranger, b.ID.String())
	assert.ErrorIs(t, err, ErrBookingNotFound)
	_, err = svc.GetBooking(context.Background(), stranger, b.ConfirmationCode)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	// The public lookup is unscoped on purpose.
	pub, err := svc.GetBookingByCode(context.Background(), b.ConfirmationCode)
	require.NoError(t, err)
	assert.Equal(t, b.ID, pub.ID)
}

func TestListActiveSlotWindows(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, redisclient.NewLocalLocker(), &notifierStub{}, &recorderStub{})
	svc.runHooks = func(ctx context.Context, hs ...hooks.Hook) {}

	practitionerID := uuid.New()
	slot := mustCreateSlot(t, svc, practitionerID, 2)
	mustCreateSlot(t, svc, practitionerID, 2) // stays empty

	b, _, err := svc.CreateBooking(context.Background(), practitionerID, slot.ID, patient("Ana"), "")
	require.NoError(t, err)

	from, to := slot.StartAt.Add(-time.Hour), slot.EndAt.Add(time.Hour)
	windows, err := repo.ListActiveSlotWindows(context.Background(), practitionerID, from, to)
	require.NoError(t, err)
	require.Len(t, windows, 1, "slots without active bookings are not windows")
	assert.Equal(t, slot.ID, windows[0].SlotID)
	assert.Equal(t, 1, windows[0].ActiveBookings)

	// Cancelling the only booking removes the window.
	_, err = svc.Transition(context.Background(), practitionerID, b.ID.String(), StatusCancelled)
	require.NoError(t, err)
	windows, err = repo.ListActiveSlotWindows(context.Background(), practitionerID, from, to)
	require.NoError(t, err)
	assert.Empty(t, windows)
}
