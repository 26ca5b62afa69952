package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/practice-backend/internal/activity"
	"github.com/clinicore/practice-backend/internal/hooks"
)

type bookingSourceStub struct {
	windows []BusyWindow
	err     error
	calls   int
}

func (s *bookingSourceStub) BusyWindows(context.Context, uuid.UUID, time.Time, time.Time) ([]BusyWindow, error) {
	s.calls++
	return s.windows, s.err
}

func newTestService(source BookingSource) *Service {
	svc := NewService(NewMemoryRepository(), source, activity.NopRecorder{})
	svc.runHooks = func(ctx context.Context, hs ...hooks.Hook) {
		for _, h := range hs {
			_ = h.Fn(ctx)
		}
	}
	return svc
}

var day = time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

func timedInput(title string, startHour, endHour int) TaskInput {
	start := day.Add(time.Duration(startHour) * time.Hour)
	end := day.Add(time.Duration(endHour) * time.Hour)
	return TaskInput{Title: title, Date: day, StartAt: &start, EndAt: &end}
}

func TestCreateTaskDefaults(t *testing.T) {
	svc := newTestService(nil)
	practitionerID := uuid.New()

	created, warnings, err := svc.CreateTask(context.Background(), practitionerID, TaskInput{
		Title: "  Order supplies  ",
		Date:  time.Date(2026, 9, 10, 14, 45, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "Order supplies", created.Title)
	assert.Equal(t, day, created.Date, "date is normalized to midnight UTC")
	assert.Equal(t, StatusPending, created.Status)
	assert.Equal(t, PriorityNormal, created.Priority)
	assert.False(t, created.Timed())
}

func TestCreateTaskValidation(t *testing.T) {
	svc := newTestService(nil)
	practitionerID := uuid.New()
	start := day.Add(9 * time.Hour)
	badStatus := TaskStatus("SNOOZED")

	cases := []struct {
		name  string
		in    TaskInput
		field string
	}{
		{"missing title", TaskInput{Date: day}, "title"},
		{"missing date", TaskInput{Title: "x"}, "date"},
		{"start without end", TaskInput{Title: "x", Date: day, StartAt: &start}, "start_at"},
		{"end before start", timedInputReversed(), "end_at"},
		{"unknown status", TaskInput{Title: "x", Date: day, Status: &badStatus}, "status"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.CreateTask(context.Background(), practitionerID, tc.in)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func timedInputReversed() TaskInput {
	start := day.Add(10 * time.Hour)
	end := day.Add(9 * time.Hour)
	return TaskInput{Title: "x", Date: day, StartAt: &start, EndAt: &end}
}

func TestCreateTaskRejectsOverlap(t *testing.T) {
	svc := newTestService(nil)
	practitionerID := uuid.New()

	existing, _, err := svc.CreateTask(context.Background(), practitionerID, timedInput("Morning rounds", 9, 11))
	require.NoError(t, err)

	_, _, err = svc.CreateTask(context.Background(), practitionerID, timedInput("Team meeting", 10, 12))
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Len(t, conflict.Conflicts, 1)
	assert.Equal(t, existing.ID, conflict.Conflicts[0].ID)

	// A back-to-back task is fine: boundaries are half open.
	_, _, err = svc.CreateTask(context.Background(), practitionerID, timedInput("Paperwork", 11, 12))
	assert.NoError(t, err)

	// Untimed tasks never conflict.
	_, _, err = svc.CreateTask(context.Background(), practitionerID, TaskInput{Title: "Follow up calls", Date: day})
	assert.NoError(t, err)

	// Other practitioners are unaffected.
	_, _, err = svc.CreateTask(context.Background(), uuid.New(), timedInput("Team meeting", 10, 12))
	assert.NoError(t, err)
}

func TestInactiveTasksDoNotConflict(t *testing.T) {
	svc := newTestService(nil)
	practitionerID := uuid.New()

	done := StatusDone
	_, _, err := svc.CreateTask(context.Background(), practitionerID, TaskInput{
		Title:   "Archived errand",
		Date:    day,
		StartAt: timedInput("", 9, 11).StartAt,
		EndAt:   timedInput("", 9, 11).EndAt,
		Status:  &done,
	})
	require.NoError(t, err)

	_, _, err = svc.CreateTask(context.Background(), practitionerID, timedInput("New work", 9, 11))
	assert.NoError(t, err)
}

func TestUpdateTaskExcludesItself(t *testing.T) {
	svc := newTestService(nil)
	practitionerID := uuid.New()

	created, _, err := svc.CreateTask(context.Background(), practitionerID, timedInput("Morning rounds", 9, 11))
	require.NoError(t, err)

	// Shifting a task within its own range must not conflict with itself.
	updated, _, err := svc.UpdateTask(context.Background(), practitionerID, created.ID, timedInput("Morning rounds", 9, 10))
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	// But it still conflicts with others.
	_, _, err = svc.CreateTask(context.Background(), practitionerID, timedInput("Afternoon block", 14, 16))
	require.NoError(t, err)
	_, _, err = svc.UpdateTask(context.Background(), practitionerID, created.ID, timedInput("Morning rounds", 15, 17))
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestBookingOverlapWarnsWithoutBlocking(t *testing.T) {
	slotID := uuid.New()
	source := &bookingSourceStub{windows: []BusyWindow{{
		SlotID:         slotID,
		StartAt:        day.Add(9 * time.Hour),
		EndAt:          day.Add(10 * time.Hour),
		ActiveBookings: 2,
	}}}
	svc := newTestService(source)
	practitionerID := uuid.New()

	created, warnings, err := svc.CreateTask(context.Background(), practitionerID, timedInput("Admin block", 9, 12))
	require.NoError(t, err, "booking overlap is advisory, the write goes through")
	require.NotNil(t, created)
	require.Len(t, warnings, 1)
	assert.Equal(t, "booking_overlap", warnings[0].Code)
	assert.Equal(t, slotID, warnings[0].SlotID)
	assert.Equal(t, 2, warnings[0].ActiveBookings)

	// A non-overlapping range warns about nothing.
	_, warnings, err = svc.CreateTask(context.Background(), practitionerID, timedInput("Late block", 14, 15))
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestBookingWarningsUseCachedWindows(t *testing.T) {
	source := &bookingSourceStub{}
	svc := newTestService(source)
	practitionerID := uuid.New()

	_, _, err := svc.CreateTask(context.Background(), practitionerID, timedInput("One", 9, 10))
	require.NoError(t, err)
	_, _, err = svc.CreateTask(context.Background(), practitionerID, timedInput("Two", 10, 11))
	require.NoError(t, err)

	assert.Equal(t, 1, source.calls, "second lookup on the same day is served from cache")
}

func TestBookingLookupFailureDegrades(t *testing.T) {
	source := &bookingSourceStub{err: errors.New("connection refused")}
	svc := newTestService(source)
	practitionerID := uuid.New()

	created, warnings, err := svc.CreateTask(context.Background(), practitionerID, timedInput("Admin block", 9, 10))
	require.NoError(t, err)
	assert.NotNil(t, created)
	assert.Empty(t, warnings, "an unreachable booking source only suppresses warnings")
}

func TestListTasksRangeValidation(t *testing.T) {
	svc := newTestService(nil)
	_, err := svc.ListTasks(context.Background(), uuid.New(), day, day)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestTasksAreTenantScoped(t *testing.T) {
	svc := newTestService(nil)
	owner, stranger := uuid.New(), uuid.New()

	created, _, err := svc.CreateTask(context.Background(), owner, timedInput("Private", 9, 10))
	require.NoError(t, err)

	_, err = svc.GetTask(context.Background(), stranger, created.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	err = svc.DeleteTask(context.Background(), stranger, created.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}
