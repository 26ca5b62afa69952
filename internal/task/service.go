package task

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/clinicore/practice-backend/internal/activity"
	"github.com/clinicore/practice-backend/internal/hooks"
)

const (
	awarenessCacheSize = 256
	awarenessCacheTTL  = 30 * time.Second
)

type Service struct {
	repo     Repository
	bookings BookingSource // nil disables the awareness check
	recorder activity.Recorder
	runHooks func(ctx context.Context, hs ...hooks.Hook)

	// awareness caches busy-window lookups per practitioner and day. The
	// data is advisory, so short staleness is acceptable.
	awareness *expirable.LRU[string, []BusyWindow]
}

func NewService(repo Repository, bookings BookingSource, recorder activity.Recorder) *Service {
	return &Service{
		repo:      repo,
		bookings:  bookings,
		recorder:  recorder,
		runHooks:  hooks.Run,
		awareness: expirable.NewLRU[string, []BusyWindow](awarenessCacheSize, nil, awarenessCacheTTL),
	}
}

type TaskInput struct {
	Title    string
	Notes    string
	Date     time.Time
	StartAt  *time.Time
	EndAt    *time.Time
	Status   *TaskStatus
	Priority *Priority
}

func (in TaskInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return &ValidationError{Field: "title", Message: "is required"}
	}
	if in.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "is required"}
	}
	if (in.StartAt == nil) != (in.EndAt == nil) {
		return &ValidationError{Field: "start_at", Message: "start and end must be set together"}
	}
	if in.StartAt != nil && !in.StartAt.Before(*in.EndAt) {
		return &ValidationError{Field: "end_at", Message: "must be after start_at"}
	}
	if in.Status != nil && !validStatus(*in.Status) {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", *in.Status)}
	}
	if in.Priority != nil {
		switch *in.Priority {
		case PriorityLow, PriorityNormal, PriorityHigh:
		default:
			return &ValidationError{Field: "priority", Message: fmt.Sprintf("unknown priority %q", *in.Priority)}
		}
	}
	return nil
}

// CreateTask admits the task unless its time range overlaps another active
// task of the same practitioner; an overlap with patient bookings only
// produces warnings, never a rejection.
func (s *Service) CreateTask(ctx context.Context, practitionerID uuid.UUID, in TaskInput) (*Task, []Warning, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}

	t := &Task{
		PractitionerID: practitionerID,
		Title:          strings.TrimSpace(in.Title),
		Notes:          in.Notes,
		Date:           DateOf(in.Date),
		StartAt:        in.StartAt,
		EndAt:          in.EndAt,
		Status:         StatusPending,
		Priority:       PriorityNormal,
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}

	if err := s.checkConflicts(ctx, t, uuid.Nil); err != nil {
		return nil, nil, err
	}

	if err := s.repo.CreateTask(ctx, t); err != nil {
		return nil, nil, fmt.Errorf("create task: %w", err)
	}

	s.recordTask(ctx, t, "created", nil)
	return t, s.bookingWarnings(ctx, t), nil
}

// UpdateTask replaces the task's content, re-running conflict detection
// against everything except the task itself.
func (s *Service) UpdateTask(ctx context.Context, practitionerID, id uuid.UUID, in TaskInput) (*Task, []Warning, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}

	existing, err := s.repo.GetTask(ctx, practitionerID, id)
	if err != nil {
		return nil, nil, err
	}

	t := &Task{
		ID:             existing.ID,
		PractitionerID: practitionerID,
		Title:          strings.TrimSpace(in.Title),
		Notes:          in.Notes,
		Date:           DateOf(in.Date),
		StartAt:        in.StartAt,
		EndAt:          in.EndAt,
		Status:         existing.Status,
		Priority:       existing.Priority,
		CreatedAt:      existing.CreatedAt,
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}

	if err := s.checkConflicts(ctx, t, t.ID); err != nil {
		return nil, nil, err
	}

	if err := s.repo.UpdateTask(ctx, t); err != nil {
		return nil, nil, err
	}

	changed := diffTasks(existing, t)
	s.recordTask(ctx, t, "updated", changed)
	return t, s.bookingWarnings(ctx, t), nil
}

func (s *Service) DeleteTask(ctx context.Context, practitionerID, id uuid.UUID) error {
	t, err := s.repo.GetTask(ctx, practitionerID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTask(ctx, practitionerID, id); err != nil {
		return err
	}
	s.recordTask(ctx, t, "deleted", nil)
	return nil
}

func (s *Service) GetTask(ctx context.Context, practitionerID, id uuid.UUID) (*Task, error) {
	return s.repo.GetTask(ctx, practitionerID, id)
}

func (s *Service) ListTasks(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]Task, error) {
	if !from.Before(to) {
		return nil, &ValidationError{Field: "to", Message: "must be after from"}
	}
	return s.repo.ListTasks(ctx, practitionerID, from, to)
}

// checkConflicts rejects timed tasks overlapping another active timed task
// on the same day. Inactive and untimed tasks never conflict.
func (s *Service) checkConflicts(ctx context.Context, t *Task, excludeID uuid.UUID) error {
	if !t.Timed() || !t.Status.Active() {
		return nil
	}

	existing, err := s.repo.ListTasksOn(ctx, t.PractitionerID, t.Date)
	if err != nil {
		return fmt.Errorf("load tasks for conflict check: %w", err)
	}

	if conflicts := detectConflicts(existing, *t.StartAt, *t.EndAt, excludeID); len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}
	return nil
}

// bookingWarnings performs the best-effort Task-Booking awareness check. Any
// failure reaching the booking data degrades to a logged skip.
func (s *Service) bookingWarnings(ctx context.Context, t *Task) []Warning {
	if s.bookings == nil || !t.Timed() || !t.Status.Active() {
		return nil
	}

	key := t.PractitionerID.String() + "|" + t.Date.Format("2006-01-02")
	windows, ok := s.awareness.Get(key)
	if !ok {
		dayStart := t.Date
		dayEnd := t.Date.Add(24 * time.Hour)

		var err error
		windows, err = s.bookings.BusyWindows(ctx, t.PractitionerID, dayStart, dayEnd)
		if err != nil {
			log.Printf("task awareness: booking lookup failed for %s: %v", key, err)
			return nil
		}
		s.awareness.Add(key, windows)
	}

	var warnings []Warning
	for _, w := range windows {
		if !Overlaps(w.StartAt, w.EndAt, *t.StartAt, *t.EndAt) {
			continue
		}
		warnings = append(warnings, Warning{
			Code: "booking_overlap",
			Message: fmt.Sprintf("overlaps %d active booking(s) from %s to %s",
				w.ActiveBookings, w.StartAt.Format("15:04"), w.EndAt.Format("15:04")),
			SlotID:         w.SlotID,
			StartAt:        w.StartAt,
			EndAt:          w.EndAt,
			ActiveBookings: w.ActiveBookings,
		})
	}
	return warnings
}

// diffTasks lists the fields the update actually changed, for the audit
// message.
func diffTasks(before, after *Task) []string {
	var changed []string
	if before.Title != after.Title {
		changed = append(changed, "title")
	}
	if before.Notes != after.Notes {
		changed = append(changed, "notes")
	}
	if !before.Date.Equal(after.Date) {
		changed = append(changed, "date")
	}
	if !equalTime(before.StartAt, after.StartAt) || !equalTime(before.EndAt, after.EndAt) {
		changed = append(changed, "time_range")
	}
	if before.Status != after.Status {
		changed = append(changed, "status")
	}
	if before.Priority != after.Priority {
		changed = append(changed, "priority")
	}
	return changed
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func (s *Service) recordTask(ctx context.Context, t *Task, verb string, changed []string) {
	cp := *t
	s.runHooks(ctx, hooks.Hook{Name: "activity.task_" + verb, Fn: func(ctx context.Context) error {
		msg := fmt.Sprintf("task %q %s on %s", cp.Title, verb, cp.Date.Format("2006-01-02"))
		if len(changed) > 0 {
			msg += " (" + strings.Join(changed, ", ") + ")"
		}
		var meta map[string]any
		if len(changed) > 0 {
			meta = map[string]any{"changed": changed}
		}
		return s.recorder.Record(ctx, activity.Entry{
			ActorID:    cp.PractitionerID,
			Action:     "task." + verb,
			EntityType: "task",
			EntityID:   cp.ID.String(),
			Message:    msg,
			Metadata:   meta,
		})
	}})
}
