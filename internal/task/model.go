package task

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "PENDING"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDone       TaskStatus = "DONE"
	StatusCancelled  TaskStatus = "CANCELLED"
)

// Active reports whether the task still occupies its time range. DONE and
// CANCELLED tasks no longer participate in conflict detection.
func (s TaskStatus) Active() bool {
	return s == StatusPending || s == StatusInProgress
}

func validStatus(s TaskStatus) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone, StatusCancelled:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
)

// Task is a practitioner's scheduled work item. The time range is optional;
// date-only tasks never conflict with anything. Tasks do not consume slot
// capacity.
type Task struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
	Title          string
	Notes          string
	Date           time.Time // midnight UTC
	StartAt        *time.Time
	EndAt          *time.Time
	Status         TaskStatus
	Priority       Priority
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Timed reports whether the task blocks a concrete time range.
func (t *Task) Timed() bool {
	return t.StartAt != nil && t.EndAt != nil
}

// DateOf truncates to the task's calendar day in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
