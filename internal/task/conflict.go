package task

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching boundaries (end == start) do not
// conflict.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ConflictError is the hard rejection for a task whose time range overlaps
// another active task of the same practitioner.
type ConflictError struct {
	Conflicts []Task
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("time range conflicts with %d existing task(s)", len(e.Conflicts))
}

// detectConflicts filters same-day active tasks down to those overlapping
// the candidate range, skipping the candidate itself on update.
func detectConflicts(existing []Task, start, end time.Time, excludeID uuid.UUID) []Task {
	var conflicts []Task
	for _, t := range existing {
		if t.ID == excludeID || !t.Status.Active() || !t.Timed() {
			continue
		}
		if Overlaps(*t.StartAt, *t.EndAt, start, end) {
			conflicts = append(conflicts, t)
		}
	}
	return conflicts
}

// Warning is the non-blocking awareness payload returned alongside a
// successful write when patient bookings overlap the task's range.
type Warning struct {
	Code           string    `json:"code"`
	Message        string    `json:"message"`
	SlotID         uuid.UUID `json:"slot_id"`
	StartAt        time.Time `json:"start_at"`
	EndAt          time.Time `json:"end_at"`
	ActiveBookings int       `json:"active_bookings"`
}
