package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/practice-backend/internal/task"
)

// AwarenessSource adapts the booking data into the read-only port the task
// conflict detector consumes.
type AwarenessSource struct {
	repo Repository
}

func NewAwarenessSource(repo Repository) *AwarenessSource {
	return &AwarenessSource{repo: repo}
}

func (a *AwarenessSource) BusyWindows(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]task.BusyWindow, error) {
	windows, err := a.repo.ListActiveSlotWindows(ctx, practitionerID, from, to)
	if err != nil {
		return nil, err
	}

	result := make([]task.BusyWindow, len(windows))
	for i, w := range windows {
		result[i] = task.BusyWindow{
			SlotID:         w.SlotID,
			StartAt:        w.StartAt,
			EndAt:          w.EndAt,
			ActiveBookings: w.ActiveBookings,
		}
	}
	return result, nil
}
