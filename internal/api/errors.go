package api

import (
	"errors"
	"net/http"

	"github.com/clinicore/practice-backend/internal/booking"
	"github.com/clinicore/practice-backend/internal/finance"
	redisclient "github.com/clinicore/practice-backend/internal/redis"
	"github.com/clinicore/practice-backend/internal/task"
)

// handleDomainError maps service errors onto the HTTP taxonomy: 400 for
// validation, 404 uniformly for anything missing or foreign-tenant, 409 for
// state conflicts, 503 for an exhausted sequence.
func handleDomainError(w http.ResponseWriter, err error) {
	var bookingVal *booking.ValidationError
	var financeVal *finance.ValidationError
	var taskVal *task.ValidationError
	var invalidTransition *booking.InvalidTransitionError
	var taskConflict *task.ConflictError

	switch {
	case errors.As(err, &bookingVal):
		writeFieldError(w, "validation_error", bookingVal.Field, bookingVal.Message)
	case errors.As(err, &financeVal):
		writeFieldError(w, "validation_error", financeVal.Field, financeVal.Message)
	case errors.As(err, &taskVal):
		writeFieldError(w, "validation_error", taskVal.Field, taskVal.Message)

	case errors.Is(err, booking.ErrSlotNotFound),
		errors.Is(err, booking.ErrBookingNotFound),
		errors.Is(err, finance.ErrDocumentNotFound),
		errors.Is(err, finance.ErrEntryNotFound),
		errors.Is(err, task.ErrTaskNotFound):
		// Uniform regardless of whether the record exists for another
		// tenant; this keeps tenants from enumerating each other.
		writeError(w, http.StatusNotFound, "not_found", "resource not found")

	case errors.As(err, &invalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", invalidTransition.Error())
	case errors.As(err, &taskConflict):
		writeTaskConflict(w, taskConflict)

	case errors.Is(err, booking.ErrSlotBlocked):
		writeError(w, http.StatusConflict, "slot_blocked", err.Error())
	case errors.Is(err, booking.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, "capacity_exceeded", err.Error())
	case errors.Is(err, booking.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrCodeConflict):
		writeError(w, http.StatusConflict, "code_conflict", err.Error())
	case errors.Is(err, finance.ErrEntryManaged):
		writeError(w, http.StatusConflict, "entry_managed", err.Error())

	case errors.Is(err, finance.ErrSequenceExhausted):
		writeError(w, http.StatusServiceUnavailable, "sequence_exhausted", err.Error())

	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

type taskConflictResponse struct {
	Error     string         `json:"error"`
	Details   string         `json:"details"`
	Conflicts []TaskResponse `json:"conflicts"`
}

func writeTaskConflict(w http.ResponseWriter, conflict *task.ConflictError) {
	resp := taskConflictResponse{
		Error:   "task_conflict",
		Details: conflict.Error(),
	}
	for i := range conflict.Conflicts {
		resp.Conflicts = append(resp.Conflicts, toTaskResponse(&conflict.Conflicts[i]))
	}
	writeJSON(w, http.StatusConflict, resp)
}
