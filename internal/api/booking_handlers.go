package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/practice-backend/internal/booking"
)

func createSlotHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		slot, err := svc.CreateSlot(r.Context(), PractitionerID(r.Context()), booking.SlotInput{
			StartAt:     req.StartAt,
			EndAt:       req.EndAt,
			Price:       req.Price,
			MaxBookings: req.MaxBookings,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toSlotResponse(slot))
	}
}

func generateSlotsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GenerateSlotsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		slots, err := svc.GenerateSlots(r.Context(), PractitionerID(r.Context()), booking.GenerateSlotsInput{
			DayStart:        req.DayStart,
			DayEnd:          req.DayEnd,
			DurationMinutes: req.DurationMinutes,
			Price:           req.Price,
			MaxBookings:     req.MaxBookings,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]SlotResponse, 0, len(slots))
		for i := range slots {
			resp = append(resp, toSlotResponse(&slots[i]))
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func listSlotsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to, err := timeRange(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time_range", "from/to must be RFC 3339 timestamps")
			return
		}

		slots, err := svc.ListSlots(r.Context(), PractitionerID(r.Context()), from, to)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]SlotResponse, 0, len(slots))
		for i := range slots {
			resp = append(resp, toSlotResponse(&slots[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getSlotHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "id must be a valid UUID")
			return
		}

		slot, err := svc.GetSlot(r.Context(), PractitionerID(r.Context()), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

func blockSlotHandler(svc *booking.Service, blocked bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "id must be a valid UUID")
			return
		}

		var (
			slot *booking.AppointmentSlot
		)
		if blocked {
			slot, err = svc.BlockSlot(r.Context(), PractitionerID(r.Context()), id)
		} else {
			slot, err = svc.OpenSlot(r.Context(), PractitionerID(r.Context()), id)
		}
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

func listSlotBookingsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "id must be a valid UUID")
			return
		}

		bookings, err := svc.ListBookingsBySlot(r.Context(), PractitionerID(r.Context()), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]BookingResponse, 0, len(bookings))
		for i := range bookings {
			resp = append(resp, toBookingResponse(&bookings[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func createBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		slotID, err := uuid.Parse(req.SlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid UUID")
			return
		}

		patient := booking.PatientInfo{
			Name:  req.PatientName,
			Phone: req.PatientPhone,
			Email: req.PatientEmail,
		}
		bk, slot, err := svc.CreateBooking(r.Context(), PractitionerID(r.Context()), slotID, patient, req.Notes)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, CreateBookingResponse{
			Booking: toBookingResponse(bk),
			Slot:    toSlotResponse(slot),
		})
	}
}

func listBookingsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to, err := timeRange(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time_range", "from/to must be RFC 3339 timestamps")
			return
		}

		bookings, err := svc.ListBookings(r.Context(), PractitionerID(r.Context()), from, to)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]BookingResponse, 0, len(bookings))
		for i := range bookings {
			resp = append(resp, toBookingResponse(&bookings[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// getBookingHandler resolves {ref} as either a booking UUID or a
// confirmation code, always scoped to the calling practitioner.
func getBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bk, err := svc.GetBooking(r.Context(), PractitionerID(r.Context()), chi.URLParam(r, "ref"))
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(bk))
	}
}

func transitionBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TransitionBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		bk, err := svc.Transition(r.Context(), PractitionerID(r.Context()), chi.URLParam(r, "ref"), booking.BookingStatus(req.Status))
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(bk))
	}
}

// publicBookingHandler is the only unauthenticated read: patients look up
// their booking by confirmation code.
func publicBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bk, err := svc.GetBookingByCode(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, PublicBookingResponse{
			ConfirmationCode: bk.ConfirmationCode,
			PatientName:      bk.Patient.Name,
			Status:           string(bk.Status),
			FinalPrice:       bk.FinalPrice,
			CreatedAt:        bk.CreatedAt,
		})
	}
}
