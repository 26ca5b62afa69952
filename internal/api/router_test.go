package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/practice-backend/internal/activity"
	"github.com/clinicore/practice-backend/internal/booking"
	"github.com/clinicore/practice-backend/internal/finance"
	"github.com/clinicore/practice-backend/internal/notify"
	redisclient "github.com/clinicore/practice-backend/internal/redis"
	"github.com/clinicore/practice-backend/internal/task"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	bookingRepo := booking.NewMemoryRepository()
	bookingSvc := booking.NewService(bookingRepo, redisclient.NewLocalLocker(), notify.NopNotifier{}, activity.NopRecorder{})
	financeSvc := finance.NewService(finance.NewMemoryRepository(), activity.NopRecorder{})
	taskSvc := task.NewService(task.NewMemoryRepository(), booking.NewAwarenessSource(bookingRepo), activity.NopRecorder{})

	router := NewRouter(RouterConfig{
		Bookings: bookingSvc,
		Finance:  financeSvc,
		Tasks:    taskSvc,
		Env:      "test",
		Version:  "test",
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, practitionerID uuid.UUID, body any, out any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if practitionerID != uuid.Nil {
		req.Header.Set("X-Practitioner-ID", practitionerID.String())
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestIdentityRequired(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, srv, http.MethodGet, "/slots", uuid.Nil, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/slots", nil)
	req.Header.Set("X-Practitioner-ID", "not-a-uuid")
	resp2, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestBookingFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	practitionerID := uuid.New()

	var slot SlotResponse
	resp := doJSON(t, srv, http.MethodPost, "/slots", practitionerID, map[string]any{
		"start_at":     "2026-09-10T09:00:00Z",
		"end_at":       "2026-09-10T09:30:00Z",
		"price":        "650",
		"max_bookings": 1,
	}, &slot)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "AVAILABLE", slot.Status)

	var created CreateBookingResponse
	resp = doJSON(t, srv, http.MethodPost, "/bookings", practitionerID, map[string]any{
		"slot_id":       slot.ID.String(),
		"patient_name":  "Ana Flores",
		"patient_phone": "+5215512345678",
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "PENDING", created.Booking.Status)
	assert.Len(t, created.Booking.ConfirmationCode, 8)
	assert.Equal(t, 0, created.Slot.Remaining)
	assert.Equal(t, "BOOKED", created.Slot.Status)

	// A full slot rejects the next booking with a conflict.
	var errResp ErrorResponse
	resp = doJSON(t, srv, http.MethodPost, "/bookings", practitionerID, map[string]any{
		"slot_id":       slot.ID.String(),
		"patient_name":  "Luis Vega",
		"patient_email": "luis@example.com",
	}, &errResp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "capacity_exceeded", errResp.Error)

	// Confirm, then try an illegal move.
	var confirmed BookingResponse
	resp = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/bookings/%s/status", created.Booking.ID), practitionerID,
		map[string]string{"status": "CONFIRMED"}, &confirmed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, confirmed.ConfirmedAt)

	resp = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/bookings/%s/status", created.Booking.ID), practitionerID,
		map[string]string{"status": "PENDING"}, &errResp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "invalid_transition", errResp.Error)

	// The public lookup works without identity and hides contact details.
	var public PublicBookingResponse
	resp = doJSON(t, srv, http.MethodGet, "/public/bookings/"+created.Booking.ConfirmationCode, uuid.Nil, nil, &public)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CONFIRMED", public.Status)
	assert.Equal(t, "Ana Flores", public.PatientName)

	// Another tenant cannot see the booking through the scoped route.
	resp = doJSON(t, srv, http.MethodGet, "/bookings/"+created.Booking.ID.String(), uuid.New(), nil, &errResp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", errResp.Error)
}

func TestValidationErrorsCarryField(t *testing.T) {
	srv := newTestServer(t)
	practitionerID := uuid.New()

	var errResp ErrorResponse
	resp := doJSON(t, srv, http.MethodPost, "/sales", practitionerID, map[string]any{
		"counterparty_name": "Client",
		"items":             []any{},
	}, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", errResp.Error)
	assert.Equal(t, "items", errResp.Field)
}

func TestSaleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	practitionerID := uuid.New()

	var doc DocumentResponse
	resp := doJSON(t, srv, http.MethodPost, "/sales", practitionerID, map[string]any{
		"counterparty_name": "Paciente García",
		"amount_paid":       "580",
		"items": []map[string]any{{
			"description": "Consultation",
			"quantity":    "1",
			"unit_price":  "1000",
		}},
	}, &doc)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("VEN-%d-001", time.Now().Year()), doc.Number)
	assert.Equal(t, "PARTIAL", doc.PaymentStatus)
	require.Len(t, doc.Items, 1)
	assert.True(t, doc.Items[0].Subtotal.Equal(doc.Subtotal))

	// The mirror entry shows up in the ledger.
	var entries []EntryResponse
	resp = doJSON(t, srv, http.MethodGet, "/ledger", practitionerID, nil, &entries)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, entries, 1)
	assert.Equal(t, "ingreso", entries[0].EntryType)
	assert.Equal(t, "sale", entries[0].TransactionType)

	// Derived entries reject manual deletion.
	var errResp ErrorResponse
	resp = doJSON(t, srv, http.MethodDelete, "/ledger/"+entries[0].ID.String(), practitionerID, nil, &errResp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "entry_managed", errResp.Error)
}

func TestTaskConflictOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	practitionerID := uuid.New()

	mk := func(title, start, end string) map[string]any {
		return map[string]any{
			"title":    title,
			"date":     "2026-09-10T00:00:00Z",
			"start_at": start,
			"end_at":   end,
		}
	}

	var envelope TaskEnvelope
	resp := doJSON(t, srv, http.MethodPost, "/tasks", practitionerID,
		mk("Morning rounds", "2026-09-10T09:00:00Z", "2026-09-10T11:00:00Z"), &envelope)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "PENDING", envelope.Task.Status)

	var conflict struct {
		Error     string         `json:"error"`
		Conflicts []TaskResponse `json:"conflicts"`
	}
	resp = doJSON(t, srv, http.MethodPost, "/tasks", practitionerID,
		mk("Team meeting", "2026-09-10T10:00:00Z", "2026-09-10T12:00:00Z"), &conflict)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "task_conflict", conflict.Error)
	require.Len(t, conflict.Conflicts, 1)
	assert.Equal(t, envelope.Task.ID, conflict.Conflicts[0].ID)
}
