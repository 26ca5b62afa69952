package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clinicore/practice-backend/internal/booking"
	"github.com/clinicore/practice-backend/internal/finance"
	"github.com/clinicore/practice-backend/internal/task"
)

// Slots

type CreateSlotRequest struct {
	StartAt     time.Time       `json:"start_at"`
	EndAt       time.Time       `json:"end_at"`
	Price       decimal.Decimal `json:"price"`
	MaxBookings int             `json:"max_bookings"`
}

type GenerateSlotsRequest struct {
	DayStart        time.Time       `json:"day_start"`
	DayEnd          time.Time       `json:"day_end"`
	DurationMinutes int             `json:"duration_minutes"`
	Price           decimal.Decimal `json:"price"`
	MaxBookings     int             `json:"max_bookings"`
}

type SlotResponse struct {
	ID              uuid.UUID       `json:"id"`
	StartAt         time.Time       `json:"start_at"`
	EndAt           time.Time       `json:"end_at"`
	DurationMinutes int             `json:"duration_minutes"`
	Price           decimal.Decimal `json:"price"`
	MaxBookings     int             `json:"max_bookings"`
	CurrentBookings int             `json:"current_bookings"`
	Remaining       int             `json:"remaining"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func toSlotResponse(s *booking.AppointmentSlot) SlotResponse {
	return SlotResponse{
		ID:              s.ID,
		StartAt:         s.StartAt,
		EndAt:           s.EndAt,
		DurationMinutes: s.DurationMinutes,
		Price:           s.Price,
		MaxBookings:     s.MaxBookings,
		CurrentBookings: s.CurrentBookings,
		Remaining:       s.Remaining(),
		Status:          string(s.Status),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// Bookings

type CreateBookingRequest struct {
	SlotID       string `json:"slot_id"`
	PatientName  string `json:"patient_name"`
	PatientPhone string `json:"patient_phone"`
	PatientEmail string `json:"patient_email"`
	Notes        string `json:"notes"`
}

type TransitionBookingRequest struct {
	Status string `json:"status"`
}

type BookingResponse struct {
	ID               uuid.UUID       `json:"id"`
	SlotID           uuid.UUID       `json:"slot_id"`
	PatientName      string          `json:"patient_name"`
	PatientPhone     string          `json:"patient_phone,omitempty"`
	PatientEmail     string          `json:"patient_email,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	FinalPrice       decimal.Decimal `json:"final_price"`
	ConfirmationCode string          `json:"confirmation_code"`
	Status           string          `json:"status"`
	ConfirmedAt      *time.Time      `json:"confirmed_at,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:               b.ID,
		SlotID:           b.SlotID,
		PatientName:      b.Patient.Name,
		PatientPhone:     b.Patient.Phone,
		PatientEmail:     b.Patient.Email,
		Notes:            b.Notes,
		FinalPrice:       b.FinalPrice,
		ConfirmationCode: b.ConfirmationCode,
		Status:           string(b.Status),
		ConfirmedAt:      b.ConfirmedAt,
		CancelledAt:      b.CancelledAt,
		CompletedAt:      b.CompletedAt,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

// CreateBookingResponse bundles the booking with the slot's post-reservation
// state so the caller sees the remaining capacity without a second request.
type CreateBookingResponse struct {
	Booking BookingResponse `json:"booking"`
	Slot    SlotResponse    `json:"slot"`
}

// PublicBookingResponse is the unauthenticated lookup by confirmation code.
// It deliberately omits patient contact details and pricing internals.
type PublicBookingResponse struct {
	ConfirmationCode string          `json:"confirmation_code"`
	PatientName      string          `json:"patient_name"`
	Status           string          `json:"status"`
	FinalPrice       decimal.Decimal `json:"final_price"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Finance

type LineItemRequest struct {
	Description  string           `json:"description"`
	ItemType     string           `json:"item_type"`
	Quantity     decimal.Decimal  `json:"quantity"`
	Unit         string           `json:"unit"`
	UnitPrice    decimal.Decimal  `json:"unit_price"`
	DiscountRate *decimal.Decimal `json:"discount_rate,omitempty"`
	TaxRate      *decimal.Decimal `json:"tax_rate,omitempty"`
}

func (r LineItemRequest) toInput() finance.LineItemInput {
	return finance.LineItemInput{
		Description:  r.Description,
		ItemType:     r.ItemType,
		Quantity:     r.Quantity,
		Unit:         r.Unit,
		UnitPrice:    r.UnitPrice,
		DiscountRate: r.DiscountRate,
		TaxRate:      r.TaxRate,
	}
}

type CreateDocumentRequest struct {
	CounterpartyName  string            `json:"counterparty_name"`
	CounterpartyTaxID string            `json:"counterparty_tax_id"`
	AmountPaid        decimal.Decimal   `json:"amount_paid"`
	Items             []LineItemRequest `json:"items"`
	IssuedAt          *time.Time        `json:"issued_at,omitempty"`
}

func (r CreateDocumentRequest) toInput() finance.DocumentInput {
	in := finance.DocumentInput{
		CounterpartyName:  r.CounterpartyName,
		CounterpartyTaxID: r.CounterpartyTaxID,
		AmountPaid:        r.AmountPaid,
		IssuedAt:          r.IssuedAt,
	}
	for _, item := range r.Items {
		in.Items = append(in.Items, item.toInput())
	}
	return in
}

type UpdateDocumentRequest struct {
	CounterpartyName  string            `json:"counterparty_name"`
	CounterpartyTaxID string            `json:"counterparty_tax_id"`
	AmountPaid        decimal.Decimal   `json:"amount_paid"`
	Items             []LineItemRequest `json:"items"`
	IssuedAt          *time.Time        `json:"issued_at,omitempty"`
	Status            *string           `json:"status,omitempty"`
}

func (r UpdateDocumentRequest) toInput() finance.DocumentUpdate {
	in := finance.DocumentUpdate{
		CounterpartyName:  r.CounterpartyName,
		CounterpartyTaxID: r.CounterpartyTaxID,
		AmountPaid:        r.AmountPaid,
		IssuedAt:          r.IssuedAt,
	}
	for _, item := range r.Items {
		in.Items = append(in.Items, item.toInput())
	}
	if r.Status != nil {
		status := finance.DocumentStatus(*r.Status)
		in.Status = &status
	}
	return in
}

type LineItemResponse struct {
	Description  string          `json:"description"`
	ItemType     string          `json:"item_type,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit,omitempty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
}

type DocumentResponse struct {
	ID                uuid.UUID          `json:"id"`
	Kind              string             `json:"kind"`
	Number            string             `json:"number"`
	CounterpartyName  string             `json:"counterparty_name"`
	CounterpartyTaxID string             `json:"counterparty_tax_id,omitempty"`
	Status            string             `json:"status"`
	PaymentStatus     string             `json:"payment_status"`
	AmountPaid        decimal.Decimal    `json:"amount_paid"`
	Subtotal          decimal.Decimal    `json:"subtotal"`
	Tax               decimal.Decimal    `json:"tax"`
	Total             decimal.Decimal    `json:"total"`
	Items             []LineItemResponse `json:"items"`
	IssuedAt          time.Time          `json:"issued_at"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

func toDocumentResponse(d *finance.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:                d.ID,
		Kind:              string(d.Kind),
		Number:            d.Number,
		CounterpartyName:  d.CounterpartyName,
		CounterpartyTaxID: d.CounterpartyTaxID,
		Status:            string(d.Status),
		PaymentStatus:     string(d.PaymentStatus),
		AmountPaid:        d.AmountPaid,
		Subtotal:          d.Subtotal,
		Tax:               d.Tax,
		Total:             d.Total,
		IssuedAt:          d.IssuedAt,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
	for _, li := range d.Items {
		resp.Items = append(resp.Items, LineItemResponse{
			Description:  li.Description,
			ItemType:     li.ItemType,
			Quantity:     li.Quantity,
			Unit:         li.Unit,
			UnitPrice:    li.UnitPrice,
			DiscountRate: li.DiscountRate,
			TaxRate:      li.TaxRate,
			Subtotal:     li.LineSubtotal(),
			Tax:          li.LineTax(),
		})
	}
	return resp
}

type EntryRequest struct {
	Concept    string          `json:"concept"`
	EntryType  string          `json:"entry_type"`
	Amount     decimal.Decimal `json:"amount"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	EntryAt    *time.Time      `json:"entry_at,omitempty"`
}

func (r EntryRequest) toInput() finance.EntryInput {
	return finance.EntryInput{
		Concept:    r.Concept,
		EntryType:  finance.EntryType(r.EntryType),
		Amount:     r.Amount,
		AmountPaid: r.AmountPaid,
		EntryAt:    r.EntryAt,
	}
}

type EntryResponse struct {
	ID              uuid.UUID       `json:"id"`
	InternalID      int             `json:"internal_id"`
	Concept         string          `json:"concept"`
	EntryType       string          `json:"entry_type"`
	Amount          decimal.Decimal `json:"amount"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	PaymentStatus   string          `json:"payment_status"`
	TransactionType string          `json:"transaction_type"`
	SourceID        *uuid.UUID      `json:"source_id,omitempty"`
	EntryAt         time.Time       `json:"entry_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func toEntryResponse(e *finance.LedgerEntry) EntryResponse {
	return EntryResponse{
		ID:              e.ID,
		InternalID:      e.InternalID,
		Concept:         e.Concept,
		EntryType:       string(e.EntryType),
		Amount:          e.Amount,
		AmountPaid:      e.AmountPaid,
		PaymentStatus:   string(e.PaymentStatus),
		TransactionType: string(e.TransactionType),
		SourceID:        e.SourceID,
		EntryAt:         e.EntryAt,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

// Tasks

type TaskRequest struct {
	Title    string     `json:"title"`
	Notes    string     `json:"notes"`
	Date     time.Time  `json:"date"`
	StartAt  *time.Time `json:"start_at,omitempty"`
	EndAt    *time.Time `json:"end_at,omitempty"`
	Status   *string    `json:"status,omitempty"`
	Priority *string    `json:"priority,omitempty"`
}

func (r TaskRequest) toInput() task.TaskInput {
	in := task.TaskInput{
		Title:   r.Title,
		Notes:   r.Notes,
		Date:    r.Date,
		StartAt: r.StartAt,
		EndAt:   r.EndAt,
	}
	if r.Status != nil {
		status := task.TaskStatus(*r.Status)
		in.Status = &status
	}
	if r.Priority != nil {
		priority := task.Priority(*r.Priority)
		in.Priority = &priority
	}
	return in
}

type TaskResponse struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes,omitempty"`
	Date      time.Time  `json:"date"`
	StartAt   *time.Time `json:"start_at,omitempty"`
	EndAt     *time.Time `json:"end_at,omitempty"`
	Status    string     `json:"status"`
	Priority  string     `json:"priority"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func toTaskResponse(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:        t.ID,
		Title:     t.Title,
		Notes:     t.Notes,
		Date:      t.Date,
		StartAt:   t.StartAt,
		EndAt:     t.EndAt,
		Status:    string(t.Status),
		Priority:  string(t.Priority),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// TaskEnvelope carries the written task plus any booking-overlap warnings.
type TaskEnvelope struct {
	Task     TaskResponse   `json:"task"`
	Warnings []task.Warning `json:"warnings,omitempty"`
}
