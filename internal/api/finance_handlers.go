package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/practice-backend/internal/finance"
)

// documentOps binds one document kind's service methods so the sale,
// purchase and quotation routes share a single set of handlers.
type documentOps struct {
	create func(ctx context.Context, practitionerID uuid.UUID, in finance.DocumentInput) (*finance.Document, error)
	update func(ctx context.Context, practitionerID, id uuid.UUID, in finance.DocumentUpdate) (*finance.Document, error)
	delete func(ctx context.Context, practitionerID, id uuid.UUID) error
	get    func(ctx context.Context, practitionerID, id uuid.UUID) (*finance.Document, error)
	list   func(ctx context.Context, practitionerID uuid.UUID) ([]finance.Document, error)
}

func saleOps(svc *finance.Service) documentOps {
	return documentOps{
		create: svc.CreateSale,
		update: svc.UpdateSale,
		delete: svc.DeleteSale,
		get:    svc.GetSale,
		list:   svc.ListSales,
	}
}

func purchaseOps(svc *finance.Service) documentOps {
	return documentOps{
		create: svc.CreatePurchase,
		update: svc.UpdatePurchase,
		delete: svc.DeletePurchase,
		get:    svc.GetPurchase,
		list:   svc.ListPurchases,
	}
}

func quotationOps(svc *finance.Service) documentOps {
	return documentOps{
		create: svc.CreateQuotation,
		update: svc.UpdateQuotation,
		delete: svc.DeleteQuotation,
		get:    svc.GetQuotation,
		list:   svc.ListQuotations,
	}
}

func createDocumentHandler(ops documentOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateDocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doc, err := ops.create(r.Context(), PractitionerID(r.Context()), req.toInput())
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
	}
}

func updateDocumentHandler(ops documentOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_document_id", "id must be a valid UUID")
			return
		}

		var req UpdateDocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doc, err := ops.update(r.Context(), PractitionerID(r.Context()), id, req.toInput())
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toDocumentResponse(doc))
	}
}

func deleteDocumentHandler(ops documentOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_document_id", "id must be a valid UUID")
			return
		}

		if err := ops.delete(r.Context(), PractitionerID(r.Context()), id); err != nil {
			handleDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func getDocumentHandler(ops documentOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_document_id", "id must be a valid UUID")
			return
		}

		doc, err := ops.get(r.Context(), PractitionerID(r.Context()), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toDocumentResponse(doc))
	}
}

func listDocumentsHandler(ops documentOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := ops.list(r.Context(), PractitionerID(r.Context()))
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]DocumentResponse, 0, len(docs))
		for i := range docs {
			resp = append(resp, toDocumentResponse(&docs[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func createEntryHandler(svc *finance.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EntryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		entry, err := svc.CreateManualEntry(r.Context(), PractitionerID(r.Context()), req.toInput())
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toEntryResponse(entry))
	}
}

func updateEntryHandler(svc *finance.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_entry_id", "id must be a valid UUID")
			return
		}

		var req EntryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		entry, err := svc.UpdateManualEntry(r.Context(), PractitionerID(r.Context()), id, req.toInput())
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toEntryResponse(entry))
	}
}

func deleteEntryHandler(svc *finance.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_entry_id", "id must be a valid UUID")
			return
		}

		if err := svc.DeleteManualEntry(r.Context(), PractitionerID(r.Context()), id); err != nil {
			handleDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func getEntryHandler(svc *finance.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_entry_id", "id must be a valid UUID")
			return
		}

		entry, err := svc.GetEntry(r.Context(), PractitionerID(r.Context()), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toEntryResponse(entry))
	}
}

func listEntriesHandler(svc *finance.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.ListEntries(r.Context(), PractitionerID(r.Context()))
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]EntryResponse, 0, len(entries))
		for i := range entries {
			resp = append(resp, toEntryResponse(&entries[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
