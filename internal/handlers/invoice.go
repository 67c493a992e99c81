package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"invoice-backend/internal/auth"
	"invoice-backend/internal/format"
	"invoice-backend/internal/httpx"
	"invoice-backend/internal/logger"
	"invoice-backend/internal/middleware"
	"invoice-backend/internal/models"
	"invoice-backend/internal/pdf"
	"invoice-backend/internal/store"
	"invoice-backend/internal/validation"
)

// InvoiceHandler exposes the invoice collection over HTTP. It also tracks
// the per-owner "selected" invoice used by the preview flow; the store does
// not track selection, so clearing it on delete happens here.
type InvoiceHandler struct {
	Store *store.Store
	log   zerolog.Logger

	mu       sync.Mutex
	selected map[uint]string
}

func NewInvoiceHandler(s *store.Store) *InvoiceHandler {
	return &InvoiceHandler{
		Store:    s,
		log:      logger.WithComponent("handlers"),
		selected: map[uint]string{},
	}
}

// List: GET /invoices
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.UserIDFromContext(r.Context())
	invs, err := h.Store.List(r.Context(), owner)
	if err != nil {
		h.storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": invs, "total": len(invs)})
}

// Create: POST /invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.UserIDFromContext(r.Context())
	data, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	inv, err := h.Store.Create(r.Context(), owner, data)
	if err != nil {
		h.storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

// Get: GET /invoices/get?id=... (answered from the in-memory snapshot)
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.UserIDFromContext(r.Context())
	id := r.URL.Query().Get("id")
	if id == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	inv, ok := h.lookup(r, owner, id)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Update: POST /invoices/update?id=... (whole-object replace)
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.UserIDFromContext(r.Context())
	id := r.URL.Query().Get("id")
	if id == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	data, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	inv, err := h.Store.Update(r.Context(), owner, id, data)
	if err != nil {
		h.storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Delete: POST /invoices/delete?id=...
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.UserIDFromContext(r.Context())
	id := r.URL.Query().Get("id")
	if id == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	if err := h.Store.Delete(r.Context(), owner, id); err != nil {
		h.storeError(w, err)
		return
	}
	h.mu.Lock()
	if h.selected[owner] == id {
		delete(h.selected, owner)
	}
	h.mu.Unlock()
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Select: POST /invoices/select?id=... (empty id clears the selection)
func (h *InvoiceHandler) Select(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.UserIDFromContext(r.Context())
	id := r.URL.Query().Get("id")
	if id == "" {
		h.mu.Lock()
		delete(h.selected, owner)
		h.mu.Unlock()
		httpx.JSON(w, http.StatusOK, map[string]any{"selected": nil})
		return
	}
	inv, ok := h.lookup(r, owner, id)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	h.mu.Lock()
	h.selected[owner] = inv.ID
	h.mu.Unlock()
	httpx.JSON(w, http.StatusOK, map[string]any{"selected": inv.ID})
}

// Selected: GET /invoices/selected
func (h *InvoiceHandler) Selected(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.UserIDFromContext(r.Context())
	h.mu.Lock()
	id, ok := h.selected[owner]
	h.mu.Unlock()
	if !ok {
		httpx.JSON(w, http.StatusOK, map[string]any{"selected": nil})
		return
	}
	inv, found := h.lookup(r, owner, id)
	if !found {
		httpx.JSON(w, http.StatusOK, map[string]any{"selected": nil})
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// SelectedID returns the current selection for owner (tests and callers that
// only need the reference).
func (h *InvoiceHandler) SelectedID(owner uint) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id, ok := h.selected[owner]
	return id, ok
}

// PDF: GET /invoices/pdf?id=...&template=...&page=...&margin=...
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.UserIDFromContext(r.Context())
	id := r.URL.Query().Get("id")
	if id == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	inv, ok := h.lookup(r, owner, id)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if inv.Language == "" {
		inv.Language = middleware.LangFrom(r)
	}
	opts := pdf.Options{
		Template: r.URL.Query().Get("template"),
		PageSize: r.URL.Query().Get("page"),
	}
	if m := r.URL.Query().Get("margin"); m != "" {
		if f, err := strconv.ParseFloat(m, 64); err == nil && f > 0 {
			opts.Margin = f
		}
	}
	data, err := pdf.Render(inv, opts)
	if err != nil {
		h.log.Error().Err(err).Str("invoice", inv.ID).Msg("pdf generation failed")
		httpx.JSONError(w, http.StatusInternalServerError, "pdf_generation_failed", nil)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="invoice-`+inv.InvoiceNumber+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// lookup resolves id against the snapshot, refreshing the owner's list once
// on a miss (fresh process), and enforces ownership.
func (h *InvoiceHandler) lookup(r *http.Request, owner uint, id string) (models.Invoice, bool) {
	inv, ok := h.Store.Get(id)
	if !ok {
		if _, err := h.Store.List(r.Context(), owner); err != nil {
			return models.Invoice{}, false
		}
		inv, ok = h.Store.Get(id)
	}
	if !ok || inv.OwnerID != owner {
		return models.Invoice{}, false
	}
	return inv, true
}

func (h *InvoiceHandler) decodeForm(w http.ResponseWriter, r *http.Request) (models.InvoiceFormData, bool) {
	var data models.InvoiceFormData
	if err := httpx.Decode(r, &data); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return data, false
	}
	normalizeForm(&data)
	if v := validation.InvoiceForm(data); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return data, false
	}
	return data, true
}

// normalizeForm canonicalizes the loosely-typed axes: lowercase currency
// variants are accepted, legacy status labels are mapped, and missing dates
// get the usual defaults (today, +30 days).
func normalizeForm(d *models.InvoiceFormData) {
	d.Currency = strings.ToUpper(strings.TrimSpace(d.Currency))
	d.Language = strings.ToLower(strings.TrimSpace(d.Language))
	d.Status = models.NormalizeStatus(string(d.Status))
	if d.Date == "" {
		d.Date = format.CurrentDate()
	}
	if d.DueDate == "" {
		d.DueDate = format.DefaultDueDate()
	}
}

// storeError maps store failures onto HTTP statuses. Persistence failures
// surface as a generic message, never the raw error.
func (h *InvoiceHandler) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrUnauthorized):
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
	case errors.Is(err, store.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	default:
		h.log.Error().Err(err).Msg("invoice operation failed")
		httpx.JSONError(w, http.StatusInternalServerError, "storage_failure", nil)
	}
}
