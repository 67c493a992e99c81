package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"invoice-backend/internal/auth"
	"invoice-backend/internal/models"
	"invoice-backend/internal/services"
	"invoice-backend/internal/store"
)

func setupInvoiceHandler(t *testing.T) *InvoiceHandler {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.Invoice{}, &models.InvoiceItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewInvoiceHandler(store.New(conn, services.NewInvoiceService()))
}

const validForm = `{
	"invoiceNumber": "INV-001",
	"date": "2024-06-01",
	"dueDate": "2024-07-01",
	"status": "draft",
	"business": {"name": "Studio Satu", "address": "Jl. Merdeka 1\nJakarta"},
	"customer": {"name": "PT Pelanggan"},
	"items": [
		{"id": "it-1", "description": "Desain", "quantity": 2, "price": 100000, "tax": 10},
		{"id": "it-2", "description": "Hosting", "quantity": 1, "price": 50000}
	],
	"language": "id",
	"currency": "idr",
	"downPaymentPercentage": 50
}`

func authed(r *http.Request, owner uint) *http.Request {
	return r.WithContext(auth.WithUserID(r.Context(), owner))
}

func createInvoice(t *testing.T, h *InvoiceHandler, owner uint, body string) models.Invoice {
	t.Helper()
	req := authed(httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(body)), owner)
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create expected 201, got %d body=%s", w.Code, w.Body.String())
	}
	var inv models.Invoice
	if err := json.Unmarshal(w.Body.Bytes(), &inv); err != nil {
		t.Fatalf("decode created invoice: %v", err)
	}
	return inv
}

func TestInvoiceCreateComputesTotals(t *testing.T) {
	h := setupInvoiceHandler(t)
	inv := createInvoice(t, h, 1, validForm)
	if inv.Subtotal != 250000 || inv.TaxTotal != 20000 || inv.Total != 270000 {
		t.Fatalf("unexpected totals: %+v", inv)
	}
	if inv.DownPaymentAmount != 135000 || inv.BalanceDue != 135000 {
		t.Fatalf("unexpected down payment split: %+v", inv)
	}
	// lowercase currency tag normalized
	if inv.Currency != models.CurrencyIDR {
		t.Fatalf("currency = %q, want IDR", inv.Currency)
	}
}

func TestInvoiceCreateValidation(t *testing.T) {
	h := setupInvoiceHandler(t)
	body := `{"invoiceNumber":"INV-002","status":"draft","language":"en","currency":"USD",
		"business":{"name":"B"},"customer":{"name":"C"},"items":[]}`
	req := authed(httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(body)), 1)
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty items, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "at_least_one_item") {
		t.Fatalf("expected item violation, got %s", w.Body.String())
	}
}

func TestInvoiceListNewestFirst(t *testing.T) {
	h := setupInvoiceHandler(t)
	createInvoice(t, h, 1, validForm)
	createInvoice(t, h, 1, strings.Replace(validForm, "INV-001", "INV-002", 1))

	req := authed(httptest.NewRequest(http.MethodGet, "/invoices", nil), 1)
	w := httptest.NewRecorder()
	h.List(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list expected 200, got %d", w.Code)
	}
	var list struct {
		Items []models.Invoice `json:"items"`
		Total int              `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 2 || len(list.Items) != 2 {
		t.Fatalf("unexpected list: %+v", list)
	}
	if list.Items[0].InvoiceNumber != "INV-002" {
		t.Fatalf("expected newest first, got %q", list.Items[0].InvoiceNumber)
	}
}

func TestInvoiceUpdateUnknownID(t *testing.T) {
	h := setupInvoiceHandler(t)
	createInvoice(t, h, 1, validForm)
	req := authed(httptest.NewRequest(http.MethodPost, "/invoices/update?id=nope", strings.NewReader(validForm)), 1)
	w := httptest.NewRecorder()
	h.Update(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestInvoiceUpdatePreservesCreatedAt(t *testing.T) {
	h := setupInvoiceHandler(t)
	inv := createInvoice(t, h, 1, validForm)

	body := strings.Replace(validForm, `"status": "draft"`, `"status": "paid"`, 1)
	req := authed(httptest.NewRequest(http.MethodPost, "/invoices/update?id="+inv.ID, strings.NewReader(body)), 1)
	w := httptest.NewRecorder()
	h.Update(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	var updated models.Invoice
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.ID != inv.ID {
		t.Fatalf("identity changed on update")
	}
	if !updated.CreatedAt.Equal(inv.CreatedAt) {
		t.Fatalf("createdAt moved: %v -> %v", inv.CreatedAt, updated.CreatedAt)
	}
	if updated.Status != models.StatusPaid {
		t.Fatalf("status = %q, want paid", updated.Status)
	}
}

func TestDeleteClearsSelection(t *testing.T) {
	h := setupInvoiceHandler(t)
	first := createInvoice(t, h, 1, validForm)
	second := createInvoice(t, h, 1, strings.Replace(validForm, "INV-001", "INV-002", 1))

	selReq := authed(httptest.NewRequest(http.MethodPost, "/invoices/select?id="+first.ID, nil), 1)
	selW := httptest.NewRecorder()
	h.Select(selW, selReq)
	if selW.Code != http.StatusOK {
		t.Fatalf("select expected 200, got %d", selW.Code)
	}

	// Deleting an unrelated invoice leaves the selection alone.
	delReq := authed(httptest.NewRequest(http.MethodPost, "/invoices/delete?id="+second.ID, nil), 1)
	delW := httptest.NewRecorder()
	h.Delete(delW, delReq)
	if delW.Code != http.StatusOK {
		t.Fatalf("delete expected 200, got %d", delW.Code)
	}
	if id, ok := h.SelectedID(1); !ok || id != first.ID {
		t.Fatalf("selection lost on unrelated delete: %q %v", id, ok)
	}

	// Deleting the selected invoice clears it.
	delReq = authed(httptest.NewRequest(http.MethodPost, "/invoices/delete?id="+first.ID, nil), 1)
	delW = httptest.NewRecorder()
	h.Delete(delW, delReq)
	if delW.Code != http.StatusOK {
		t.Fatalf("delete expected 200, got %d", delW.Code)
	}
	if _, ok := h.SelectedID(1); ok {
		t.Fatal("selection not cleared after deleting selected invoice")
	}
}

func TestInvoiceOwnershipIsolation(t *testing.T) {
	h := setupInvoiceHandler(t)
	inv := createInvoice(t, h, 1, validForm)

	req := authed(httptest.NewRequest(http.MethodGet, "/invoices/get?id="+inv.ID, nil), 2)
	w := httptest.NewRecorder()
	h.Get(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign owner expected 404, got %d", w.Code)
	}
}

func TestInvoicePDFExport(t *testing.T) {
	h := setupInvoiceHandler(t)
	inv := createInvoice(t, h, 1, validForm)

	req := authed(httptest.NewRequest(http.MethodGet, "/invoices/pdf?id="+inv.ID+"&template=modern", nil), 1)
	w := httptest.NewRecorder()
	h.PDF(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("pdf expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/pdf") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "%PDF") {
		t.Fatal("response is not a PDF")
	}
}
