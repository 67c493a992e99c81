package services

import (
	"time"

	"github.com/google/uuid"

	"invoice-backend/internal/models"
)

// InvoiceService encapsulates the totals calculation and aggregate building.
// It holds no state and performs no I/O.
type InvoiceService struct{}

func NewInvoiceService() *InvoiceService { return &InvoiceService{} }

// Totals are the derived invoice fields. Values carry full float precision;
// any rounding happens at the presentation layer only.
type Totals struct {
	Subtotal          float64
	TaxTotal          float64
	Total             float64
	DownPaymentAmount float64
	BalanceDue        float64
}

// ComputeTotals derives totals from the item lines and an optional
// down-payment percentage. Accumulation follows item order. Negative
// quantities or prices are not rejected; the arithmetic result propagates
// (credit-note style lines pass through).
func (s *InvoiceService) ComputeTotals(items []models.InvoiceItem, downPaymentPercentage float64) Totals {
	var t Totals
	for _, it := range items {
		line := float64(it.Quantity) * it.UnitPrice
		t.Subtotal += line
		t.TaxTotal += line * it.TaxRate / 100
	}
	t.Total = t.Subtotal + t.TaxTotal
	t.DownPaymentAmount = t.Total * downPaymentPercentage / 100
	t.BalanceDue = t.Total - t.DownPaymentAmount
	return t
}

// BuildInvoice assembles an Invoice from form data and computed totals.
// An empty existingID selects the create path: a fresh identity and creation
// timestamp are assigned. Otherwise identity and createdAt are reused
// unchanged (the update path never moves the creation timestamp).
// All other fields are copied verbatim from data.
func (s *InvoiceService) BuildInvoice(data models.InvoiceFormData, existingID string, createdAt time.Time) models.Invoice {
	totals := s.ComputeTotals(data.Items, data.DownPaymentPercentage)

	id := existingID
	created := createdAt
	if id == "" {
		id = uuid.NewString()
		created = time.Now().UTC()
	}

	items := make([]models.InvoiceItem, len(data.Items))
	copy(items, data.Items)
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		items[i].InvoiceID = id
	}

	return models.Invoice{
		ID:                    id,
		InvoiceNumber:         data.InvoiceNumber,
		Date:                  data.Date,
		DueDate:               data.DueDate,
		Status:                data.Status,
		Business:              data.Business,
		Customer:              data.Customer,
		Items:                 items,
		Notes:                 data.Notes,
		Terms:                 data.Terms,
		Language:              data.Language,
		Currency:              data.Currency,
		DownPaymentPercentage: data.DownPaymentPercentage,
		Subtotal:              totals.Subtotal,
		TaxTotal:              totals.TaxTotal,
		Total:                 totals.Total,
		DownPaymentAmount:     totals.DownPaymentAmount,
		BalanceDue:            totals.BalanceDue,
		CreatedAt:             created,
	}
}
