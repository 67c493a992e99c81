package models

import "time"

// Invoice status lifecycle. Older data sets used Indonesian labels
// (Dp / Belum Terbayar / Lunas); NormalizeStatus maps those onto this set.
type Status string

const (
	StatusDraft Status = "draft"
	StatusSent  Status = "sent"
	StatusPaid  Status = "paid"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid:
		return true
	}
	return false
}

// NormalizeStatus maps legacy status labels onto the canonical set.
// Unknown values fall back to draft.
func NormalizeStatus(raw string) Status {
	switch raw {
	case "Dp":
		return StatusDraft
	case "Belum Terbayar":
		return StatusSent
	case "Lunas":
		return StatusPaid
	}
	if s := Status(raw); s.Valid() {
		return s
	}
	return StatusDraft
}

// Language and currency are independent axes: switching one never mutates the other.
const (
	LanguageID = "id"
	LanguageEN = "en"

	CurrencyIDR = "IDR"
	CurrencyUSD = "USD"
)

// Customer is the billed party.
type Customer struct {
	Name    string `gorm:"not null" json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"` // free text, embedded line breaks preserved
	Phone   string `json:"phone,omitempty"`
}

// Business is the issuing party. Logo is a URL or inlined data reference.
type Business struct {
	Name    string `gorm:"not null" json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Phone   string `json:"phone,omitempty"`
	Logo    string `json:"logo,omitempty"`
}

// InvoiceItem is one billable line. IDs are client-generated tokens,
// unique within the parent invoice and stable across updates. The storage
// key is composite (id, invoice_id) so two invoices may reuse the same
// token without their rows colliding.
type InvoiceItem struct {
	ID          string  `gorm:"primaryKey" json:"id"`
	InvoiceID   string  `gorm:"primaryKey;index" json:"-"`
	Description string  `json:"description"`
	Quantity    int     `gorm:"not null" json:"quantity"`
	UnitPrice   float64 `gorm:"not null" json:"price"`
	TaxRate     float64 `json:"tax"` // percent, e.g. 10 for 10%
}

// Invoice is the aggregate root. Subtotal through BalanceDue are a cached
// projection of the totals calculator over Items and DownPaymentPercentage;
// they are recomputed on every create/update, never edited directly.
type Invoice struct {
	ID                    string        `gorm:"primaryKey" json:"id"`
	OwnerID               uint          `gorm:"not null;index" json:"-"`
	InvoiceNumber         string        `gorm:"not null" json:"invoiceNumber"`
	Date                  string        `json:"date"`    // ISO date (2006-01-02)
	DueDate               string        `json:"dueDate"` // ISO date
	Status                Status        `gorm:"not null;default:'draft'" json:"status"`
	Business              Business      `gorm:"embedded;embeddedPrefix:business_" json:"business"`
	Customer              Customer      `gorm:"embedded;embeddedPrefix:customer_" json:"customer"`
	Items                 []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	Notes                 string        `json:"notes,omitempty"`
	Terms                 string        `json:"terms,omitempty"`
	Language              string        `gorm:"not null;default:'en'" json:"language"`
	Currency              string        `gorm:"not null;default:'USD'" json:"currency"`
	DownPaymentPercentage float64       `json:"downPaymentPercentage,omitempty"`
	Subtotal              float64       `json:"subtotal"`
	TaxTotal              float64       `json:"taxTotal"`
	Total                 float64       `json:"total"`
	DownPaymentAmount     float64       `json:"downPaymentAmount"`
	BalanceDue            float64       `json:"balanceDue"`
	CreatedAt             time.Time     `json:"createdAt"`
	UpdatedAt             time.Time     `json:"-"`
}
