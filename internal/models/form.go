package models

// InvoiceFormData carries every user-editable invoice field: everything on
// Invoice except identity, owner, derived totals and the creation timestamp.
// Validation happens at the form boundary (handlers); the calculator and
// builder trust this shape as-is.
type InvoiceFormData struct {
	InvoiceNumber         string        `json:"invoiceNumber"`
	Date                  string        `json:"date"`
	DueDate               string        `json:"dueDate"`
	Status                Status        `json:"status"`
	Business              Business      `json:"business"`
	Customer              Customer      `json:"customer"`
	Items                 []InvoiceItem `json:"items"`
	Notes                 string        `json:"notes,omitempty"`
	Terms                 string        `json:"terms,omitempty"`
	Language              string        `json:"language"`
	Currency              string        `json:"currency"`
	DownPaymentPercentage float64       `json:"downPaymentPercentage,omitempty"`
}
