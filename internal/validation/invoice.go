package validation

import (
	"strconv"

	"invoice-backend/internal/models"
)

// InvoiceForm checks the form boundary rules before data reaches the
// calculator/builder: required header fields, at least one item, quantity
// >= 1 and a non-negative unit price per item. Tax and down-payment
// percentages are deliberately not range-checked; the calculator is
// permissive by contract.
func InvoiceForm(data models.InvoiceFormData) Violations {
	v := Violations{}
	Required("invoiceNumber", data.InvoiceNumber, v)
	Required("date", data.Date, v)
	Required("dueDate", data.DueDate, v)
	Required("business.name", data.Business.Name, v)
	Required("customer.name", data.Customer.Name, v)
	if !data.Status.Valid() {
		v["status"] = "invalid_value"
	}
	OneOf("language", data.Language, []string{models.LanguageID, models.LanguageEN}, v)
	OneOf("currency", data.Currency, []string{models.CurrencyIDR, models.CurrencyUSD}, v)
	if len(data.Items) == 0 {
		v["items"] = "at_least_one_item"
		return v
	}
	seen := make(map[string]struct{}, len(data.Items))
	for i, it := range data.Items {
		prefix := "items." + strconv.Itoa(i)
		MinInt(prefix+".quantity", it.Quantity, 1, v)
		NonNegativeFloat(prefix+".price", it.UnitPrice, v)
		if it.ID != "" {
			if _, dup := seen[it.ID]; dup {
				v[prefix+".id"] = "duplicate_item_id"
			}
			seen[it.ID] = struct{}{}
		}
	}
	return v
}
