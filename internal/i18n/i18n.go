package i18n

import "strings"

const defaultLang = "en"

var translations = map[string]map[string]string{
	"id": {
		"invoice":         "FAKTUR",
		"from":            "Dari:",
		"to":              "Untuk:",
		"invoice_details": "Detail Faktur:",
		"date":            "Tanggal:",
		"due_date":        "Jatuh Tempo:",
		"status":          "Status:",
		"description":     "Deskripsi",
		"quantity":        "Jumlah",
		"price":           "Harga",
		"tax":             "PPN",
		"amount":          "Total",
		"subtotal":        "Subtotal:",
		"tax_total":       "Total PPN:",
		"total":           "Total:",
		"down_payment":    "Uang Muka:",
		"balance_due":     "Sisa Tagihan:",
		"notes":           "Catatan:",
		"terms":           "Syarat & Ketentuan:",
		"status_draft":    "Draft",
		"status_sent":     "Terkirim",
		"status_paid":     "Lunas",
	},
	"en": {
		"invoice":         "INVOICE",
		"from":            "From:",
		"to":              "To:",
		"invoice_details": "Invoice Details:",
		"date":            "Date:",
		"due_date":        "Due Date:",
		"status":          "Status:",
		"description":     "Description",
		"quantity":        "Quantity",
		"price":           "Price",
		"tax":             "Tax",
		"amount":          "Amount",
		"subtotal":        "Subtotal:",
		"tax_total":       "Tax Total:",
		"total":           "Total:",
		"down_payment":    "Down Payment:",
		"balance_due":     "Balance Due:",
		"notes":           "Notes:",
		"terms":           "Terms & Conditions:",
		"status_draft":    "Draft",
		"status_sent":     "Sent",
		"status_paid":     "Paid",
	},
}

// T returns the translation for code in lang, falling back to the default
// language and finally to the code itself.
func T(lang, code string) string {
	if table, ok := translations[lang]; ok {
		if s, ok := table[code]; ok {
			return s
		}
	}
	if s, ok := translations[defaultLang][code]; ok {
		return s
	}
	return code
}

// DetectLanguage picks a supported language from an Accept-Language header.
func DetectLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		if i := strings.IndexAny(tag, "-;"); i >= 0 {
			tag = tag[:i]
		}
		if _, ok := translations[tag]; ok {
			return tag
		}
	}
	return defaultLang
}
