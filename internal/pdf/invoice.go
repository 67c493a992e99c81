package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf/v2"

	"invoice-backend/internal/format"
	"invoice-backend/internal/i18n"
	"invoice-backend/internal/models"
)

// Options select the visual template and page geometry.
type Options struct {
	Template string  // classic, modern, minimal
	PageSize string  // A4 (default) or Letter
	Margin   float64 // mm, 0 means default
}

const (
	TemplateClassic = "classic"
	TemplateModern  = "modern"
	TemplateMinimal = "minimal"
)

type palette struct {
	headR, headG, headB int
	fill                bool
}

func templatePalette(name string) palette {
	switch name {
	case TemplateModern:
		return palette{headR: 41, headG: 98, headB: 255, fill: true}
	case TemplateMinimal:
		return palette{headR: 0, headG: 0, headB: 0, fill: false}
	default: // classic
		return palette{headR: 55, headG: 65, headB: 81, fill: true}
	}
}

// Render rasterizes a fully-computed invoice to a paginated PDF. Labels
// follow the invoice's language; amounts follow its currency. The invoice is
// consumed as-is; no totals are recomputed here.
func Render(inv models.Invoice, opts Options) ([]byte, error) {
	size := opts.PageSize
	if size == "" {
		size = "A4"
	}
	margin := opts.Margin
	if margin <= 0 {
		margin = 15
	}
	pal := templatePalette(opts.Template)
	lang := inv.Language

	pdf := gofpdf.New("P", "mm", size, "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.AddPage()
	width, _ := pdf.GetPageSize()
	usable := width - 2*margin

	// Header: title + invoice number left, business block right
	pdf.SetFont("Arial", "B", 22)
	pdf.SetTextColor(pal.headR, pal.headG, pal.headB)
	pdf.CellFormat(usable/2, 12, i18n.T(lang, "invoice"), "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(usable/2, 12, inv.Business.Name, "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(usable/2, 5, "#"+inv.InvoiceNumber, "", 0, "L", false, 0, "")
	pdf.MultiCell(usable/2, 5, businessContact(inv.Business), "", "R", false)
	pdf.Ln(6)

	// From / To blocks
	half := usable / 2
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(half, 6, i18n.T(lang, "from"), "", 0, "L", false, 0, "")
	pdf.CellFormat(half, 6, i18n.T(lang, "to"), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	fromLines := partyLines(inv.Business.Name, inv.Business.Address, inv.Business.Email, inv.Business.Phone)
	toLines := partyLines(inv.Customer.Name, inv.Customer.Address, inv.Customer.Email, inv.Customer.Phone)
	rows := len(fromLines)
	if len(toLines) > rows {
		rows = len(toLines)
	}
	for i := 0; i < rows; i++ {
		pdf.CellFormat(half, 5, lineAt(fromLines, i), "", 0, "L", false, 0, "")
		pdf.CellFormat(half, 5, lineAt(toLines, i), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// Invoice details
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(usable, 6, i18n.T(lang, "invoice_details"), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(usable, 5, i18n.T(lang, "date")+" "+format.Date(inv.Date, lang), "", 1, "L", false, 0, "")
	pdf.CellFormat(usable, 5, i18n.T(lang, "due_date")+" "+format.Date(inv.DueDate, lang), "", 1, "L", false, 0, "")
	pdf.CellFormat(usable, 5, i18n.T(lang, "status")+" "+i18n.T(lang, "status_"+string(inv.Status)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// Item table
	descW := usable - 25 - 30 - 18 - 32
	pdf.SetFont("Arial", "B", 10)
	if pal.fill {
		pdf.SetFillColor(pal.headR, pal.headG, pal.headB)
		pdf.SetTextColor(255, 255, 255)
	}
	pdf.CellFormat(descW, 7, i18n.T(lang, "description"), "1", 0, "L", pal.fill, 0, "")
	pdf.CellFormat(25, 7, i18n.T(lang, "quantity"), "1", 0, "C", pal.fill, 0, "")
	pdf.CellFormat(30, 7, i18n.T(lang, "price"), "1", 0, "R", pal.fill, 0, "")
	pdf.CellFormat(18, 7, i18n.T(lang, "tax"), "1", 0, "C", pal.fill, 0, "")
	pdf.CellFormat(32, 7, i18n.T(lang, "amount"), "1", 1, "R", pal.fill, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "", 10)
	for _, it := range inv.Items {
		line := float64(it.Quantity) * it.UnitPrice
		desc := shorten(it.Description, 60)
		pdf.CellFormat(descW, 6, desc, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", it.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, format.Currency(it.UnitPrice, inv.Currency), "1", 0, "R", false, 0, "")
		pdf.CellFormat(18, 6, format.Percent(it.TaxRate), "1", 0, "C", false, 0, "")
		pdf.CellFormat(32, 6, format.Currency(line, inv.Currency), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(3)

	// Totals block, right aligned
	totalRow := func(label string, amount float64, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 10)
		pdf.CellFormat(usable-62, 6, "", "", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(32, 6, format.Currency(amount, inv.Currency), "", 1, "R", false, 0, "")
	}
	totalRow(i18n.T(lang, "subtotal"), inv.Subtotal, false)
	totalRow(i18n.T(lang, "tax_total"), inv.TaxTotal, false)
	totalRow(i18n.T(lang, "total"), inv.Total, true)
	if inv.DownPaymentPercentage != 0 {
		totalRow(i18n.T(lang, "down_payment"), inv.DownPaymentAmount, false)
		totalRow(i18n.T(lang, "balance_due"), inv.BalanceDue, true)
	}

	// Notes and terms keep embedded line breaks verbatim
	for _, block := range []struct{ code, text string }{
		{"notes", inv.Notes},
		{"terms", inv.Terms},
	} {
		if strings.TrimSpace(block.text) == "" {
			continue
		}
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(usable, 6, i18n.T(lang, block.code), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(usable, 5, block.text, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// shorten truncates s to max runes with an ellipsis, never splitting a
// multi-byte rune.
func shorten(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func businessContact(b models.Business) string {
	parts := make([]string, 0, 2)
	if b.Email != "" {
		parts = append(parts, b.Email)
	}
	if b.Phone != "" {
		parts = append(parts, b.Phone)
	}
	return strings.Join(parts, "\n")
}

func partyLines(name, address, email, phone string) []string {
	lines := []string{name}
	for _, l := range strings.Split(address, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if email != "" {
		lines = append(lines, email)
	}
	if phone != "" {
		lines = append(lines, phone)
	}
	return lines
}

func lineAt(lines []string, i int) string {
	if i < len(lines) {
		return lines[i]
	}
	return ""
}
