package format

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"invoice-backend/internal/models"
)

var (
	idPrinter = message.NewPrinter(language.Indonesian)
	enPrinter = message.NewPrinter(language.AmericanEnglish)
)

// Currency renders an amount for display: locale digit grouping of the
// currency's home locale and zero fraction digits. Rounding here is
// display-only; stored values keep full precision.
func Currency(amount float64, cur string) string {
	d := number.Decimal(amount, number.MaxFractionDigits(0), number.MinFractionDigits(0))
	if strings.EqualFold(cur, models.CurrencyIDR) {
		return idPrinter.Sprintf("Rp %v", d)
	}
	return enPrinter.Sprintf("$%v", d)
}

// Percent renders a percentage rate for display.
func Percent(rate float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", rate), "0"), ".") + "%"
}

// x/text has no date formatting, so month names are carried here.
var months = map[string][]string{
	models.LanguageID: {"Januari", "Februari", "Maret", "April", "Mei", "Juni", "Juli", "Agustus", "September", "Oktober", "November", "Desember"},
	models.LanguageEN: {"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
}

var shortMonths = map[string][]string{
	models.LanguageID: {"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"},
	models.LanguageEN: {"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
}

// Date renders an ISO date (2006-01-02) with the long month name of the
// given language. Unparseable input is returned verbatim.
func Date(iso, lang string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	if lang == models.LanguageID {
		return fmt.Sprintf("%d %s %d", t.Day(), months[lang][t.Month()-1], t.Year())
	}
	return fmt.Sprintf("%s %d, %d", months[models.LanguageEN][t.Month()-1], t.Day(), t.Year())
}

// ShortDate is Date with abbreviated month names.
func ShortDate(iso, lang string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	if lang == models.LanguageID {
		return fmt.Sprintf("%d %s %d", t.Day(), shortMonths[lang][t.Month()-1], t.Year())
	}
	return fmt.Sprintf("%s %d, %d", shortMonths[models.LanguageEN][t.Month()-1], t.Day(), t.Year())
}

// CurrentDate returns today's ISO date.
func CurrentDate() string { return time.Now().Format("2006-01-02") }

// DefaultDueDate returns the ISO date 30 days out.
func DefaultDueDate() string { return time.Now().AddDate(0, 0, 30).Format("2006-01-02") }
