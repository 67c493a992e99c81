package middleware

import (
	"context"
	"net/http"

	"invoice-backend/internal/i18n"
	"invoice-backend/internal/models"
)

type ctxKey string

const ctxLang ctxKey = "pref_lang"

// Prefs extracts the UI language preference (cookie > query > header) and
// stores it in context. Query-provided values persist in a cookie for ~30
// days. This is a display preference only; it never touches an invoice's own
// language or currency fields.
func Prefs(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := ""
		if c, err := r.Cookie("lang"); err == nil && c.Value != "" {
			lang = c.Value
		}
		if ql := r.URL.Query().Get("lang"); ql != "" {
			lang = ql
			http.SetCookie(w, &http.Cookie{Name: "lang", Value: lang, Path: "/", MaxAge: 86400 * 30})
		}
		if lang != models.LanguageID && lang != models.LanguageEN {
			lang = i18n.DetectLanguage(r.Header.Get("Accept-Language"))
		}
		ctx := context.WithValue(r.Context(), ctxLang, lang)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LangFrom returns the language preference from context or the default.
func LangFrom(r *http.Request) string {
	if v, ok := r.Context().Value(ctxLang).(string); ok && v != "" {
		return v
	}
	return models.LanguageEN
}
