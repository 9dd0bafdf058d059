package middleware

import (
	"net/http"

	"kabaranime.id/portal/internal/i18n"
)

// LangCookie remembers an explicit ?hl= choice for visitors without stored preferences.
const LangCookie = "hl"

// VaryLocale sets Vary header for Accept-Language on dynamic responses
func VaryLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Language")
		w.Header().Add("Vary", "Cookie")
		next.ServeHTTP(w, r)
	})
}

// Locale negotiates a language for visitors with no stored preference:
// query hl, then the hl cookie, then Accept-Language, then the bundle fallback.
func Locale(bundle *i18n.Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := bundle.Fallback()
			if q, ok := i18n.ParseLanguage(r.URL.Query().Get("hl")); ok {
				lang = q
				http.SetCookie(w, &http.Cookie{Name: LangCookie, Value: q.String(), Path: "/", SameSite: http.SameSiteLaxMode})
			} else if c, err := r.Cookie(LangCookie); err == nil {
				if l, ok := i18n.ParseLanguage(c.Value); ok {
					lang = l
				} else {
					lang = bundle.Resolve(r.Header.Get("Accept-Language"))
				}
			} else {
				lang = bundle.Resolve(r.Header.Get("Accept-Language"))
			}
			next.ServeHTTP(w, r.WithContext(WithLanguage(r.Context(), lang)))
		})
	}
}

// Lang returns the negotiated language, or the default.
func Lang(r *http.Request) i18n.Language {
	if l, ok := r.Context().Value(ctxKeyLang).(i18n.Language); ok && l.Valid() {
		return l
	}
	return i18n.Default
}

// HasLangOverride reports whether the request carries a valid ?hl= value.
func HasLangOverride(r *http.Request) (i18n.Language, bool) {
	return i18n.ParseLanguage(r.URL.Query().Get("hl"))
}
