package middleware

import (
	"context"
	"net/http"

	"github.com/khbm0110/JUUUU/internal/i18n"
)

const langContextKey contextKey = "lang"

// Locale resolves the visitor's language from ?hl=, the hl cookie, or
// Accept-Language, persisting an explicit choice in the cookie.
func Locale(fallback i18n.Language) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang, persist := i18n.Resolve(r, fallback)
			if persist {
				i18n.SetLanguageCookie(w, lang)
			}
			w.Header().Set("Content-Language", string(lang))
			w.Header().Add("Vary", "Accept-Language")
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), langContextKey, lang)))
		})
	}
}

// Lang returns the request language, or i18n.Default outside Locale.
func Lang(ctx context.Context) i18n.Language {
	if lang, ok := ctx.Value(langContextKey).(i18n.Language); ok {
		return lang
	}
	return i18n.Default
}
