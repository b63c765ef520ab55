package i18n

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// LangParam is the query parameter used to select a language.
	LangParam = "hl"
	// LangCookieName stores the visitor's language preference.
	LangCookieName = "hl"
)

// Resolve determines the language for a request. Precedence is the hl query
// parameter, then the hl cookie, then Accept-Language, then fallback. The bool
// reports whether the choice came from the query and should be persisted.
func Resolve(r *http.Request, fallback Language) (Language, bool) {
	if r == nil {
		return fallback, false
	}
	if v := strings.TrimSpace(r.URL.Query().Get(LangParam)); v != "" {
		if lang, ok := Parse(v); ok {
			return lang, true
		}
	}
	if c, err := r.Cookie(LangCookieName); err == nil {
		if lang, ok := Parse(c.Value); ok {
			return lang, false
		}
	}
	return Match(r.Header.Get("Accept-Language"), fallback), false
}

// SetLanguageCookie persists the selected language on the response.
func SetLanguageCookie(w http.ResponseWriter, lang Language) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    string(lang),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

// Option is a language switcher entry.
type Option struct {
	Code   Language
	Label  string
	URL    string
	Active bool
}

var nativeLabels = map[Language]string{
	French:  "Français",
	English: "English",
	Arabic:  "العربية",
}

// Options returns switcher entries pointing at path with hl set.
func Options(active Language, path, rawQuery string) []Option {
	out := make([]Option, 0, len(nativeLabels))
	for _, lang := range Supported() {
		out = append(out, Option{
			Code:   lang,
			Label:  nativeLabels[lang],
			URL:    LanguageURL(path, rawQuery, lang),
			Active: lang == active,
		})
	}
	return out
}

// LanguageURL returns path with the hl parameter replaced.
func LanguageURL(path, rawQuery string, lang Language) string {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "/"
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		query = url.Values{}
	}
	query.Set(LangParam, string(lang))
	return (&url.URL{Path: path, RawQuery: query.Encode()}).String()
}
