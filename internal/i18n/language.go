// Package i18n resolves the visitor language, derives text direction and
// formats locale-sensitive values for the three languages the site serves.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Language is one of the site languages.
type Language string

const (
	French  Language = "fr"
	English Language = "en"
	Arabic  Language = "ar"
)

// Default is used when nothing else selects a language.
const Default = French

var supportedTags = []language.Tag{language.French, language.English, language.Arabic}

var matcher = language.NewMatcher(supportedTags)

// Supported lists the site languages in display order.
func Supported() []Language {
	return []Language{French, English, Arabic}
}

// Tag returns the BCP 47 tag for the language.
func (l Language) Tag() language.Tag {
	switch l {
	case English:
		return language.English
	case Arabic:
		return language.Arabic
	default:
		return language.French
	}
}

func (l Language) String() string { return string(l) }

// Parse canonicalises a language code and reports whether its base language
// is one of the site languages. Regional variants collapse to their base, so
// "fr-FR" and "AR_ma" are accepted.
func Parse(code string) (Language, bool) {
	code = strings.TrimSpace(strings.ReplaceAll(code, "_", "-"))
	if code == "" {
		return "", false
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", false
	}
	base, _ := tag.Base()
	switch lang := Language(base.String()); lang {
	case French, English, Arabic:
		return lang, true
	}
	return "", false
}

// Normalize returns the parsed language or the fallback.
func Normalize(code string, fallback Language) Language {
	if lang, ok := Parse(code); ok {
		return lang
	}
	if _, ok := Parse(string(fallback)); ok {
		return fallback
	}
	return Default
}

// Direction returns the text direction for the language: "rtl" for Arabic,
// "ltr" otherwise.
func Direction(lang Language) string {
	if lang == Arabic {
		return "rtl"
	}
	return "ltr"
}

// Match picks the best site language for an Accept-Language header value.
func Match(acceptLanguage string, fallback Language) Language {
	acceptLanguage = strings.TrimSpace(acceptLanguage)
	if acceptLanguage == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return fallback
	}
	return Supported()[index]
}
