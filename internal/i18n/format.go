package i18n

import (
	"strconv"
	"strings"

	"golang.org/x/text/message"
)

// Printer returns a message printer for the language.
func Printer(lang Language) *message.Printer {
	return message.NewPrinter(lang.Tag())
}

// FormatNumber renders numeric strings with the language's grouping rules
// ("1500" becomes "1 500" in French). Non-numeric input is returned as-is so
// values like "24/7" survive.
func FormatNumber(lang Language, raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return Printer(lang).Sprintf("%d", n)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return Printer(lang).Sprintf("%v", f)
	}
	return raw
}
