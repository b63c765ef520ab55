package editor

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// CleanText strips markup from admin input and turns the two-character
// sequence `\n` into a real line break. Entities escaped by the sanitizer are
// decoded again because templates escape on output.
func CleanText(value string) string {
	value = strings.ReplaceAll(value, `\n`, "\n")
	value = strings.ReplaceAll(value, "\r\n", "\n")
	return html.UnescapeString(strictPolicy.Sanitize(value))
}

// EscapeNewlines is the inverse used when filling single-line inputs.
func EscapeNewlines(value string) string {
	return strings.ReplaceAll(value, "\n", `\n`)
}
