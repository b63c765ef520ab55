package testutil

import (
	"bytes"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTML parses the provided HTML payload into a goquery document for assertions.
func ParseHTML(t testing.TB, body []byte) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

// CSRFToken returns the token rendered into a hidden csrf_token input, or
// the csrf-token meta tag when no form carries one.
func CSRFToken(t testing.TB, body []byte) string {
	t.Helper()

	doc := ParseHTML(t, body)
	if v, ok := doc.Find(`input[name="csrf_token"]`).First().Attr("value"); ok && v != "" {
		return v
	}
	if v, ok := doc.Find(`meta[name="csrf-token"]`).Attr("content"); ok {
		return v
	}
	t.Fatalf("no csrf token in page")
	return ""
}
