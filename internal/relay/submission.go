// Package relay validates public form submissions and forwards them to an
// email or form backend. Nothing is stored locally.
package relay

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"mime"
	"net/http"
	"net/mail"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// FormType distinguishes the two public forms.
type FormType string

const (
	FormContact     FormType = "contact"
	FormAppointment FormType = "appointment_request"
)

// ParseFormType maps the hidden formType field onto a FormType.
func ParseFormType(raw string) (FormType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(FormContact):
		return FormContact, true
	case string(FormAppointment), "appointment":
		return FormAppointment, true
	}
	return "", false
}

// Field error codes; UIs translate them.
const (
	CodeRequired     = "required"
	CodeInvalidEmail = "invalid_email"
)

const maxBodyBytes = 64 << 10

// Submission is one filled-in form.
type Submission struct {
	FormType          FormType `json:"formType"`
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	Phone             string   `json:"phone,omitempty"`
	Message           string   `json:"message,omitempty"`
	PreferredDateTime string   `json:"preferred,omitempty"`
}

// ValidationError lists invalid fields by name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("relay: invalid fields: %s", strings.Join(names, ", "))
}

// Validate checks the fields each form requires: contact needs name, email
// and message; appointment needs name, email and phone.
func (s Submission) Validate() error {
	fields := map[string]string{}
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			fields[name] = CodeRequired
		}
	}
	require("name", s.Name)
	require("email", s.Email)
	switch s.FormType {
	case FormAppointment:
		require("phone", s.Phone)
	default:
		require("message", s.Message)
	}
	if _, missing := fields["email"]; !missing {
		if _, err := mail.ParseAddress(strings.TrimSpace(s.Email)); err != nil {
			fields["email"] = CodeInvalidEmail
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

var strictPolicy = bluemonday.StrictPolicy()

// Sanitized returns a copy with markup stripped and whitespace trimmed.
func (s Submission) Sanitized() Submission {
	clean := func(v string) string {
		return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(v)))
	}
	s.Name = clean(s.Name)
	s.Email = clean(s.Email)
	s.Phone = clean(s.Phone)
	s.Message = clean(s.Message)
	s.PreferredDateTime = clean(s.PreferredDateTime)
	return s
}

// Decode reads a submission from a JSON or form-encoded request body. A
// non-empty formType overrides the one named in the body; with neither the
// submission is a contact message.
func Decode(r *http.Request, formType FormType) (Submission, error) {
	var sub Submission
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	if mediaType == "application/json" {
		var raw map[string]any
		if err := json.NewDecoder(body).Decode(&raw); err != nil && err != io.EOF {
			return Submission{}, fmt.Errorf("relay: decode json: %w", err)
		}
		get := func(keys ...string) string {
			for _, k := range keys {
				if v, ok := raw[k]; ok && v != nil {
					return strings.TrimSpace(fmt.Sprint(v))
				}
			}
			return ""
		}
		sub = Submission{
			FormType:          FormType(get("formType")),
			Name:              get("name"),
			Email:             get("email"),
			Phone:             get("phone"),
			Message:           get("message"),
			PreferredDateTime: get("preferred", "preferredDateTime"),
		}
	} else {
		r.Body = body
		if err := r.ParseForm(); err != nil {
			return Submission{}, fmt.Errorf("relay: parse form: %w", err)
		}
		get := func(keys ...string) string {
			for _, k := range keys {
				if v := strings.TrimSpace(r.PostFormValue(k)); v != "" {
					return v
				}
			}
			return ""
		}
		sub = Submission{
			FormType:          FormType(get("formType")),
			Name:              get("name"),
			Email:             get("email"),
			Phone:             get("phone"),
			Message:           get("message"),
			PreferredDateTime: get("preferred", "preferredDateTime"),
		}
	}

	switch ft, ok := ParseFormType(string(sub.FormType)); {
	case formType != "":
		sub.FormType = formType
	case ok:
		sub.FormType = ft
	default:
		sub.FormType = FormContact
	}
	return sub, nil
}
