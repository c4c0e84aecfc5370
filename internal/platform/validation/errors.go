// Package validation collects field-keyed form errors that handlers render
// inline next to the offending input.
package validation

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"
)

// Errors maps a form field to its messages. The empty key holds form-wide
// messages. A non-empty Errors value is returned as an error by services.
type Errors map[string][]string

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Get returns the first message for field, or "".
func (e Errors) Get(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

func (e Errors) Any() bool {
	return len(e) > 0
}

// Err returns e as an error when it holds messages and nil otherwise.
func (e Errors) Err() error {
	if !e.Any() {
		return nil
	}
	return e
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		name := f
		if name == "" {
			name = "form"
		}
		parts = append(parts, name+": "+strings.Join(e[f], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Required records "This field is required." when value is blank.
func (e Errors) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		e.Add(field, "This field is required.")
	}
}

// MaxLen records a length error when value exceeds max runes.
func (e Errors) MaxLen(field, value string, max int) {
	if n := utf8.RuneCountInString(value); n > max {
		e.Add(field, fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", max, n))
	}
}

// Email records an error when value is present and not a bare address.
func (e Errors) Email(field, value string) {
	if value == "" {
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		e.Add(field, "Enter a valid email address.")
	}
}
