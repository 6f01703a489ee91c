// Package validation checks form input before anything is sent upstream.
// Failures are reported per field; the first message recorded for a field wins.
package validation

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"
)

// PhoneMessage is reported for phone numbers outside the 254XXXXXXXXX format.
const PhoneMessage = "Phone number must be in format: 254XXXXXXXXX"

var phonePattern = regexp.MustCompile(`^254\d{9}$`)

// Errors maps a field name to its message. A non-empty Errors is the ValidationFailed error.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records msg for field unless the field already failed.
func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Err returns e as an error, or nil when no field failed.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// As extracts Errors from err.
func As(err error) (Errors, bool) {
	var ve Errors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Required fails field when value is blank.
func (e Errors) Required(field, value, msg string) {
	if strings.TrimSpace(value) == "" {
		e.Add(field, msg)
	}
}

// RequiredID fails field when id is not a positive identifier.
func (e Errors) RequiredID(field string, id int64, msg string) {
	if id <= 0 {
		e.Add(field, msg)
	}
}

// Phone fails field when value is present but not a 12-digit number starting with 254.
// Blank values are left to Required.
func (e Errors) Phone(field, value string) {
	if value == "" {
		return
	}
	if !phonePattern.MatchString(value) {
		e.Add(field, PhoneMessage)
	}
}

// Date fails field when value is present but not a YYYY-MM-DD date.
func (e Errors) Date(field, value, msg string) {
	if value == "" {
		return
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		e.Add(field, msg)
	}
}

// OneOf fails field when value is present but not in allowed.
func (e Errors) OneOf(field, value string, allowed []string, msg string) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if a == value {
			return
		}
	}
	e.Add(field, msg)
}
