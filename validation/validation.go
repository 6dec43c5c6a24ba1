package validation

import (
	"net/mail"
	"strings"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func PositiveFloat(field string, val float64, v Violations) {
	if val <= 0 {
		v[field] = "must_be_positive"
	}
}

func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if val < minVal || val > maxVal {
		v[field] = "out_of_range"
	}
}

func Email(field, value string, v Violations) {
	if !IsEmail(value) {
		v[field] = "invalid_email"
	}
}

func OneOf(field, value string, allowed []string, v Violations) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v[field] = "not_an_option"
}

// IsEmail reports whether value parses as a bare RFC 5322 address.
// Display-name forms ("A <a@b.c>") are rejected on purpose.
func IsEmail(value string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	return addr.Address == strings.TrimSpace(value)
}
