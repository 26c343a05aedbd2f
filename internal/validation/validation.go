// Package validation checks request parameters for the analysis API.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxSymbolLength bounds ticker symbols.
const MaxSymbolLength = 20

// Tickers: letters, digits and the separators used by equities (BRK.B),
// indices (^GSPC), futures (GC=F) and crypto pairs (BTC-USD, BTC/USDT).
var symbolRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-=^/]*$|^\^[A-Z0-9.]+$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return "validation errors: " + strings.Join(msgs, "; ")
}

// Validator accumulates field errors for one request.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

// AddError adds a validation error
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

// Errors returns all validation errors
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Err returns the accumulated errors, or nil.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return v.errors
}

// Symbol normalizes a ticker (trimmed, upper-cased) and records an error
// when it is empty, too long or contains unsupported characters.
func (v *Validator) Symbol(field, raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case s == "":
		v.AddError(field, "is required")
	case len(s) > MaxSymbolLength:
		v.AddError(field, fmt.Sprintf("must be at most %d characters", MaxSymbolLength))
	case !symbolRegex.MatchString(s):
		v.AddError(field, "contains unsupported characters")
	}
	return s
}

// IntRange checks min <= value <= max.
func (v *Validator) IntRange(field string, value, min, max int) {
	if value < min || value > max {
		v.AddError(field, fmt.Sprintf("must be between %d and %d", min, max))
	}
}

// IntParam parses an optional integer query parameter. An empty raw value
// yields def.
func (v *Validator) IntParam(field, raw string, def, min, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		v.AddError(field, "must be an integer")
		return def
	}
	v.IntRange(field, n, min, max)
	return n
}

// OneOf validates that a value is one of the allowed values
func (v *Validator) OneOf(field, value string, allowed []string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
}
