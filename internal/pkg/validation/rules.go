package validation

import (
	"regexp"
)

// Validation rule patterns
var (
	// Email validation pattern, case-insensitive
	EmailPattern = `(?i)^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`

	// Application numbers are short alphanumeric identifiers
	ApplicationNumberPattern = `^[A-Za-z0-9\-]{4,32}$`

	// Category codes are upper-case letters
	CategoryPattern = `^[A-Z]{2,8}$`

	// Department keys after normalization
	DepartmentPattern = `^[a-z0-9][a-z0-9 ._&()\-]{0,63}$`

	// Name validation min/max length
	NameMinLength = 2
	NameMaxLength = 100
)

// CompiledPatterns caches compiled regex patterns for better performance
var CompiledPatterns = struct {
	Email             *regexp.Regexp
	ApplicationNumber *regexp.Regexp
	Category          *regexp.Regexp
	Department        *regexp.Regexp
}{
	Email:             regexp.MustCompile(EmailPattern),
	ApplicationNumber: regexp.MustCompile(ApplicationNumberPattern),
	Category:          regexp.MustCompile(CategoryPattern),
	Department:        regexp.MustCompile(DepartmentPattern),
}

// StringValidation validates one string value
type StringValidation struct {
	Value    string
	MinLen   int
	MaxLen   int
	Required bool
	Pattern  *regexp.Regexp
}

// NewStringValidation creates a new string validation
func NewStringValidation(value string) *StringValidation {
	return &StringValidation{
		Value:    value,
		Required: true,
	}
}

// WithMinLength sets minimum length
func (v *StringValidation) WithMinLength(min int) *StringValidation {
	v.MinLen = min
	return v
}

// WithMaxLength sets maximum length
func (v *StringValidation) WithMaxLength(max int) *StringValidation {
	v.MaxLen = max
	return v
}

// WithPattern sets regex pattern
func (v *StringValidation) WithPattern(pattern *regexp.Regexp) *StringValidation {
	v.Pattern = pattern
	return v
}

// WithRequired sets if field is required
func (v *StringValidation) WithRequired(required bool) *StringValidation {
	v.Required = required
	return v
}

// Validate performs validation
func (v *StringValidation) Validate() bool {
	if v.Required && v.Value == "" {
		return false
	}

	// Skip other validations for empty optional values
	if !v.Required && v.Value == "" {
		return true
	}

	if v.MinLen > 0 && len(v.Value) < v.MinLen {
		return false
	}

	if v.MaxLen > 0 && len(v.Value) > v.MaxLen {
		return false
	}

	if v.Pattern != nil && !v.Pattern.MatchString(v.Value) {
		return false
	}

	return true
}

// NumericValidation validates an integer against inclusive bounds
type NumericValidation struct {
	Value  int
	Min    int
	Max    int
	HasMin bool
	HasMax bool
}

// NewNumericValidation creates a new numeric validation
func NewNumericValidation(value int) *NumericValidation {
	return &NumericValidation{Value: value}
}

// WithMin sets minimum value
func (v *NumericValidation) WithMin(min int) *NumericValidation {
	v.Min = min
	v.HasMin = true
	return v
}

// WithMax sets maximum value
func (v *NumericValidation) WithMax(max int) *NumericValidation {
	v.Max = max
	v.HasMax = true
	return v
}

// Validate performs validation
func (v *NumericValidation) Validate() bool {
	if v.HasMin && v.Value < v.Min {
		return false
	}
	if v.HasMax && v.Value > v.Max {
		return false
	}
	return true
}

// IsEmail reports whether s looks like an email address
func IsEmail(s string) bool {
	return NewStringValidation(s).WithPattern(CompiledPatterns.Email).Validate()
}

// IsApplicationNumber reports whether s is a well-formed application number
func IsApplicationNumber(s string) bool {
	return NewStringValidation(s).WithPattern(CompiledPatterns.ApplicationNumber).Validate()
}
