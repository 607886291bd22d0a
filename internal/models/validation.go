package models

import (
	"strings"
)

// FieldError ties a validation failure to the input field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e FieldError) Unwrap() error { return e.Err }

// ValidationErrors collects every field failure of one input so callers see
// them all at once. errors.Is matches any collected cause.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// Add records err against field. nil is ignored.
func (v *ValidationErrors) Add(field string, err error) {
	if err != nil {
		v.Errors = append(v.Errors, FieldError{Field: field, Err: err})
	}
}

// Err returns v as an error, or nil when nothing was recorded.
func (v *ValidationErrors) Err() error {
	if v == nil || len(v.Errors) == 0 {
		return nil
	}
	return v
}

func (v *ValidationErrors) Error() string {
	if v == nil || len(v.Errors) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

func (v *ValidationErrors) Unwrap() []error {
	if v == nil {
		return nil
	}
	errs := make([]error, len(v.Errors))
	for i, e := range v.Errors {
		errs[i] = e
	}
	return errs
}

// Fields maps each field to its first failure message.
func (v *ValidationErrors) Fields() map[string]string {
	if v == nil || len(v.Errors) == 0 {
		return nil
	}
	fields := make(map[string]string, len(v.Errors))
	for _, e := range v.Errors {
		if _, seen := fields[e.Field]; !seen {
			fields[e.Field] = e.Err.Error()
		}
	}
	return fields
}
