// Package errors defines the error taxonomy shared by the directory layers.
// Callers match on the sentinels with errors.Is; wrapped errors carry context.
package errors

import (
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound      = fmt.Errorf("not found")
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrConflict      = fmt.Errorf("conflict")
	ErrConfiguration = fmt.Errorf("configuration error")
	// ErrDuplicateEmployeeID is returned by storage when the unique
	// employee_id index rejects an insert.
	ErrDuplicateEmployeeID = fmt.Errorf("duplicate employee id")
)

// FieldIssue names a single rejected field and why.
type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError reports one or more malformed fields. It matches
// ErrInvalidInput under errors.Is.
type ValidationError struct {
	Fields []FieldIssue
}

// NewValidationError builds a ValidationError with a single issue.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: []FieldIssue{{Field: field, Reason: reason}}}
}

// Add appends an issue.
func (v *ValidationError) Add(field, reason string) {
	v.Fields = append(v.Fields, FieldIssue{Field: field, Reason: reason})
}

// HasIssues reports whether any issue was recorded.
func (v *ValidationError) HasIssues() bool {
	return v != nil && len(v.Fields) > 0
}

// OrNil returns v as an error when it holds issues, nil otherwise.
func (v *ValidationError) OrNil() error {
	if !v.HasIssues() {
		return nil
	}
	sort.SliceStable(v.Fields, func(i, j int) bool {
		return v.Fields[i].Field < v.Fields[j].Field
	})
	return v
}

func (v *ValidationError) Error() string {
	parts := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(parts, "; "))
}

func (v *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
