package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// KeyBinding records which employee an idempotency key created. The uuid
// pins the exact record, so a replay never resolves to anyone else.
type KeyBinding struct {
	EmployeeID string
	ID         uuid.UUID
}

// IsZero reports whether the key has not produced an employee yet.
func (b KeyBinding) IsZero() bool {
	return b.EmployeeID == ""
}

// Matches reports whether emp is the record the key created.
func (b KeyBinding) Matches(emp *Employee) bool {
	return emp != nil && emp.EmployeeID == b.EmployeeID && emp.ID == b.ID
}

// String encodes the binding as "EMP0001/<uuid>".
func (b KeyBinding) String() string {
	return b.EmployeeID + "/" + b.ID.String()
}

// ParseKeyBinding decodes the String form.
func ParseKeyBinding(s string) (KeyBinding, error) {
	employeeID, rawID, ok := strings.Cut(s, "/")
	if !ok || employeeID == "" {
		return KeyBinding{}, fmt.Errorf("malformed key binding %q", s)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return KeyBinding{}, fmt.Errorf("malformed key binding %q: %w", s, err)
	}
	return KeyBinding{EmployeeID: employeeID, ID: id}, nil
}
