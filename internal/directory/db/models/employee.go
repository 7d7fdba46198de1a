// Package models contains the storage rows of the directory,
// configured to work using GORM as the ORM.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Employee is the employees table. Records are hard-deleted, so no
// gorm.DeletedAt column is kept.
type Employee struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey"`
	EmployeeID    string            `gorm:"size:16;not null;uniqueIndex"`
	PasswordHash  string            `gorm:"size:72;not null"`
	AccountStatus string            `gorm:"size:16;not null;default:active"`
	Personal      Personal          `gorm:"embedded;embeddedPrefix:personal_"`
	Company       Company           `gorm:"embedded;embeddedPrefix:company_"`
	Bank          Bank              `gorm:"embedded;embeddedPrefix:bank_"`
	Permissions   map[string]string `gorm:"serializer:json"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Personal struct {
	FirstName     string `gorm:"size:100"`
	LastName      string `gorm:"size:100"`
	DateOfBirth   string `gorm:"size:10"`
	Email         string `gorm:"size:254"`
	ContactNumber string `gorm:"size:32"`
	Address       string `gorm:"size:500"`
}

type Company struct {
	Designation    string `gorm:"size:100;index"`
	Department     string `gorm:"size:100"`
	DepartmentID   string `gorm:"size:32"`
	JoiningDate    string `gorm:"size:10"`
	EmploymentType string `gorm:"size:16"`
}

type Bank struct {
	BankName      string `gorm:"size:100"`
	AccountNumber string `gorm:"size:34"`
	IFSCCode      string `gorm:"size:20"`
	PANNumber     string `gorm:"size:20"`
}

// IdempotencyKey records a client-supplied key for a create request. An
// empty EmployeeID marks a create that is still in flight. EmployeeUUID
// pins the exact record the key produced.
type IdempotencyKey struct {
	Key          string    `gorm:"column:idempotency_key;size:128;primaryKey"`
	EmployeeID   string    `gorm:"size:16"`
	EmployeeUUID uuid.UUID `gorm:"type:uuid"`
	CreatedAt    time.Time
	ExpiresAt    time.Time `gorm:"index"`
}

// EmployeeSequence holds the highest employee identifier ever issued.
// Deleting that employee does not lower it, so identifiers are never
// handed out twice.
type EmployeeSequence struct {
	Name   string `gorm:"size:32;primaryKey"`
	LastID string `gorm:"size:16;not null"`
}
