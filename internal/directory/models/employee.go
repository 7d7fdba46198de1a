// Package models defines the domain model of the employee directory: the
// Employee record, its sections, the create input and the sparse update
// patches applied to it.
package models

import (
	"time"

	"github.com/gartstein/directory/internal/directory/permissions"
	"github.com/google/uuid"
)

// AccountStatus is the login state of an employee account.
type AccountStatus string

const (
	StatusActive   AccountStatus = "active"
	StatusInactive AccountStatus = "inactive"
)

// EmploymentType is the employment category of an employee.
type EmploymentType string

const (
	Permanent EmploymentType = "Permanent"
	Contract  EmploymentType = "Contract"
	Intern    EmploymentType = "Intern"
)

// EmploymentTypes returns the accepted employment types in display order.
func EmploymentTypes() []EmploymentType {
	return []EmploymentType{Permanent, Contract, Intern}
}

// DateLayout is the wire format of calendar dates.
const DateLayout = time.DateOnly

// PersonalInfo holds contact and identity details.
type PersonalInfo struct {
	FirstName     string `json:"firstName" validate:"required,max=100"`
	LastName      string `json:"lastName" validate:"required,max=100"`
	DateOfBirth   string `json:"dateOfBirth,omitempty" validate:"omitempty,date"`
	Email         string `json:"email" validate:"required,email,max=254"`
	ContactNumber string `json:"contactNumber" validate:"required,max=32"`
	Address       string `json:"address,omitempty" validate:"max=500"`
}

// CompanyInfo holds the employee's placement in the organisation.
// Department and DepartmentID must both be allowed for Designation.
type CompanyInfo struct {
	Designation    string         `json:"designation" validate:"required"`
	Department     string         `json:"department" validate:"required"`
	DepartmentID   string         `json:"departmentId" validate:"required"`
	JoiningDate    string         `json:"joiningDate,omitempty" validate:"omitempty,date"`
	EmploymentType EmploymentType `json:"employmentType" validate:"required,oneof=Permanent Contract Intern"`
}

// BankDetails are stored as given.
type BankDetails struct {
	BankName      string `json:"bankName,omitempty" validate:"max=100"`
	AccountNumber string `json:"accountNumber,omitempty" validate:"max=34"`
	IFSCCode      string `json:"ifscCode,omitempty" validate:"max=20"`
	PANNumber     string `json:"panNumber,omitempty" validate:"max=20"`
}

// Employee is a directory record.
type Employee struct {
	// ID is the storage primary key.
	ID uuid.UUID `json:"id"`
	// EmployeeID is the sequential business identifier, e.g. EMP0001.
	EmployeeID string `json:"employeeId"`
	// Password carries the plaintext default password on the value returned
	// by create only. It is never stored.
	Password string `json:"password,omitempty"`
	// PasswordHash is the stored bcrypt hash.
	PasswordHash  string          `json:"-"`
	AccountStatus AccountStatus   `json:"accountStatus"`
	PersonalInfo  PersonalInfo    `json:"personalInfo"`
	CompanyInfo   CompanyInfo     `json:"companyInfo"`
	BankDetails   BankDetails     `json:"bankDetails"`
	Permissions   permissions.Map `json:"permissions"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Redacted returns a copy of the employee without any credential material.
func (emp *Employee) Redacted() *Employee {
	c := *emp
	c.Password = ""
	c.PasswordHash = ""
	c.Permissions = emp.Permissions.Clone()
	return &c
}

// NewEmployee is the input to employee creation. Identifier, password,
// status and permissions are assigned by the directory.
type NewEmployee struct {
	PersonalInfo PersonalInfo `json:"personalInfo"`
	CompanyInfo  CompanyInfo  `json:"companyInfo"`
	BankDetails  BankDetails  `json:"bankDetails"`
}
