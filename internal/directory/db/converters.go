package db

import (
	rows "github.com/gartstein/directory/internal/directory/db/models"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/gartstein/directory/internal/directory/permissions"
)

// toRow converts a domain Employee into its storage row.
func toRow(emp *models.Employee) *rows.Employee {
	perms := make(map[string]string, len(emp.Permissions))
	for c, l := range emp.Permissions {
		perms[string(c)] = string(l)
	}
	return &rows.Employee{
		ID:            emp.ID,
		EmployeeID:    emp.EmployeeID,
		PasswordHash:  emp.PasswordHash,
		AccountStatus: string(emp.AccountStatus),
		Personal: rows.Personal{
			FirstName:     emp.PersonalInfo.FirstName,
			LastName:      emp.PersonalInfo.LastName,
			DateOfBirth:   emp.PersonalInfo.DateOfBirth,
			Email:         emp.PersonalInfo.Email,
			ContactNumber: emp.PersonalInfo.ContactNumber,
			Address:       emp.PersonalInfo.Address,
		},
		Company: rows.Company{
			Designation:    emp.CompanyInfo.Designation,
			Department:     emp.CompanyInfo.Department,
			DepartmentID:   emp.CompanyInfo.DepartmentID,
			JoiningDate:    emp.CompanyInfo.JoiningDate,
			EmploymentType: string(emp.CompanyInfo.EmploymentType),
		},
		Bank: rows.Bank{
			BankName:      emp.BankDetails.BankName,
			AccountNumber: emp.BankDetails.AccountNumber,
			IFSCCode:      emp.BankDetails.IFSCCode,
			PANNumber:     emp.BankDetails.PANNumber,
		},
		Permissions: perms,
		CreatedAt:   emp.CreatedAt,
		UpdatedAt:   emp.UpdatedAt,
	}
}

// fromRow converts a storage row into a domain Employee. Stored permission
// maps are normalized to the current capability set.
func fromRow(r *rows.Employee) *models.Employee {
	perms := make(permissions.Map, len(r.Permissions))
	for c, l := range r.Permissions {
		perms[permissions.Capability(c)] = permissions.Level(l)
	}
	return &models.Employee{
		ID:            r.ID,
		EmployeeID:    r.EmployeeID,
		PasswordHash:  r.PasswordHash,
		AccountStatus: models.AccountStatus(r.AccountStatus),
		PersonalInfo: models.PersonalInfo{
			FirstName:     r.Personal.FirstName,
			LastName:      r.Personal.LastName,
			DateOfBirth:   r.Personal.DateOfBirth,
			Email:         r.Personal.Email,
			ContactNumber: r.Personal.ContactNumber,
			Address:       r.Personal.Address,
		},
		CompanyInfo: models.CompanyInfo{
			Designation:    r.Company.Designation,
			Department:     r.Company.Department,
			DepartmentID:   r.Company.DepartmentID,
			JoiningDate:    r.Company.JoiningDate,
			EmploymentType: models.EmploymentType(r.Company.EmploymentType),
		},
		BankDetails: models.BankDetails{
			BankName:      r.Bank.BankName,
			AccountNumber: r.Bank.AccountNumber,
			IFSCCode:      r.Bank.IFSCCode,
			PANNumber:     r.Bank.PANNumber,
		},
		Permissions: perms.Normalize(),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
