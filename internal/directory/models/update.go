package models

// EmployeeUpdate represents the fields that can be updated for an Employee.
// Pointer types are used to allow partial updates; a nil section or field
// leaves the stored value untouched.
type EmployeeUpdate struct {
	// EmployeeID selects the record to update.
	EmployeeID    string              `json:"-"`
	AccountStatus *AccountStatus      `json:"accountStatus,omitempty" validate:"omitempty,oneof=active inactive"`
	PersonalInfo  *PersonalInfoUpdate `json:"personalInfo,omitempty"`
	CompanyInfo   *CompanyInfoUpdate  `json:"companyInfo,omitempty"`
	BankDetails   *BankDetailsUpdate  `json:"bankDetails,omitempty"`
}

// PersonalInfoUpdate is a sparse PersonalInfo.
type PersonalInfoUpdate struct {
	FirstName     *string `json:"firstName,omitempty"`
	LastName      *string `json:"lastName,omitempty"`
	DateOfBirth   *string `json:"dateOfBirth,omitempty"`
	Email         *string `json:"email,omitempty"`
	ContactNumber *string `json:"contactNumber,omitempty"`
	Address       *string `json:"address,omitempty"`
}

// CompanyInfoUpdate is a sparse CompanyInfo.
type CompanyInfoUpdate struct {
	Designation    *string         `json:"designation,omitempty"`
	Department     *string         `json:"department,omitempty"`
	DepartmentID   *string         `json:"departmentId,omitempty"`
	JoiningDate    *string         `json:"joiningDate,omitempty"`
	EmploymentType *EmploymentType `json:"employmentType,omitempty"`
}

// BankDetailsUpdate is a sparse BankDetails.
type BankDetailsUpdate struct {
	BankName      *string `json:"bankName,omitempty"`
	AccountNumber *string `json:"accountNumber,omitempty"`
	IFSCCode      *string `json:"ifscCode,omitempty"`
	PANNumber     *string `json:"panNumber,omitempty"`
}

// Empty reports whether the update touches no field.
func (u *EmployeeUpdate) Empty() bool {
	return u.AccountStatus == nil && u.PersonalInfo == nil && u.CompanyInfo == nil && u.BankDetails == nil
}

// TouchesCompany reports whether the update changes any placement field.
func (u *EmployeeUpdate) TouchesCompany() bool {
	return u.CompanyInfo != nil
}

// ApplyTo merges the update into emp in place.
func (u *EmployeeUpdate) ApplyTo(emp *Employee) {
	if u.AccountStatus != nil {
		emp.AccountStatus = *u.AccountStatus
	}
	if p := u.PersonalInfo; p != nil {
		set(&emp.PersonalInfo.FirstName, p.FirstName)
		set(&emp.PersonalInfo.LastName, p.LastName)
		set(&emp.PersonalInfo.DateOfBirth, p.DateOfBirth)
		set(&emp.PersonalInfo.Email, p.Email)
		set(&emp.PersonalInfo.ContactNumber, p.ContactNumber)
		set(&emp.PersonalInfo.Address, p.Address)
	}
	if c := u.CompanyInfo; c != nil {
		set(&emp.CompanyInfo.Designation, c.Designation)
		set(&emp.CompanyInfo.Department, c.Department)
		set(&emp.CompanyInfo.DepartmentID, c.DepartmentID)
		set(&emp.CompanyInfo.JoiningDate, c.JoiningDate)
		set(&emp.CompanyInfo.EmploymentType, c.EmploymentType)
	}
	if b := u.BankDetails; b != nil {
		set(&emp.BankDetails.BankName, b.BankName)
		set(&emp.BankDetails.AccountNumber, b.AccountNumber)
		set(&emp.BankDetails.IFSCCode, b.IFSCCode)
		set(&emp.BankDetails.PANNumber, b.PANNumber)
	}
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
