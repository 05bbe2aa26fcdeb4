package models

import "time"

// Role is the actor class assigned to a portal user.
type Role string

const (
	RolePropertyManager Role = "PROPERTY_MANAGER"

	RoleContractor              Role = "CONTRACTOR"
	RoleContractorJuniorManager Role = "CONTRACTOR_JUNIOR_MANAGER"
	RoleContractorSeniorManager Role = "CONTRACTOR_SENIOR_MANAGER"

	RoleAdmin       Role = "ADMIN"
	RoleAdminJunior Role = "ADMIN_JUNIOR"
	RoleAdminSenior Role = "ADMIN_SENIOR"
)

// IsContractor reports whether the role is any contractor variant.
func (r Role) IsContractor() bool {
	switch r {
	case RoleContractor, RoleContractorJuniorManager, RoleContractorSeniorManager:
		return true
	}
	return false
}

// IsAdmin reports whether the role is any admin variant.
func (r Role) IsAdmin() bool {
	switch r {
	case RoleAdmin, RoleAdminJunior, RoleAdminSenior:
		return true
	}
	return false
}

// User is a portal account. Contractors carry a company affiliation string;
// there is no separate contractor directory record (the User table is the
// single source of truth, external-only contacts exist solely as invite
// tokens bound to an email).
type User struct {
	ID                 uint   `gorm:"primaryKey"`
	Email              string `gorm:"size:255;uniqueIndex;not null"`
	Name               string `gorm:"size:255"`
	Role               Role   `gorm:"size:50;not null;index"`
	CompanyAffiliation string `gorm:"size:255;index"`
	PortalActive       bool   `gorm:"not null;default:true"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Tenant is an entry in a property manager's tenant roster. Tenant-linked
// records (invoices whose counterpart email is on the roster) become visible
// to the managing PM.
type Tenant struct {
	ID          uint   `gorm:"primaryKey"`
	ManagerID   uint   `gorm:"index;not null"`
	Email       string `gorm:"size:255;index;not null"`
	Name        string `gorm:"size:255"`
	BuildingRef string `gorm:"size:100"`
	CreatedAt   time.Time
}
