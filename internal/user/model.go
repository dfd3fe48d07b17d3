package user

import (
	"time"
)

// Role is the closed set of QMS profiles. Capabilities hang off the role,
// never off free-form strings scattered through handlers.
type Role string

const (
	RoleAdministrator  Role = "administrator"
	RoleQualityManager Role = "quality_manager"
	RoleApprover       Role = "approver"
	RoleReader         Role = "reader"
	RoleAuditor        Role = "auditor"
)

// CanCreateDocuments reports whether the role may create controlled
// documents and non-conformities
func (r Role) CanCreateDocuments() bool {
	return r == RoleAdministrator || r == RoleQualityManager
}

// CanApproveDocuments reports whether the role may resolve approval flows
// and sign documents
func (r Role) CanApproveDocuments() bool {
	return r == RoleAdministrator || r == RoleQualityManager || r == RoleApprover
}

// CanAudit reports whether the role may schedule audits and record findings
func (r Role) CanAudit() bool {
	return r == RoleAdministrator || r == RoleQualityManager || r == RoleAuditor
}

// CanAdmin reports whether the role has administrative permissions
func (r Role) CanAdmin() bool {
	return r == RoleAdministrator
}

// User represents a user in the system
type User struct {
	ID           uint64
	Username     string `gorm:"uniqueIndex"`
	FullName     string
	Email        string `gorm:"uniqueIndex"`
	Password     string `gorm:"-"` // input only, not stored in db
	PasswordHash string
	Role         Role `gorm:"default:reader"`
	IsActive     bool `gorm:"default:true"`
	TokenVersion uint64
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SafeUser represents a user without sensitive information
type SafeUser struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ToSafeUser converts a User to a SafeUser
func (u *User) ToSafeUser() SafeUser {
	return SafeUser{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}
