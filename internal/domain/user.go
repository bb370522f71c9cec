package domain

import "time"

// Role is the application-level privilege of a profile.
type Role string

// Known roles, most privileged first.
const (
	RoleSuperAdmin  Role = "super_admin"
	RoleAdmin       Role = "admin"
	RoleOrgEmployee Role = "org_employee"
	RoleInstructor  Role = "instructor"
	RoleStudent     Role = "student"
)

// AllRoles lists every recognized role. Routes open to any signed-in user use it.
var AllRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleOrgEmployee, RoleInstructor, RoleStudent}

// Known reports whether r is one of the recognized roles.
func (r Role) Known() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleOrgEmployee, RoleInstructor, RoleStudent:
		return true
	}
	return false
}

// Profile is the application user record keyed by the session subject.
// ID and Role are the only fields authorization decisions may read.
type Profile struct {
	ID             string         `json:"id"              db:"id"`
	Role           Role           `json:"role"            db:"role"`
	OrganizationID *string        `json:"organization_id" db:"organization_id"`
	Email          string         `json:"email"           db:"email"`
	FirstName      string         `json:"first_name"      db:"first_name"`
	LastName       string         `json:"last_name"       db:"last_name"`
	Attributes     map[string]any `json:"attributes,omitempty"`
	CreatedAt      time.Time      `json:"created_at"      db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"      db:"updated_at"`
}

// User is the identity the auth provider reports after a credential exchange.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AuthResult holds the tokens and identity returned by a successful sign-in.
type AuthResult struct {
	TokenTriple
	User User `json:"user"`
}

// Registration carries the fields accepted by the register flow.
type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
