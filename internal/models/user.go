package models

import "time"

// UserRole tags an identity with its administrative function.
type UserRole string

const (
	RoleAdmin           UserRole = "admin"
	RoleDistrictOfficer UserRole = "district_officer"
	RoleFieldOfficer    UserRole = "field_officer"
	RoleVerifier        UserRole = "verifier"
	RoleViewer          UserRole = "viewer"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleDistrictOfficer, RoleFieldOfficer, RoleVerifier, RoleViewer:
		return true
	}
	return false
}

// User is a role-tagged identity. Roles are descriptive only; no
// authorization is enforced against them.
type User struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      UserRole  `db:"role" json:"role"`
	District  *string   `db:"district" json:"district,omitempty"`
	State     *string   `db:"state" json:"state,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
