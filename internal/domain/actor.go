package domain

import "strings"

// Role is the caller's authority inside the CRM.
type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
)

// ParseRole normalizes a role claim. Unknown values return false.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return r, true
	}
	return "", false
}

// CanResolveApprovals reports whether r may approve or reject pending conversions.
func (r Role) CanResolveApprovals() bool {
	return r == RoleManager || r == RoleAdmin
}

// Actor is the authenticated caller of a BFF operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	// Session is the upstream CRM session cookie forwarded on remote calls.
	Session string `json:"-"`
}

// ActorRef points at the employee a record is assigned to.
type ActorRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}
