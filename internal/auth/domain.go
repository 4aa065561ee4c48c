package auth

import (
	"strings"
	"time"
)

// Role groups backend roles by the dashboard they land on.
type Role string

const (
	RoleStaff    Role = "staff"
	RoleApprover Role = "approver"
	RoleFinance  Role = "finance"
)

// ResolveRole maps a backend role name onto a dashboard role. Unknown roles
// are treated as staff.
func ResolveRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "finance":
		return RoleFinance
	case "approver1", "approver2":
		return RoleApprover
	default:
		return RoleStaff
	}
}

// Dashboard is the API path of the role's landing dashboard.
func (r Role) Dashboard() string {
	switch r {
	case RoleFinance:
		return "/api/dashboard/finance"
	case RoleApprover:
		return "/api/dashboard/approver"
	default:
		return "/api/dashboard/staff"
	}
}

// User is the current-user profile returned by the backend.
type User struct {
	ID        string `json:"id,omitempty"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Name      string `json:"name,omitempty"`
	Role      string `json:"role,omitempty"`
}

// Session is the outcome of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      User
	Role      Role
}
