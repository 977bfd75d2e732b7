package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleRequester  UserRole = "REQUESTER"
	RoleOperator   UserRole = "OPERATOR"
)

// Privileged reports whether the role may approve and force transitions.
func (r UserRole) Privileged() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleRequester, RoleOperator:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	OperatorID   *int64     `db:"operator_id" json:"operator_id,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// ActorContext identifies who is performing an operation. Engines never read the caller from ambient state.
type ActorContext struct {
	ID         string   `json:"id"`
	Role       UserRole `json:"role"`
	OperatorID *int64   `json:"operator_id,omitempty"`
}

// Privileged reports whether the actor holds an approving role.
func (a ActorContext) Privileged() bool {
	return a.Role.Privileged()
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
