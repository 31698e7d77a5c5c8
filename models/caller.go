package models

import "fmt"

// Role represents the role on whose behalf a core operation runs.
type Role string

const (
	RoleCitizen      Role = "CITIZEN"
	RoleStaff        Role = "STAFF"
	RoleDeptHead     Role = "DEPT_HEAD"
	RoleCommissioner Role = "COMMISSIONER"
	RoleAdmin        Role = "ADMIN"
	RoleSuperAdmin   Role = "SUPER_ADMIN"
	RoleSystem       Role = "SYSTEM"
)

// IsValid reports whether the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleCitizen, RoleStaff, RoleDeptHead, RoleCommissioner, RoleAdmin, RoleSuperAdmin, RoleSystem:
		return true
	}
	return false
}

// CallerContext carries the identity a core operation runs on behalf of.
// It is supplied by the external identity service at the boundary and
// passed explicitly to every core operation; it is never persisted.
// UserID is non-nil for every role except SYSTEM.
type CallerContext struct {
	UserID       *int64 `json:"user_id"`
	Role         Role   `json:"role"`
	DepartmentID *int64 `json:"department_id"`
}

// SystemCaller returns the caller context for automated actors
// (scheduler, auto-close, dispute-approved reopen).
func SystemCaller() CallerContext {
	return CallerContext{Role: RoleSystem}
}

// UserCaller returns a caller context for a human role without a department.
func UserCaller(userID int64, role Role) CallerContext {
	return CallerContext{UserID: &userID, Role: role}
}

// DeptCaller returns a caller context for an operational role scoped to a department.
func DeptCaller(userID int64, role Role, departmentID int64) CallerContext {
	return CallerContext{UserID: &userID, Role: role, DepartmentID: &departmentID}
}

// IsSystem reports whether the caller is an automated actor.
func (c CallerContext) IsSystem() bool {
	return c.Role == RoleSystem
}

// Validate checks the role/user_id pairing rule.
func (c CallerContext) Validate() error {
	if !c.Role.IsValid() {
		return fmt.Errorf("unknown role: %s", c.Role)
	}
	if c.Role == RoleSystem && c.UserID != nil {
		return fmt.Errorf("system caller must not carry a user_id")
	}
	if c.Role != RoleSystem && c.UserID == nil {
		return fmt.Errorf("role %s requires a user_id", c.Role)
	}
	return nil
}

// ActorType maps the caller to the audit actor taxonomy.
func (c CallerContext) ActorType() ActorType {
	if c.IsSystem() {
		return ActorSystem
	}
	return ActorUser
}

// ClassifierResult is the output of the external AI classifier handed to
// intake. The core never calls the classifier; it only consumes this value.
type ClassifierResult struct {
	CategoryID int64    `json:"category_id"`
	Priority   Priority `json:"priority"`
	Confidence float64  `json:"confidence"`
}
