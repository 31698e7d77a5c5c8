package models

import (
	"errors"
	"fmt"
	"strings"
)

// Domain error kinds surfaced by the core services. The outer layer maps
// them to transport codes; the core only guarantees the kind is preserved.
// Use errors.Is against the sentinels to classify and errors.As against the
// carrier types to extract diagnostics.
var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrOwnershipViolation     = errors.New("ownership violation")
	ErrDepartmentMismatch     = errors.New("department mismatch")
	ErrResolutionProofRequired = errors.New("resolution proof required")
	ErrSignoffRequired        = errors.New("citizen signoff required")
	ErrInvalidDisputeState    = errors.New("invalid dispute state")
	ErrDuplicateDispute       = errors.New("duplicate dispute")
	ErrConflictingUpdate      = errors.New("conflicting update")
	ErrTransientIO            = errors.New("transient i/o failure")
	ErrFilingRateLimited      = errors.New("filing rate limit reached")
	ErrDuplicateFiling        = errors.New("duplicate filing")
)

// InvalidTransitionError carries the rejected edge and the legal targets
// from the current status.
type InvalidTransitionError struct {
	From    ComplaintStatus
	To      ComplaintStatus
	Allowed []ComplaintStatus
}

func (e *InvalidTransitionError) Error() string {
	targets := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		targets[i] = string(s)
	}
	if len(targets) == 0 {
		return fmt.Sprintf("invalid transition %s -> %s: %s is terminal", e.From, e.To, e.From)
	}
	return fmt.Sprintf("invalid transition %s -> %s: legal targets from %s are [%s]",
		e.From, e.To, e.From, strings.Join(targets, ", "))
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// UnauthorizedError carries the caller's role and the roles permitted for
// the attempted transition.
type UnauthorizedError struct {
	Role    Role
	From    ComplaintStatus
	To      ComplaintStatus
	Allowed []Role
}

func (e *UnauthorizedError) Error() string {
	roles := make([]string, len(e.Allowed))
	for i, r := range e.Allowed {
		roles[i] = string(r)
	}
	return fmt.Sprintf("role %s may not perform %s -> %s: allowed roles are [%s]",
		e.Role, e.From, e.To, strings.Join(roles, ", "))
}

func (e *UnauthorizedError) Unwrap() error { return ErrUnauthorized }

// OwnershipViolationError reports a citizen acting on someone else's complaint.
type OwnershipViolationError struct {
	ComplaintID int64
	CallerID    int64
}

func (e *OwnershipViolationError) Error() string {
	return fmt.Sprintf("user %d is not the owner of complaint %d", e.CallerID, e.ComplaintID)
}

func (e *OwnershipViolationError) Unwrap() error { return ErrOwnershipViolation }

// DepartmentMismatchError reports an operational role acting outside its department.
type DepartmentMismatchError struct {
	ComplaintID        int64
	CallerDepartment   *int64
	ComplaintDepartment *int64
}

func (e *DepartmentMismatchError) Error() string {
	return fmt.Sprintf("caller department %s does not match complaint %d department %s",
		formatNullableID(e.CallerDepartment), e.ComplaintID, formatNullableID(e.ComplaintDepartment))
}

func (e *DepartmentMismatchError) Unwrap() error { return ErrDepartmentMismatch }

func formatNullableID(id *int64) string {
	if id == nil {
		return "<none>"
	}
	return fmt.Sprintf("%d", *id)
}
