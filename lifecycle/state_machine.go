// Package lifecycle encodes the complaint lifecycle: which status
// transitions are legal, which roles may perform each, and when an
// overdue complaint must escalate. Everything here is a pure function
// of its inputs; the package does no I/O.
package lifecycle

import (
	"samadhan/models"
)

type edge struct {
	from models.ComplaintStatus
	to   models.ComplaintStatus
}

// legalTransitions is the complaint state machine. FILED is the initial
// status; CLOSED and CANCELLED are terminal.
var legalTransitions = map[models.ComplaintStatus][]models.ComplaintStatus{
	models.StatusFiled: {
		models.StatusInProgress,
		models.StatusCancelled,
	},
	models.StatusInProgress: {
		models.StatusResolved,
		models.StatusCancelled,
	},
	models.StatusResolved: {
		models.StatusClosed,
		models.StatusCancelled,
		models.StatusInProgress, // dispute reopen, SYSTEM only
	},
	models.StatusClosed:    {},
	models.StatusCancelled: {},
}

// transitionRoles is the RBAC policy per legal transition. Routing and the
// dispute reopen are SYSTEM-only; cancellation belongs to the citizen and
// admins; closing belongs to the citizen or the auto-close sweep.
var transitionRoles = map[edge][]models.Role{
	{models.StatusFiled, models.StatusInProgress}:      {models.RoleSystem},
	{models.StatusInProgress, models.StatusResolved}:   {models.RoleStaff, models.RoleDeptHead},
	{models.StatusResolved, models.StatusClosed}:       {models.RoleCitizen, models.RoleSystem},
	{models.StatusFiled, models.StatusCancelled}:       {models.RoleCitizen, models.RoleAdmin},
	{models.StatusInProgress, models.StatusCancelled}:  {models.RoleCitizen, models.RoleAdmin},
	{models.StatusResolved, models.StatusCancelled}:    {models.RoleCitizen, models.RoleAdmin},
	{models.StatusResolved, models.StatusInProgress}:   {models.RoleSystem},
}

// IsLegal reports whether from -> to is an edge of the state machine.
func IsLegal(from, to models.ComplaintStatus) bool {
	for _, t := range legalTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// AllowedTargets returns the legal target statuses from the given status.
// Terminal statuses return an empty slice.
func AllowedTargets(from models.ComplaintStatus) []models.ComplaintStatus {
	targets := legalTransitions[from]
	out := make([]models.ComplaintStatus, len(targets))
	copy(out, targets)
	return out
}

// RoleAllowed reports whether the role may perform from -> to. False for
// edges that are not legal at all.
func RoleAllowed(from, to models.ComplaintStatus, role models.Role) bool {
	for _, r := range transitionRoles[edge{from, to}] {
		if r == role {
			return true
		}
	}
	return false
}

// AllowedRoles returns the roles permitted for from -> to, for diagnostics.
func AllowedRoles(from, to models.ComplaintStatus) []models.Role {
	roles := transitionRoles[edge{from, to}]
	out := make([]models.Role, len(roles))
	copy(out, roles)
	return out
}

// TargetsForRole intersects the legal targets from a status with the RBAC
// policy for the role.
func TargetsForRole(from models.ComplaintStatus, role models.Role) []models.ComplaintStatus {
	var out []models.ComplaintStatus
	for _, to := range legalTransitions[from] {
		if RoleAllowed(from, to, role) {
			out = append(out, to)
		}
	}
	return out
}
