package domain

import "slices"

// Group names recognised by the lending engine. Group membership itself is
// resolved by the authentication subsystem.
const (
	GroupSuperAdmin     = "super_admin"
	GroupCenterAdmin    = "center_admin"
	GroupLibraryManager = "library_manager"
	GroupLibrarian      = "librarian"
)

// SystemActor identifies automated callers such as the overdue sweeper.
var SystemActor = Actor{Groups: []string{GroupSuperAdmin}, System: true}

// Actor is the authenticated caller of a lending operation.
type Actor struct {
	ID     UserID
	Groups []string
	System bool
}

func (a Actor) inAny(groups ...string) bool {
	for _, g := range groups {
		if slices.Contains(a.Groups, g) {
			return true
		}
	}
	return false
}

// CanApprove reports whether the actor may approve or reject pending loans.
func (a Actor) CanApprove() bool {
	return a.inAny(GroupSuperAdmin, GroupCenterAdmin, GroupLibraryManager)
}

// IsStaff reports whether the actor works the lending desk.
func (a Actor) IsStaff() bool {
	return a.CanApprove() || a.inAny(GroupLibrarian)
}

// Label is the identity recorded in processed_by and audit entries.
func (a Actor) Label() string {
	if a.System {
		return "system"
	}
	return a.ID.String()
}
