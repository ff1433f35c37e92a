// Package rbac holds the authorization decision: given an admin, its role,
// and a requested resource/action pair, allow or deny. The decision is a
// boolean, never an error; callers turn a deny into an HTTP 403.
package rbac

// Grant pairs a catalog resource with the actions a role may perform on it.
type Grant struct {
	Resource string   `json:"resource"`
	Actions  []string `json:"actions"`
}

// Allows reports whether the grant lists the action explicitly.
func (g Grant) Allows(actionID string) bool {
	for _, a := range g.Actions {
		if a == actionID {
			return true
		}
	}
	return false
}

// RoleSnapshot is the slice of a role the decision function needs.
type RoleSnapshot struct {
	ID       int64
	Name     string
	IsActive bool
	Grants   []Grant
}

// Actor describes the acting admin account.
type Actor struct {
	ID       int64
	RoleID   int64
	IsActive bool
}
