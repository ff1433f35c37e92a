package rbac

import (
	"fmt"

	"github.com/meridian-admin/meridian/internal/catalog"
)

// Summary classifications for the permission-matrix view.
const (
	SummaryNoAccess   = "No access"
	SummaryViewOnly   = "View only"
	SummaryFullAccess = "Full access"
)

// Authorize decides whether the actor may perform actionID on resourceID.
// Pure and total: any syntactically valid pair yields a boolean, and unknown
// identifiers are simply never granted. No wildcard, no inheritance: only an
// explicitly listed action passes. Inactive admins and inactive roles grant
// nothing regardless of grants.
func Authorize(actor Actor, role RoleSnapshot, resourceID, actionID string) bool {
	if !actor.IsActive || !role.IsActive {
		return false
	}
	for _, grant := range role.Grants {
		if grant.Resource == resourceID {
			return grant.Allows(actionID)
		}
	}
	return false
}

// Summarize classifies a role's access to one resource for display.
func Summarize(role RoleSnapshot, resourceID string) string {
	total := catalog.TotalActions(resourceID)
	for _, grant := range role.Grants {
		if grant.Resource != resourceID {
			continue
		}
		k := len(grant.Actions)
		switch {
		case k == 0:
			return SummaryNoAccess
		case k == total:
			return SummaryFullAccess
		case k == 1 && grant.Actions[0] == catalog.ActionView:
			return SummaryViewOnly
		default:
			return fmt.Sprintf("Partial: %d of %d", k, total)
		}
	}
	return SummaryNoAccess
}
