package roles

import (
	"time"

	"github.com/meridian-admin/meridian/internal/rbac"
)

// DefaultRoleName is the system role seeded with every catalog grant.
const DefaultRoleName = "Super Admin"

// Role represents a named bundle of permission grants.
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Grants      []rbac.Grant `json:"grants"`
	IsActive    bool         `json:"is_active"`
	IsDefault   bool         `json:"is_default"`
	Version     int64        `json:"version"`
	CreatedBy   int64        `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Snapshot converts the role into the slice the decision function consumes.
func (r Role) Snapshot() rbac.RoleSnapshot {
	return rbac.RoleSnapshot{
		ID:       r.ID,
		Name:     r.Name,
		IsActive: r.IsActive,
		Grants:   r.Grants,
	}
}
