package users

import "time"

// PurgeRetention is how long a soft-deleted account is kept before the
// sweeper removes it for good.
const PurgeRetention = 90 * 24 * time.Hour

// Status describes where a user account sits in its lifecycle.
type Status string

const (
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
	StatusSoftDeleted Status = "soft_deleted"
)

// User represents a managed end-user account. Deletion is soft: the row
// survives with deleted_at/purge_at set until the purge sweeper runs.
type User struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	IsActive  bool       `json:"is_active"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	PurgeAt   *time.Time `json:"purge_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Status derives the lifecycle state from the stored fields.
func (u User) Status() Status {
	if u.DeletedAt != nil {
		return StatusSoftDeleted
	}
	if !u.IsActive {
		return StatusInactive
	}
	return StatusActive
}
