package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskUserPurge hard-deletes soft-deleted users past their retention window.
	TaskUserPurge = "users:purge"
	// TaskAuditTrim removes audit log entries older than the retention window.
	TaskAuditTrim = "audit:trim"
)

// UserPurgePayload configures a purge sweep. Empty means "purge everything due".
type UserPurgePayload struct{}

// AuditTrimPayload configures an audit trim run.
type AuditTrimPayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewUserPurgeTask constructs an Asynq task for the purge sweeper.
func NewUserPurgeTask() (*asynq.Task, error) {
	data, err := json.Marshal(UserPurgePayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskUserPurge, data), nil
}

// NewAuditTrimTask constructs an Asynq task for trimming the audit log.
func NewAuditTrimTask(payload AuditTrimPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditTrim, data), nil
}
