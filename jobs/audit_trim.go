package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-admin/meridian/internal/jobs"
)

// AuditTrimmer is the slice of the audit service the trim job needs.
type AuditTrimmer interface {
	Trim(ctx context.Context, retention time.Duration) (int64, error)
}

// AuditTrimJob removes audit log entries older than the retention window.
type AuditTrimJob struct {
	Audit   AuditTrimmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics

	// DefaultRetentionDays applies when the payload leaves retention unset.
	DefaultRetentionDays int
}

// NewAuditTrimJob initialises the trim handler.
func NewAuditTrimJob(audit AuditTrimmer, logger *slog.Logger, metrics *jobmetrics.Metrics, defaultRetentionDays int) *AuditTrimJob {
	return &AuditTrimJob{Audit: audit, Logger: logger, Metrics: metrics, DefaultRetentionDays: defaultRetentionDays}
}

// Handle executes one trim run.
func (j *AuditTrimJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Audit == nil {
		return errors.New("audit trim: handler not configured")
	}
	var payload AuditTrimPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	days := payload.RetentionDays
	if days <= 0 {
		days = j.DefaultRetentionDays
	}
	if days <= 0 {
		days = 365
	}

	tracker := j.metrics().Track(TaskAuditTrim)
	trimmed, err := j.Audit.Trim(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		j.logger().Error("audit trim failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger().Info("audit trim completed",
		slog.Int("retention_days", days),
		slog.Int64("trimmed", trimmed),
	)
	return tracker.End(nil)
}

func (j *AuditTrimJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *AuditTrimJob) metrics() *jobmetrics.Metrics {
	return j.Metrics
}
