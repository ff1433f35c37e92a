package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-admin/meridian/internal/jobs"
)

// UserPurger is the slice of the user service the sweeper needs.
type UserPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// UserPurgeJob permanently removes soft-deleted users whose retention window
// has elapsed.
type UserPurgeJob struct {
	Users   UserPurger
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewUserPurgeJob initialises the purge handler.
func NewUserPurgeJob(users UserPurger, logger *slog.Logger, metrics *jobmetrics.Metrics) *UserPurgeJob {
	return &UserPurgeJob{Users: users, Logger: logger, Metrics: metrics}
}

// Handle executes one purge sweep.
func (j *UserPurgeJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Users == nil {
		return errors.New("user purge: handler not configured")
	}

	tracker := j.metrics().Track(TaskUserPurge)
	start := time.Now()

	purged, err := j.Users.PurgeExpired(ctx)
	if err != nil {
		j.logger().Error("user purge failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.metrics().AddPurged(purged)
	j.logger().Info("user purge completed",
		slog.Int64("purged", purged),
		slog.Duration("duration", time.Since(start)),
	)
	return tracker.End(nil)
}

func (j *UserPurgeJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *UserPurgeJob) metrics() *jobmetrics.Metrics {
	return j.Metrics
}
