package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/meridian-admin/meridian/internal/app"
	"github.com/meridian-admin/meridian/internal/audit"
	jobmetrics "github.com/meridian-admin/meridian/internal/jobs"
	"github.com/meridian-admin/meridian/internal/platform/db"
	"github.com/meridian-admin/meridian/internal/users"
	"github.com/meridian-admin/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := jobmetrics.NewMetrics(nil)

	recorder := audit.NewRecorder(pool)
	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, recorder)
	auditService := audit.NewService(pool)

	purgeJob := jobs.NewUserPurgeJob(usersService, logger, metrics)
	trimJob := jobs.NewAuditTrimJob(auditService, logger, metrics, cfg.AuditRetentionDays)

	purgeTask, err := jobs.NewUserPurgeTask()
	if err != nil {
		logger.Error("build purge task", slog.Any("error", err))
		os.Exit(1)
	}
	trimTask, err := jobs.NewAuditTrimTask(jobs.AuditTrimPayload{RetentionDays: cfg.AuditRetentionDays})
	if err != nil {
		logger.Error("build trim task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskUserPurge, Handler: purgeJob.Handle},
			{Type: jobs.TaskAuditTrim, Handler: trimJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.UserPurgeCron, Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.AuditTrimCron, Task: trimTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
