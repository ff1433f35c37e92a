package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-admin/meridian/internal/admins"
	"github.com/meridian-admin/meridian/internal/app"
	"github.com/meridian-admin/meridian/internal/audit"
	"github.com/meridian-admin/meridian/internal/auth"
	"github.com/meridian-admin/meridian/internal/catalog"
	"github.com/meridian-admin/meridian/internal/observability"
	"github.com/meridian-admin/meridian/internal/platform/cache"
	"github.com/meridian-admin/meridian/internal/platform/db"
	"github.com/meridian-admin/meridian/internal/rbac"
	"github.com/meridian-admin/meridian/internal/roles"
	"github.com/meridian-admin/meridian/internal/shared"
	"github.com/meridian-admin/meridian/internal/users"
	"github.com/meridian-admin/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "meridian_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	recorder := audit.NewRecorder(dbpool)

	rolesRepo := roles.NewRepository(dbpool)
	rolesService := roles.NewService(rolesRepo, recorder)
	if _, err := rolesService.EnsureDefaultRole(ctx); err != nil {
		logger.Error("ensure default role", slog.Any("error", err))
		os.Exit(1)
	}

	adminsRepo := admins.NewRepository(dbpool)
	adminsService := admins.NewService(adminsRepo, rolesService, sessionManager, recorder)

	metrics := observability.NewMetrics()
	rbacMiddleware := &rbac.Middleware{Loader: adminsService, Logger: logger, Denials: metrics}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, adminsService, sessionManager, csrfManager)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, recorder)

	auditService := audit.NewService(dbpool)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		CatalogHandler: catalog.NewHandler(),
		RolesHandler:   roles.NewHandler(logger, rolesService, rbacMiddleware),
		AdminsHandler:  admins.NewHandler(logger, adminsService, rbacMiddleware),
		UsersHandler:   users.NewHandler(logger, usersService, rbacMiddleware),
		AuditHandler:   audit.NewHandler(logger, auditService, rbacMiddleware),
		JobHandler:     jobs.NewHandler(inspector, logger, rbacMiddleware),
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
