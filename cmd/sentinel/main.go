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

	"github.com/sentinel-iam/sentinel-iam/internal/app"
	"github.com/sentinel-iam/sentinel-iam/internal/assignment"
	"github.com/sentinel-iam/sentinel-iam/internal/authz"
	"github.com/sentinel-iam/sentinel-iam/internal/groups"
	"github.com/sentinel-iam/sentinel-iam/internal/modules"
	"github.com/sentinel-iam/sentinel-iam/internal/observability"
	"github.com/sentinel-iam/sentinel-iam/internal/permissions"
	"github.com/sentinel-iam/sentinel-iam/internal/platform/cache"
	"github.com/sentinel-iam/sentinel-iam/internal/platform/db"
	"github.com/sentinel-iam/sentinel-iam/internal/roles"
	"github.com/sentinel-iam/sentinel-iam/internal/shared"
	"github.com/sentinel-iam/sentinel-iam/internal/users"
	"github.com/sentinel-iam/sentinel-iam/jobs"
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

	redisClient, err := cache.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis connect", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)

	authzRepo := authz.NewRepository(dbpool)
	authzCache := authz.NewCache(redisClient, cfg.AuthzCacheTTL)
	resolver := authz.NewCachedResolver(authz.NewResolver(authzRepo), authzCache)

	modulesRepo := modules.NewRepository(dbpool)
	modulesService := modules.NewService(modulesRepo, auditLogger, authzCache)

	gate := authz.NewGate(resolver, modulesService, metrics)
	guard := authz.Middleware{Gate: gate, Logger: logger}
	simulator := authz.NewSimulator(gate)

	permissionsRepo := permissions.NewRepository(dbpool)
	permissionsService := permissions.NewService(permissionsRepo, auditLogger, authzCache)

	rolesRepo := roles.NewRepository(dbpool)
	rolesService := roles.NewService(rolesRepo, auditLogger, authzCache)

	groupsRepo := groups.NewRepository(dbpool)
	groupsService := groups.NewService(groupsRepo, auditLogger, authzCache)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, auditLogger, authzCache)

	assignmentRepo := assignment.NewRepository(dbpool)
	assignmentService := assignment.NewService(assignmentRepo, auditLogger, authzCache)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		ModulesHandler:     modules.NewHandler(logger, modulesService, guard),
		PermissionsHandler: permissions.NewHandler(logger, permissionsService, guard),
		RolesHandler:       roles.NewHandler(logger, rolesService, guard),
		GroupsHandler:      groups.NewHandler(logger, groupsService, guard),
		UsersHandler:       users.NewHandler(logger, usersService, guard),
		AssignmentHandler:  assignment.NewHandler(logger, assignmentService, guard),
		AuthzHandler:       authz.NewHandler(logger, resolver, simulator, guard),
		JobsHandler:        jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
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
