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

	"github.com/elimucore/elimucore/internal/app"
	"github.com/elimucore/elimucore/internal/approvals"
	"github.com/elimucore/elimucore/internal/attendance"
	"github.com/elimucore/elimucore/internal/auth"
	"github.com/elimucore/elimucore/internal/authz"
	"github.com/elimucore/elimucore/internal/fees"
	"github.com/elimucore/elimucore/internal/grades"
	"github.com/elimucore/elimucore/internal/observability"
	"github.com/elimucore/elimucore/internal/payroll"
	"github.com/elimucore/elimucore/internal/platform/cache"
	"github.com/elimucore/elimucore/internal/platform/db"
	"github.com/elimucore/elimucore/internal/reports"
	"github.com/elimucore/elimucore/internal/shared"
	"github.com/elimucore/elimucore/internal/staff"
	"github.com/elimucore/elimucore/internal/students"
	"github.com/elimucore/elimucore/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "elimucore_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	metrics := observability.NewMetrics()

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, logger)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	guard := authz.Middleware{Loader: authService, Logger: logger, Metrics: metrics}

	approvalsRepo := approvals.NewRepository(pool)
	approvalsService := approvals.NewService(approvalsRepo, auditLogger, logger)
	approvalsHandler := approvals.NewHandler(logger, approvalsService, guard)

	studentsRepo := students.NewRepository(pool)
	studentsService := students.NewService(studentsRepo)
	studentsHandler := students.NewHandler(logger, studentsService, guard)

	staffRepo := staff.NewRepository(pool)
	staffService := staff.NewService(staffRepo)
	staffHandler := staff.NewHandler(logger, staffService, guard)

	attendanceRepo := attendance.NewRepository(pool)
	attendanceService := attendance.NewService(attendanceRepo, logger)
	attendanceHandler := attendance.NewHandler(logger, attendanceService, guard)

	feesRepo := fees.NewRepository(pool)
	feesService := fees.NewService(feesRepo, auditLogger, idempotencyStore, logger)
	feesHandler := fees.NewHandler(logger, feesService, guard)

	payrollRepo := payroll.NewRepository(pool)
	payrollService := payroll.NewService(payrollRepo, staffService, auditLogger, logger)
	payrollHandler := payroll.NewHandler(logger, payrollService, guard)

	gradesRepo := grades.NewRepository(pool)
	gradesService := grades.NewService(gradesRepo)
	gradesHandler := grades.NewHandler(logger, gradesService, guard)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	reportsRepo := reports.NewRepository(pool)
	reportsBuilder := reports.NewBuilder(pool, cfg.ReportArtifactDir)
	reportsService := reports.NewService(reportsRepo, jobClient, reportsBuilder, logger)
	reportsHandler := reports.NewHandler(logger, reportsService, guard)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		Guard:             guard,
		AuthHandler:       authHandler,
		ApprovalsHandler:  approvalsHandler,
		StudentsHandler:   studentsHandler,
		StaffHandler:      staffHandler,
		AttendanceHandler: attendanceHandler,
		FeesHandler:       feesHandler,
		PayrollHandler:    payrollHandler,
		GradesHandler:     gradesHandler,
		ReportsHandler:    reportsHandler,
		Metrics:           metrics,
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
