package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/elimucore/elimucore/internal/reports"
	"github.com/elimucore/elimucore/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportGenerate builds a requested report artifact.
	TaskReportGenerate = "report:generate"
	// TaskIdempotencyCleanup prunes old idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
	// TaskSessionCleanup prunes expired session rows from postgres.
	TaskSessionCleanup = "maintenance:session_cleanup"
)

// ReportGeneratePayload identifies the report to build.
type ReportGeneratePayload struct {
	ReportID string `json:"report_id"`
}

// NewReportGenerateTask constructs an Asynq task for one report.
func NewReportGenerateTask(reportID string) (*asynq.Task, error) {
	data, err := json.Marshal(ReportGeneratePayload{ReportID: reportID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportGenerate, data), nil
}

// NewReportGenerateHandler returns the handler processing report tasks.
func NewReportGenerateHandler(svc *reports.Service) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ReportGeneratePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		return svc.Process(ctx, payload.ReportID)
	}
}

// NewIdempotencyCleanupTask constructs the maintenance task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}

// SessionPruner removes expired durable sessions.
type SessionPruner interface {
	PruneExpiredSessions(ctx context.Context) (int64, error)
}

// NewSessionCleanupTask constructs the maintenance task.
func NewSessionCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskSessionCleanup, nil)
}

// NewSessionCleanupHandler prunes expired session rows.
func NewSessionCleanupHandler(pruner SessionPruner, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		pruned, err := pruner.PruneExpiredSessions(ctx)
		if err != nil {
			logger.Warn("session cleanup", slog.Any("error", err))
			return err
		}
		logger.Info("session cleanup", slog.Int64("pruned", pruned))
		return nil
	}
}

// NewIdempotencyCleanupHandler prunes keys older than 48 hours.
func NewIdempotencyCleanupHandler(store *shared.IdempotencyStore, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		pruned, err := store.Cleanup(ctx, 48*time.Hour)
		if err != nil {
			logger.Warn("idempotency cleanup", slog.Any("error", err))
			return err
		}
		logger.Info("idempotency cleanup", slog.Int64("pruned", pruned))
		return nil
	}
}
