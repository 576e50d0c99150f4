package reports

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/elimucore/elimucore/internal/shared"
)

// RepositoryPort describes persistence used by the Service.
type RepositoryPort interface {
	Create(ctx context.Context, report Report) (Report, error)
	Get(ctx context.Context, id string) (Report, error)
	List(ctx context.Context, limit, offset int) ([]Report, error)
	MarkRunning(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, artifactPath string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// Enqueuer hands generation work to the background worker.
type Enqueuer interface {
	EnqueueReport(ctx context.Context, reportID string) error
}

// BuilderPort produces report data and artifacts.
type BuilderPort interface {
	Build(ctx context.Context, report Report) (string, error)
	Rows(ctx context.Context, reportType Type, params Params) ([][]string, error)
}

// Service handles report lifecycle.
type Service struct {
	repo     RepositoryPort
	enqueuer Enqueuer
	builder  BuilderPort
	logger   *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, enqueuer Enqueuer, builder BuilderPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, enqueuer: enqueuer, builder: builder, logger: logger}
}

// Request queues a report for generation and returns immediately. The worker
// picks it up from the task queue.
func (s *Service) Request(ctx context.Context, requestedBy int64, reportType Type, params Params) (Report, error) {
	if !reportType.Valid() {
		return Report{}, ErrValidation
	}
	if reportType == TypeAcademic && (params.Term < 1 || params.Term > 3 || params.Year < 2000) {
		return Report{}, ErrValidation
	}
	report, err := s.repo.Create(ctx, Report{
		ID:          uuid.NewString(),
		Type:        reportType,
		Status:      StatusQueued,
		Params:      params,
		RequestedBy: requestedBy,
	})
	if err != nil {
		return Report{}, err
	}
	if err := s.enqueuer.EnqueueReport(ctx, report.ID); err != nil {
		if failErr := s.repo.MarkFailed(ctx, report.ID, "enqueue failed"); failErr != nil {
			s.logger.Warn("mark report failed", slog.Any("error", failErr))
		}
		return Report{}, err
	}
	return report, nil
}

// Summarize runs the report's queries synchronously and returns header plus
// data rows, without creating a registry row or an artifact.
func (s *Service) Summarize(ctx context.Context, reportType Type, params Params) ([][]string, error) {
	if !reportType.Valid() {
		return nil, ErrValidation
	}
	if reportType == TypeAcademic && (params.Term < 1 || params.Term > 3 || params.Year < 2000) {
		return nil, ErrValidation
	}
	return s.builder.Rows(ctx, reportType, params)
}

// Get fetches one report.
func (s *Service) Get(ctx context.Context, id string) (Report, error) {
	return s.repo.Get(ctx, id)
}

// List returns reports, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Report, error) {
	limit = shared.ClampLimit(limit, 50, 200)
	offset = shared.ClampOffset(offset)
	return s.repo.List(ctx, limit, offset)
}

// Process runs one queued report to completion. Called by the worker. A
// report already picked up by another worker is skipped.
func (s *Service) Process(ctx context.Context, reportID string) error {
	report, err := s.repo.Get(ctx, reportID)
	if err != nil {
		return err
	}
	if err := s.repo.MarkRunning(ctx, reportID); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Info("report already claimed", slog.String("report_id", reportID))
			return nil
		}
		return err
	}
	path, err := s.builder.Build(ctx, report)
	if err != nil {
		s.logger.Error("report generation failed",
			slog.String("report_id", reportID),
			slog.Any("error", err))
		return s.repo.MarkFailed(ctx, reportID, err.Error())
	}
	if err := s.repo.MarkCompleted(ctx, reportID, path); err != nil {
		return err
	}
	s.logger.Info("report generated",
		slog.String("report_id", reportID),
		slog.String("type", string(report.Type)),
		slog.String("artifact", path))
	return nil
}
