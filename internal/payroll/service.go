package payroll

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/elimucore/elimucore/internal/shared"
	"github.com/elimucore/elimucore/internal/staff"
)

// RepositoryPort describes persistence used by the Service.
type RepositoryPort interface {
	Create(ctx context.Context, run Run) (Run, error)
	Get(ctx context.Context, id int64) (Run, error)
	ListByMonth(ctx context.Context, month time.Time) ([]Run, error)
	ListByStaff(ctx context.Context, staffID int64) ([]Run, error)
	Approve(ctx context.Context, runID, approverID int64) (Run, error)
	MarkPaid(ctx context.Context, runID int64) (Run, error)
}

// StaffPort supplies employment records for run generation.
type StaffPort interface {
	Get(ctx context.Context, id int64) (staff.Member, error)
	List(ctx context.Context, filters staff.ListFilters) ([]staff.Member, error)
}

// AuditPort records financial-impact transitions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles payroll business logic.
type Service struct {
	repo   RepositoryPort
	staff  StaffPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, staffPort StaffPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, staff: staffPort, audit: audit, logger: logger}
}

// GenerateInput carries one run generation request.
type GenerateInput struct {
	StaffID    int64
	Month      time.Time
	Allowances int64
	Deductions int64
}

// Generate drafts a run for one staff member. The basic salary is read from
// the employment record at generation time.
func (s *Service) Generate(ctx context.Context, generatedBy int64, input GenerateInput) (Run, error) {
	if input.StaffID == 0 || input.Month.IsZero() {
		return Run{}, ErrValidation
	}
	if input.Allowances < 0 || input.Deductions < 0 {
		return Run{}, ErrValidation
	}
	member, err := s.staff.Get(ctx, input.StaffID)
	if err != nil {
		if errors.Is(err, staff.ErrNotFound) {
			return Run{}, ErrNotFound
		}
		return Run{}, err
	}
	if member.Status != staff.StatusActive {
		return Run{}, ErrValidation
	}
	run := Run{
		StaffID:     member.ID,
		Month:       monthStart(input.Month),
		BasicSalary: member.BasicSalary,
		Allowances:  input.Allowances,
		Deductions:  input.Deductions,
		Status:      StatusDraft,
		GeneratedBy: generatedBy,
	}
	if run.Net() < 0 {
		return Run{}, ErrValidation
	}
	return s.repo.Create(ctx, run)
}

// BulkResult reports the outcome of a month-wide generation.
type BulkResult struct {
	Generated int
	Skipped   int
}

// GenerateMonth drafts runs for every active staff member without one. Staff
// already covered for the month are skipped, so it is safe to run twice.
func (s *Service) GenerateMonth(ctx context.Context, generatedBy int64, month time.Time) (BulkResult, error) {
	if month.IsZero() {
		return BulkResult{}, ErrValidation
	}
	month = monthStart(month)
	var result BulkResult
	for offset := 0; ; offset += 200 {
		members, err := s.staff.List(ctx, staff.ListFilters{
			Status: staff.StatusActive,
			Limit:  200,
			Offset: offset,
		})
		if err != nil {
			return result, err
		}
		if len(members) == 0 {
			break
		}
		for _, member := range members {
			_, err := s.repo.Create(ctx, Run{
				StaffID:     member.ID,
				Month:       month,
				BasicSalary: member.BasicSalary,
				Status:      StatusDraft,
				GeneratedBy: generatedBy,
			})
			switch {
			case err == nil:
				result.Generated++
			case errors.Is(err, ErrDuplicateRun):
				result.Skipped++
			default:
				return result, err
			}
		}
		if len(members) < 200 {
			break
		}
	}
	s.logger.Info("payroll month generated",
		slog.String("month", month.Format("2006-01")),
		slog.Int("generated", result.Generated),
		slog.Int("skipped", result.Skipped))
	return result, nil
}

// Approve moves a draft run to approved, stamped with the approver. Only the
// first approver succeeds.
func (s *Service) Approve(ctx context.Context, approverID, runID int64) (Run, error) {
	run, err := s.repo.Approve(ctx, runID, approverID)
	if err != nil {
		return Run{}, err
	}
	s.recordAudit(ctx, approverID, "PAYROLL_APPROVE", run)
	return run, nil
}

// Pay settles an approved run. Draft runs cannot be paid, they must be
// approved first.
func (s *Service) Pay(ctx context.Context, actorID, runID int64) (Run, error) {
	run, err := s.repo.MarkPaid(ctx, runID)
	if err != nil {
		return Run{}, err
	}
	s.recordAudit(ctx, actorID, "PAYROLL_PAY", run)
	return run, nil
}

// Get fetches one run.
func (s *Service) Get(ctx context.Context, id int64) (Run, error) {
	return s.repo.Get(ctx, id)
}

// ByMonth returns all runs for a month.
func (s *Service) ByMonth(ctx context.Context, month time.Time) ([]Run, error) {
	if month.IsZero() {
		return nil, ErrValidation
	}
	return s.repo.ListByMonth(ctx, monthStart(month))
}

// StaffHistory returns a staff member's pay history.
func (s *Service) StaffHistory(ctx context.Context, staffID int64) ([]Run, error) {
	if staffID == 0 {
		return nil, ErrValidation
	}
	return s.repo.ListByStaff(ctx, staffID)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, run Run) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "payroll_run",
		EntityID: strconv.FormatInt(run.ID, 10),
		Meta: map[string]any{
			"staff_id": run.StaffID,
			"month":    run.Month.Format("2006-01"),
			"net":      run.Net(),
		},
	})
	if err != nil {
		s.logger.Warn("audit record failed",
			slog.String("action", action),
			slog.Int64("run_id", run.ID),
			slog.Any("error", err))
	}
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
