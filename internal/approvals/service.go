package approvals

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/elimucore/elimucore/internal/shared"
)

// RepositoryPort describes ledger persistence used by the Service.
type RepositoryPort interface {
	Open(ctx context.Context, typ ApprovableType, approvableID, userID int64) (Record, error)
	Get(ctx context.Context, id int64) (Record, error)
	ListPending(ctx context.Context) ([]Record, error)
	Review(ctx context.Context, id int64, status Status, reviewerID int64, remarks string, at time.Time) (Record, error)
}

// AuditPort records review decisions for the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates ledger transitions. Authorization happens upstream in
// the guard middleware; the service only enforces lifecycle invariants.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService constructs the approval service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// Open creates a pending record for the entity. A second open for the same
// (type, id) pair fails with ErrDuplicateApproval.
func (s *Service) Open(ctx context.Context, typ ApprovableType, approvableID, userID int64) (Record, error) {
	return s.repo.Open(ctx, typ, approvableID, userID)
}

// Get fetches a single record.
func (s *Service) Get(ctx context.Context, id int64) (Record, error) {
	return s.repo.Get(ctx, id)
}

// ListPending returns the FIFO review queue.
func (s *Service) ListPending(ctx context.Context) ([]Record, error) {
	return s.repo.ListPending(ctx)
}

// Approve moves a pending record to approved. Remarks are optional.
func (s *Service) Approve(ctx context.Context, recordID, reviewerID int64, remarks string) (Record, error) {
	rec, err := s.repo.Review(ctx, recordID, StatusApproved, reviewerID, strings.TrimSpace(remarks), time.Now())
	if err != nil {
		return Record{}, err
	}
	s.recordAudit(ctx, "APPROVAL_APPROVE", reviewerID, rec)
	return rec, nil
}

// Reject moves a pending record to rejected. Remarks are a hard requirement:
// a rejection without an explanation is not reviewable by the applicant.
func (s *Service) Reject(ctx context.Context, recordID, reviewerID int64, remarks string) (Record, error) {
	remarks = strings.TrimSpace(remarks)
	if remarks == "" {
		return Record{}, ErrRemarksRequired
	}
	rec, err := s.repo.Review(ctx, recordID, StatusRejected, reviewerID, remarks, time.Now())
	if err != nil {
		return Record{}, err
	}
	s.recordAudit(ctx, "APPROVAL_REJECT", reviewerID, rec)
	return rec, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, actorID int64, rec Record) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "approval",
		EntityID: strconv.FormatInt(rec.ID, 10),
		Meta: map[string]any{
			"approvable_type": string(rec.ApprovableType),
			"approvable_id":   rec.ApprovableID,
		},
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("record approval audit", slog.Any("error", err))
	}
}
