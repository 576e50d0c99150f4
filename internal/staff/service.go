package staff

import (
	"context"
	"strings"
	"time"

	"github.com/elimucore/elimucore/internal/shared"
)

// ListFilters narrows staff listings.
type ListFilters struct {
	Department     string
	EmploymentType EmploymentType
	Status         Status
	Limit          int
	Offset         int
}

// RepositoryPort describes persistence used by the Service.
type RepositoryPort interface {
	List(ctx context.Context, filters ListFilters) ([]Member, error)
	Get(ctx context.Context, id int64) (Member, error)
	Create(ctx context.Context, m Member) (Member, error)
	Update(ctx context.Context, m Member) (Member, error)
	Delete(ctx context.Context, id int64) error
}

// Service handles staff business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateInput carries a new employment record.
type CreateInput struct {
	UserID         *int64
	StaffNumber    string
	TSCNumber      string
	NationalID     string
	Phone          string
	Department     string
	Designation    string
	EmploymentType EmploymentType
	BasicSalary    int64
	HireDate       time.Time
}

// Create registers a staff member. TSC staff must carry a TSC number.
func (s *Service) Create(ctx context.Context, input CreateInput) (Member, error) {
	input.StaffNumber = strings.TrimSpace(input.StaffNumber)
	input.TSCNumber = strings.TrimSpace(input.TSCNumber)
	if input.StaffNumber == "" || input.BasicSalary < 0 {
		return Member{}, ErrValidation
	}
	switch input.EmploymentType {
	case EmploymentTSC:
		if input.TSCNumber == "" {
			return Member{}, ErrValidation
		}
	case EmploymentBOM:
	default:
		return Member{}, ErrValidation
	}
	hireDate := input.HireDate
	if hireDate.IsZero() {
		hireDate = time.Now()
	}
	return s.repo.Create(ctx, Member{
		UserID:         input.UserID,
		StaffNumber:    input.StaffNumber,
		TSCNumber:      input.TSCNumber,
		NationalID:     strings.TrimSpace(input.NationalID),
		Phone:          strings.TrimSpace(input.Phone),
		Department:     strings.TrimSpace(input.Department),
		Designation:    strings.TrimSpace(input.Designation),
		EmploymentType: input.EmploymentType,
		BasicSalary:    input.BasicSalary,
		HireDate:       hireDate,
		Status:         StatusActive,
	})
}

// UpdateInput carries mutable staff fields.
type UpdateInput struct {
	TSCNumber      string
	NationalID     string
	Phone          string
	Department     string
	Designation    string
	EmploymentType EmploymentType
	BasicSalary    *int64
	Status         Status
}

// Update modifies an existing staff member.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Member, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Member{}, err
	}
	if input.TSCNumber != "" {
		existing.TSCNumber = strings.TrimSpace(input.TSCNumber)
	}
	if input.NationalID != "" {
		existing.NationalID = strings.TrimSpace(input.NationalID)
	}
	if input.Phone != "" {
		existing.Phone = strings.TrimSpace(input.Phone)
	}
	if input.Department != "" {
		existing.Department = strings.TrimSpace(input.Department)
	}
	if input.Designation != "" {
		existing.Designation = strings.TrimSpace(input.Designation)
	}
	if input.EmploymentType != "" {
		switch input.EmploymentType {
		case EmploymentTSC, EmploymentBOM:
			existing.EmploymentType = input.EmploymentType
		default:
			return Member{}, ErrValidation
		}
	}
	if input.BasicSalary != nil {
		if *input.BasicSalary < 0 {
			return Member{}, ErrValidation
		}
		existing.BasicSalary = *input.BasicSalary
	}
	if input.Status != "" {
		switch input.Status {
		case StatusActive, StatusOnLeave, StatusSuspended, StatusTerminated:
			existing.Status = input.Status
		default:
			return Member{}, ErrValidation
		}
	}
	if existing.EmploymentType == EmploymentTSC && existing.TSCNumber == "" {
		return Member{}, ErrValidation
	}
	return s.repo.Update(ctx, existing)
}

// Get fetches one staff member.
func (s *Service) Get(ctx context.Context, id int64) (Member, error) {
	return s.repo.Get(ctx, id)
}

// List returns staff matching the filters.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Member, error) {
	filters.Limit = shared.ClampLimit(filters.Limit, 50, 200)
	filters.Offset = shared.ClampOffset(filters.Offset)
	return s.repo.List(ctx, filters)
}

// Delete removes a staff member.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
