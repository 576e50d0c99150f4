package students

import (
	"context"
	"strings"
	"time"

	"github.com/elimucore/elimucore/internal/shared"
)

// ListFilters narrows student listings.
type ListFilters struct {
	ClassLevelID int64
	Status       Status
	Limit        int
	Offset       int
}

// RepositoryPort describes persistence used by the Service.
type RepositoryPort interface {
	List(ctx context.Context, filters ListFilters) ([]Student, error)
	Get(ctx context.Context, id int64) (Student, error)
	Create(ctx context.Context, s Student) (Student, error)
	Update(ctx context.Context, s Student) (Student, error)
	Delete(ctx context.Context, id int64) error
	ListGuardians(ctx context.Context, studentID int64) ([]Guardian, error)
	AddGuardian(ctx context.Context, g Guardian) (Guardian, error)
	ListClassLevels(ctx context.Context) ([]ClassLevel, error)
}

// Service handles student business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateInput carries a new student enrollment.
type CreateInput struct {
	UserID          *int64
	AdmissionNumber string
	NationalID      string
	ClassLevelID    int64
	Stream          string
	DateOfBirth     time.Time
	Gender          string
	Phone           string
	AdmissionDate   time.Time
}

// Create enrolls a student.
func (s *Service) Create(ctx context.Context, input CreateInput) (Student, error) {
	input.AdmissionNumber = strings.TrimSpace(input.AdmissionNumber)
	if input.AdmissionNumber == "" || input.ClassLevelID == 0 {
		return Student{}, ErrValidation
	}
	admissionDate := input.AdmissionDate
	if admissionDate.IsZero() {
		admissionDate = time.Now()
	}
	return s.repo.Create(ctx, Student{
		UserID:          input.UserID,
		AdmissionNumber: input.AdmissionNumber,
		NationalID:      strings.TrimSpace(input.NationalID),
		ClassLevelID:    input.ClassLevelID,
		Stream:          strings.TrimSpace(input.Stream),
		DateOfBirth:     input.DateOfBirth,
		Gender:          input.Gender,
		Phone:           strings.TrimSpace(input.Phone),
		AdmissionDate:   admissionDate,
		Status:          StatusActive,
	})
}

// UpdateInput carries mutable student fields.
type UpdateInput struct {
	NationalID   string
	ClassLevelID int64
	Stream       string
	DateOfBirth  time.Time
	Gender       string
	Phone        string
	Status       Status
}

// Update modifies an existing student.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Student, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if input.ClassLevelID != 0 {
		existing.ClassLevelID = input.ClassLevelID
	}
	if input.NationalID != "" {
		existing.NationalID = strings.TrimSpace(input.NationalID)
	}
	if input.Stream != "" {
		existing.Stream = strings.TrimSpace(input.Stream)
	}
	if !input.DateOfBirth.IsZero() {
		existing.DateOfBirth = input.DateOfBirth
	}
	if input.Gender != "" {
		existing.Gender = input.Gender
	}
	if input.Phone != "" {
		existing.Phone = strings.TrimSpace(input.Phone)
	}
	if input.Status != "" {
		switch input.Status {
		case StatusActive, StatusSuspended, StatusGraduated, StatusTransferred:
			existing.Status = input.Status
		default:
			return Student{}, ErrValidation
		}
	}
	return s.repo.Update(ctx, existing)
}

// Get fetches one student.
func (s *Service) Get(ctx context.Context, id int64) (Student, error) {
	return s.repo.Get(ctx, id)
}

// List returns students matching the filters.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Student, error) {
	filters.Limit = shared.ClampLimit(filters.Limit, 50, 200)
	filters.Offset = shared.ClampOffset(filters.Offset)
	return s.repo.List(ctx, filters)
}

// Delete removes a student record.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Guardians lists a student's guardians, primary first.
func (s *Service) Guardians(ctx context.Context, studentID int64) ([]Guardian, error) {
	if _, err := s.repo.Get(ctx, studentID); err != nil {
		return nil, err
	}
	return s.repo.ListGuardians(ctx, studentID)
}

// GuardianInput carries a new guardian contact.
type GuardianInput struct {
	Name            string
	Relationship    string
	Phone           string
	Email           string
	IDNumber        string
	Occupation      string
	Address         string
	ContactPriority ContactPriority
}

// AddGuardian attaches a guardian to a student.
func (s *Service) AddGuardian(ctx context.Context, studentID int64, input GuardianInput) (Guardian, error) {
	if _, err := s.repo.Get(ctx, studentID); err != nil {
		return Guardian{}, err
	}
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Phone) == "" {
		return Guardian{}, ErrValidation
	}
	priority := input.ContactPriority
	switch priority {
	case PriorityPrimary, PrioritySecondary, PriorityEmergency:
	case "":
		priority = PrioritySecondary
	default:
		return Guardian{}, ErrValidation
	}
	return s.repo.AddGuardian(ctx, Guardian{
		StudentID:       studentID,
		Name:            strings.TrimSpace(input.Name),
		Relationship:    strings.TrimSpace(input.Relationship),
		Phone:           strings.TrimSpace(input.Phone),
		Email:           strings.TrimSpace(input.Email),
		IDNumber:        strings.TrimSpace(input.IDNumber),
		Occupation:      strings.TrimSpace(input.Occupation),
		Address:         strings.TrimSpace(input.Address),
		ContactPriority: priority,
	})
}

// ClassLevels lists the school's class levels in order.
func (s *Service) ClassLevels(ctx context.Context) ([]ClassLevel, error) {
	return s.repo.ListClassLevels(ctx)
}
