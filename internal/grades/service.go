package grades

import (
	"context"
	"strings"
)

// RepositoryPort describes persistence used by the Service.
type RepositoryPort interface {
	Upsert(ctx context.Context, g Grade) (Grade, error)
	ListByStudent(ctx context.Context, studentID int64, term, year int) ([]Grade, error)
	ListBySubject(ctx context.Context, subject string, examType ExamType, term, year int) ([]Grade, error)
}

// Service handles grade business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// RecordInput carries one exam result.
type RecordInput struct {
	StudentID int64
	Subject   string
	ExamType  ExamType
	Term      int
	Year      int
	Marks     int
}

// Record writes an exam result. The band is derived from the mark, callers
// cannot set it directly.
func (s *Service) Record(ctx context.Context, recordedBy int64, input RecordInput) (Grade, error) {
	input.Subject = strings.TrimSpace(input.Subject)
	if input.StudentID == 0 || input.Subject == "" || !input.ExamType.Valid() {
		return Grade{}, ErrValidation
	}
	if input.Term < 1 || input.Term > 3 {
		return Grade{}, ErrValidation
	}
	if input.Year < 2000 {
		return Grade{}, ErrValidation
	}
	if input.Marks < 0 || input.Marks > 100 {
		return Grade{}, ErrValidation
	}
	return s.repo.Upsert(ctx, Grade{
		StudentID:  input.StudentID,
		Subject:    input.Subject,
		ExamType:   input.ExamType,
		Term:       input.Term,
		Year:       input.Year,
		Marks:      input.Marks,
		Band:       BandFor(input.Marks),
		RecordedBy: recordedBy,
	})
}

// StudentGrades returns a student's grades, optionally narrowed to a term.
func (s *Service) StudentGrades(ctx context.Context, studentID int64, term, year int) ([]Grade, error) {
	if studentID == 0 {
		return nil, ErrValidation
	}
	return s.repo.ListByStudent(ctx, studentID, term, year)
}

// StudentReport builds a student's term report with GPA.
func (s *Service) StudentReport(ctx context.Context, studentID int64, term, year int) (TermReport, error) {
	if studentID == 0 || term < 1 || term > 3 || year < 2000 {
		return TermReport{}, ErrValidation
	}
	grades, err := s.repo.ListByStudent(ctx, studentID, term, year)
	if err != nil {
		return TermReport{}, err
	}
	return TermReport{StudentID: studentID, Term: term, Year: year, Grades: grades}, nil
}

// SubjectGrades returns one exam's results for a subject, highest mark first.
func (s *Service) SubjectGrades(ctx context.Context, subject string, examType ExamType, term, year int) ([]Grade, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" || !examType.Valid() || term < 1 || term > 3 || year < 2000 {
		return nil, ErrValidation
	}
	return s.repo.ListBySubject(ctx, subject, examType, term, year)
}
