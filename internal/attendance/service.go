package attendance

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// RepositoryPort describes persistence used by the Service.
type RepositoryPort interface {
	Upsert(ctx context.Context, e Entry) (Entry, error)
	UpsertBatch(ctx context.Context, entries []Entry) ([]Entry, error)
	ListByClass(ctx context.Context, classLevelID int64, date time.Time) ([]Entry, error)
	ListByStudent(ctx context.Context, studentID int64, from, to time.Time) ([]Entry, error)
	Summarize(ctx context.Context, studentID int64, from, to time.Time) (Summary, error)
}

// Service handles attendance business logic.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// RecordInput carries one attendance mark.
type RecordInput struct {
	StudentID    int64
	ClassLevelID int64
	Date         time.Time
	Subject      string
	Mark         Mark
	Remarks      string
}

func (in RecordInput) toEntry(recordedBy int64) (Entry, error) {
	if in.StudentID == 0 || in.ClassLevelID == 0 || !in.Mark.Valid() {
		return Entry{}, ErrValidation
	}
	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}
	return Entry{
		StudentID:    in.StudentID,
		ClassLevelID: in.ClassLevelID,
		Date:         date.Truncate(24 * time.Hour),
		Subject:      strings.TrimSpace(in.Subject),
		Mark:         in.Mark,
		Remarks:      strings.TrimSpace(in.Remarks),
		RecordedBy:   recordedBy,
	}, nil
}

// Record writes one attendance mark stamped with the recording user.
func (s *Service) Record(ctx context.Context, recordedBy int64, input RecordInput) (Entry, error) {
	entry, err := input.toEntry(recordedBy)
	if err != nil {
		return Entry{}, err
	}
	return s.repo.Upsert(ctx, entry)
}

// RecordBatch writes a class register atomically. Every entry must validate
// before anything is persisted.
func (s *Service) RecordBatch(ctx context.Context, recordedBy int64, inputs []RecordInput) ([]Entry, error) {
	if len(inputs) == 0 {
		return nil, ErrValidation
	}
	entries := make([]Entry, 0, len(inputs))
	for _, in := range inputs {
		entry, err := in.toEntry(recordedBy)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	saved, err := s.repo.UpsertBatch(ctx, entries)
	if err != nil {
		return nil, err
	}
	s.logger.Info("attendance register saved",
		slog.Int("entries", len(saved)),
		slog.Int64("recorded_by", recordedBy))
	return saved, nil
}

// ClassRegister returns a class's marks on a date.
func (s *Service) ClassRegister(ctx context.Context, classLevelID int64, date time.Time) ([]Entry, error) {
	if classLevelID == 0 {
		return nil, ErrValidation
	}
	if date.IsZero() {
		date = time.Now()
	}
	return s.repo.ListByClass(ctx, classLevelID, date.Truncate(24*time.Hour))
}

// StudentHistory returns a student's marks inside a range. An empty range
// defaults to the last 30 days.
func (s *Service) StudentHistory(ctx context.Context, studentID int64, from, to time.Time) ([]Entry, error) {
	if studentID == 0 {
		return nil, ErrValidation
	}
	from, to = normalizeRange(from, to)
	return s.repo.ListByStudent(ctx, studentID, from, to)
}

// StudentSummary aggregates a student's marks inside a range.
func (s *Service) StudentSummary(ctx context.Context, studentID int64, from, to time.Time) (Summary, error) {
	if studentID == 0 {
		return Summary{}, ErrValidation
	}
	from, to = normalizeRange(from, to)
	return s.repo.Summarize(ctx, studentID, from, to)
}

func normalizeRange(from, to time.Time) (time.Time, time.Time) {
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	return from, to
}
