package reports

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryReports struct {
	reports map[string]Report
}

func newMemoryReports() *memoryReports {
	return &memoryReports{reports: make(map[string]Report)}
}

func (m *memoryReports) Create(_ context.Context, report Report) (Report, error) {
	m.reports[report.ID] = report
	return report, nil
}

func (m *memoryReports) Get(_ context.Context, id string) (Report, error) {
	report, ok := m.reports[id]
	if !ok {
		return Report{}, ErrNotFound
	}
	return report, nil
}

func (m *memoryReports) List(_ context.Context, _, _ int) ([]Report, error) {
	var out []Report
	for _, report := range m.reports {
		out = append(out, report)
	}
	return out, nil
}

func (m *memoryReports) MarkRunning(_ context.Context, id string) error {
	report, ok := m.reports[id]
	if !ok || report.Status != StatusQueued {
		return ErrNotFound
	}
	report.Status = StatusRunning
	m.reports[id] = report
	return nil
}

func (m *memoryReports) MarkCompleted(_ context.Context, id, artifactPath string) error {
	report := m.reports[id]
	report.Status = StatusCompleted
	report.ArtifactPath = artifactPath
	m.reports[id] = report
	return nil
}

func (m *memoryReports) MarkFailed(_ context.Context, id, reason string) error {
	report := m.reports[id]
	report.Status = StatusFailed
	report.Error = reason
	m.reports[id] = report
	return nil
}

type stubEnqueuer struct {
	enqueued []string
	fail     bool
}

func (s *stubEnqueuer) EnqueueReport(_ context.Context, reportID string) error {
	if s.fail {
		return errors.New("queue unavailable")
	}
	s.enqueued = append(s.enqueued, reportID)
	return nil
}

type stubBuilder struct {
	fail bool
}

func (s stubBuilder) Build(_ context.Context, report Report) (string, error) {
	if s.fail {
		return "", errors.New("query timeout")
	}
	return "/tmp/report-" + report.ID + ".csv", nil
}

func (s stubBuilder) Rows(_ context.Context, reportType Type, _ Params) ([][]string, error) {
	if s.fail {
		return nil, errors.New("query timeout")
	}
	return [][]string{{"metric", "value"}, {"type", string(reportType)}}, nil
}

func newTestService(repo RepositoryPort, enq Enqueuer, builder BuilderPort) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, enq, builder, logger)
}

func TestRequestQueuesAndEnqueues(t *testing.T) {
	repo := newMemoryReports()
	enq := &stubEnqueuer{}
	svc := newTestService(repo, enq, stubBuilder{})

	report, err := svc.Request(context.Background(), 5, TypeFinancial, Params{})
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, report.Status)
	assert.Equal(t, []string{report.ID}, enq.enqueued)
}

func TestRequestUnknownTypeFails(t *testing.T) {
	svc := newTestService(newMemoryReports(), &stubEnqueuer{}, stubBuilder{})

	_, err := svc.Request(context.Background(), 5, Type("payroll"), Params{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRequestAcademicNeedsTermAndYear(t *testing.T) {
	svc := newTestService(newMemoryReports(), &stubEnqueuer{}, stubBuilder{})

	_, err := svc.Request(context.Background(), 5, TypeAcademic, Params{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Request(context.Background(), 5, TypeAcademic, Params{Term: 2, Year: 2026})
	assert.NoError(t, err)
}

func TestRequestEnqueueFailureMarksFailed(t *testing.T) {
	repo := newMemoryReports()
	svc := newTestService(repo, &stubEnqueuer{fail: true}, stubBuilder{})

	_, err := svc.Request(context.Background(), 5, TypeEnrollment, Params{})
	require.Error(t, err)

	for _, report := range repo.reports {
		assert.Equal(t, StatusFailed, report.Status)
	}
}

func TestProcessCompletesReport(t *testing.T) {
	repo := newMemoryReports()
	enq := &stubEnqueuer{}
	svc := newTestService(repo, enq, stubBuilder{})

	report, err := svc.Request(context.Background(), 5, TypeEnrollment, Params{})
	require.NoError(t, err)

	require.NoError(t, svc.Process(context.Background(), report.ID))

	done, err := svc.Get(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.NotEmpty(t, done.ArtifactPath)
}

func TestProcessBuilderFailureMarksFailed(t *testing.T) {
	repo := newMemoryReports()
	svc := newTestService(repo, &stubEnqueuer{}, stubBuilder{fail: true})

	report, err := svc.Request(context.Background(), 5, TypeEnrollment, Params{})
	require.NoError(t, err)

	require.NoError(t, svc.Process(context.Background(), report.ID))

	failed, err := svc.Get(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "query timeout", failed.Error)
}

func TestProcessAlreadyClaimedIsNoop(t *testing.T) {
	repo := newMemoryReports()
	svc := newTestService(repo, &stubEnqueuer{}, stubBuilder{})

	report, err := svc.Request(context.Background(), 5, TypeEnrollment, Params{})
	require.NoError(t, err)
	require.NoError(t, repo.MarkRunning(context.Background(), report.ID))

	assert.NoError(t, svc.Process(context.Background(), report.ID))

	current, err := svc.Get(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, current.Status, "second worker must not touch a claimed report")
}
