package attendance

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRegister struct {
	mu      sync.Mutex
	nextID  int64
	entries map[string]Entry
}

func newMemoryRegister() *memoryRegister {
	return &memoryRegister{entries: make(map[string]Entry)}
}

func entryKey(e Entry) string {
	return fmt.Sprintf("%d|%s|%s", e.StudentID, e.Date.Format("2006-01-02"), e.Subject)
}

func (m *memoryRegister) Upsert(_ context.Context, e Entry) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertLocked(e), nil
}

func (m *memoryRegister) upsertLocked(e Entry) Entry {
	key := entryKey(e)
	if existing, ok := m.entries[key]; ok {
		e.ID = existing.ID
	} else {
		m.nextID++
		e.ID = m.nextID
	}
	m.entries[key] = e
	return e
}

func (m *memoryRegister) UpsertBatch(_ context.Context, entries []Entry) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := make([]Entry, 0, len(entries))
	for _, e := range entries {
		saved = append(saved, m.upsertLocked(e))
	}
	return saved, nil
}

func (m *memoryRegister) ListByClass(_ context.Context, classLevelID int64, date time.Time) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.entries {
		if e.ClassLevelID == classLevelID && e.Date.Equal(date) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryRegister) ListByStudent(_ context.Context, studentID int64, from, to time.Time) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.entries {
		if e.StudentID == studentID && !e.Date.Before(from) && !e.Date.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryRegister) Summarize(_ context.Context, studentID int64, from, to time.Time) (Summary, error) {
	entries, _ := m.ListByStudent(context.Background(), studentID, from, to)
	summary := Summary{StudentID: studentID}
	for _, e := range entries {
		switch e.Mark {
		case MarkPresent:
			summary.Present++
		case MarkAbsent:
			summary.Absent++
		case MarkLate:
			summary.Late++
		case MarkExcused:
			summary.Excused++
		}
	}
	return summary, nil
}

func newTestService(repo RepositoryPort) *Service {
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRecordStampsRecorder(t *testing.T) {
	repo := newMemoryRegister()
	svc := newTestService(repo)

	entry, err := svc.Record(context.Background(), 7, RecordInput{
		StudentID:    1,
		ClassLevelID: 2,
		Date:         time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		Mark:         MarkPresent,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), entry.RecordedBy)
	assert.Equal(t, MarkPresent, entry.Mark)
}

func TestRecordReplacesEarlierMark(t *testing.T) {
	repo := newMemoryRegister()
	svc := newTestService(repo)
	date := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	first, err := svc.Record(context.Background(), 7, RecordInput{
		StudentID: 1, ClassLevelID: 2, Date: date, Mark: MarkAbsent,
	})
	require.NoError(t, err)

	second, err := svc.Record(context.Background(), 8, RecordInput{
		StudentID: 1, ClassLevelID: 2, Date: date, Mark: MarkLate,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, MarkLate, second.Mark)
	assert.Equal(t, int64(8), second.RecordedBy)
	assert.Len(t, repo.entries, 1)
}

func TestRecordRejectsUnknownMark(t *testing.T) {
	svc := newTestService(newMemoryRegister())

	_, err := svc.Record(context.Background(), 7, RecordInput{
		StudentID: 1, ClassLevelID: 2, Mark: Mark("asleep"),
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRecordBatchValidatesBeforeWriting(t *testing.T) {
	repo := newMemoryRegister()
	svc := newTestService(repo)

	_, err := svc.RecordBatch(context.Background(), 7, []RecordInput{
		{StudentID: 1, ClassLevelID: 2, Mark: MarkPresent},
		{StudentID: 0, ClassLevelID: 2, Mark: MarkPresent},
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, repo.entries)
}

func TestRecordBatchEmptyFails(t *testing.T) {
	svc := newTestService(newMemoryRegister())

	_, err := svc.RecordBatch(context.Background(), 7, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStudentSummaryRate(t *testing.T) {
	repo := newMemoryRegister()
	svc := newTestService(repo)
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	marks := []Mark{MarkPresent, MarkPresent, MarkLate, MarkAbsent, MarkExcused}
	for i, mark := range marks {
		_, err := svc.Record(context.Background(), 7, RecordInput{
			StudentID: 1, ClassLevelID: 2, Date: base.AddDate(0, 0, i), Mark: mark,
		})
		require.NoError(t, err)
	}

	summary, err := svc.StudentSummary(context.Background(), 1, base, base.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Present)
	assert.Equal(t, 1, summary.Absent)
	assert.Equal(t, 1, summary.Late)
	assert.Equal(t, 1, summary.Excused)
	assert.Equal(t, 5, summary.Total())
	assert.InDelta(t, 0.6, summary.Rate(), 0.0001)
}

func TestSummaryRateEmpty(t *testing.T) {
	var summary Summary
	assert.Zero(t, summary.Rate())
}
