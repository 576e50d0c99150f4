package grades

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryGradebook struct {
	nextID int64
	grades map[string]Grade
}

func newMemoryGradebook() *memoryGradebook {
	return &memoryGradebook{grades: make(map[string]Grade)}
}

func gradeKey(g Grade) string {
	return fmt.Sprintf("%d|%s|%s|%d|%d", g.StudentID, g.Subject, g.ExamType, g.Term, g.Year)
}

func (m *memoryGradebook) Upsert(_ context.Context, g Grade) (Grade, error) {
	key := gradeKey(g)
	if existing, ok := m.grades[key]; ok {
		g.ID = existing.ID
	} else {
		m.nextID++
		g.ID = m.nextID
	}
	m.grades[key] = g
	return g, nil
}

func (m *memoryGradebook) ListByStudent(_ context.Context, studentID int64, term, year int) ([]Grade, error) {
	var out []Grade
	for _, g := range m.grades {
		if g.StudentID == studentID && (term == 0 || g.Term == term) && (year == 0 || g.Year == year) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memoryGradebook) ListBySubject(_ context.Context, subject string, examType ExamType, term, year int) ([]Grade, error) {
	var out []Grade
	for _, g := range m.grades {
		if g.Subject == subject && g.ExamType == examType && g.Term == term && g.Year == year {
			out = append(out, g)
		}
	}
	return out, nil
}

func TestRecordDerivesBand(t *testing.T) {
	svc := NewService(newMemoryGradebook())

	grade, err := svc.Record(context.Background(), 7, RecordInput{
		StudentID: 1,
		Subject:   "Mathematics",
		ExamType:  ExamEndterm,
		Term:      2,
		Year:      2026,
		Marks:     82,
	})
	require.NoError(t, err)
	assert.Equal(t, Band("A"), grade.Band)
	assert.Equal(t, 4.0, grade.Points())
	assert.Equal(t, int64(7), grade.RecordedBy)
}

func TestRecordReplacesEarlierMark(t *testing.T) {
	repo := newMemoryGradebook()
	svc := NewService(repo)
	input := RecordInput{
		StudentID: 1, Subject: "English", ExamType: ExamCAT, Term: 1, Year: 2026, Marks: 58,
	}

	first, err := svc.Record(context.Background(), 7, input)
	require.NoError(t, err)
	assert.Equal(t, Band("C"), first.Band)

	input.Marks = 76
	second, err := svc.Record(context.Background(), 7, input)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, Band("B+"), second.Band)
	assert.Len(t, repo.grades, 1)
}

func TestRecordRejectsOutOfRangeMarks(t *testing.T) {
	svc := NewService(newMemoryGradebook())

	for _, marks := range []int{-1, 101} {
		_, err := svc.Record(context.Background(), 7, RecordInput{
			StudentID: 1, Subject: "Physics", ExamType: ExamMidterm, Term: 1, Year: 2026, Marks: marks,
		})
		assert.ErrorIs(t, err, ErrValidation, "marks=%d", marks)
	}
}

func TestStudentReport(t *testing.T) {
	svc := NewService(newMemoryGradebook())
	subjects := map[string]int{"Mathematics": 84, "English": 71, "Chemistry": 35}
	for subject, marks := range subjects {
		_, err := svc.Record(context.Background(), 7, RecordInput{
			StudentID: 1, Subject: subject, ExamType: ExamEndterm, Term: 2, Year: 2026, Marks: marks,
		})
		require.NoError(t, err)
	}

	report, err := svc.StudentReport(context.Background(), 1, 2, 2026)
	require.NoError(t, err)
	assert.Len(t, report.Grades, 3)
	assert.InDelta(t, (4.0+3.0+0.0)/3, report.GPA(), 0.0001)
}
