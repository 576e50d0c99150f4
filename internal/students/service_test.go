package students

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRoster struct {
	nextID      int64
	students    map[int64]Student
	byAdmission map[string]int64
	guardians   map[int64][]Guardian
	lastFilters ListFilters
}

func newMemoryRoster() *memoryRoster {
	return &memoryRoster{
		nextID:      1,
		students:    map[int64]Student{},
		byAdmission: map[string]int64{},
		guardians:   map[int64][]Guardian{},
	}
}

func (m *memoryRoster) List(_ context.Context, filters ListFilters) ([]Student, error) {
	m.lastFilters = filters
	out := make([]Student, 0, len(m.students))
	for _, s := range m.students {
		if filters.ClassLevelID != 0 && s.ClassLevelID != filters.ClassLevelID {
			continue
		}
		if filters.Status != "" && s.Status != filters.Status {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryRoster) Get(_ context.Context, id int64) (Student, error) {
	s, ok := m.students[id]
	if !ok {
		return Student{}, ErrNotFound
	}
	return s, nil
}

func (m *memoryRoster) Create(_ context.Context, s Student) (Student, error) {
	if _, ok := m.byAdmission[s.AdmissionNumber]; ok {
		return Student{}, ErrDuplicateAdmission
	}
	s.ID = m.nextID
	m.nextID++
	s.CreatedAt = time.Now()
	m.students[s.ID] = s
	m.byAdmission[s.AdmissionNumber] = s.ID
	return s, nil
}

func (m *memoryRoster) Update(_ context.Context, s Student) (Student, error) {
	if _, ok := m.students[s.ID]; !ok {
		return Student{}, ErrNotFound
	}
	m.students[s.ID] = s
	return s, nil
}

func (m *memoryRoster) Delete(_ context.Context, id int64) error {
	if _, ok := m.students[id]; !ok {
		return ErrNotFound
	}
	delete(m.students, id)
	return nil
}

func (m *memoryRoster) ListGuardians(_ context.Context, studentID int64) ([]Guardian, error) {
	return m.guardians[studentID], nil
}

func (m *memoryRoster) AddGuardian(_ context.Context, g Guardian) (Guardian, error) {
	g.ID = m.nextID
	m.nextID++
	m.guardians[g.StudentID] = append(m.guardians[g.StudentID], g)
	return g, nil
}

func (m *memoryRoster) ListClassLevels(_ context.Context) ([]ClassLevel, error) {
	return []ClassLevel{{ID: 1, Name: "Form 1", Level: 1}}, nil
}

func TestCreateRequiresAdmissionAndClass(t *testing.T) {
	svc := NewService(newMemoryRoster())

	_, err := svc.Create(context.Background(), CreateInput{ClassLevelID: 1})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{AdmissionNumber: "ADM-001"})
	require.ErrorIs(t, err, ErrValidation)

	created, err := svc.Create(context.Background(), CreateInput{
		AdmissionNumber: "  ADM-001  ",
		ClassLevelID:    1,
	})
	require.NoError(t, err)
	require.Equal(t, "ADM-001", created.AdmissionNumber)
	require.Equal(t, StatusActive, created.Status)
	require.False(t, created.AdmissionDate.IsZero())
}

func TestCreateDuplicateAdmission(t *testing.T) {
	svc := NewService(newMemoryRoster())

	_, err := svc.Create(context.Background(), CreateInput{AdmissionNumber: "ADM-002", ClassLevelID: 1})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{AdmissionNumber: "ADM-002", ClassLevelID: 2})
	require.ErrorIs(t, err, ErrDuplicateAdmission)
}

func TestUpdateMergesOnlyProvidedFields(t *testing.T) {
	repo := newMemoryRoster()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), CreateInput{
		AdmissionNumber: "ADM-003",
		ClassLevelID:    1,
		Stream:          "North",
		Phone:           "0700000001",
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{ClassLevelID: 2})
	require.NoError(t, err)
	require.Equal(t, int64(2), updated.ClassLevelID)
	require.Equal(t, "North", updated.Stream)
	require.Equal(t, "0700000001", updated.Phone)
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	svc := NewService(newMemoryRoster())

	created, err := svc.Create(context.Background(), CreateInput{AdmissionNumber: "ADM-004", ClassLevelID: 1})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), created.ID, UpdateInput{Status: Status("expelled")})
	require.ErrorIs(t, err, ErrValidation)

	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{Status: StatusGraduated})
	require.NoError(t, err)
	require.Equal(t, StatusGraduated, updated.Status)
}

func TestListClampsPageSize(t *testing.T) {
	repo := newMemoryRoster()
	svc := NewService(repo)

	_, err := svc.List(context.Background(), ListFilters{Limit: 0, Offset: -5})
	require.NoError(t, err)
	require.Equal(t, 50, repo.lastFilters.Limit)
	require.Equal(t, 0, repo.lastFilters.Offset)

	_, err = svc.List(context.Background(), ListFilters{Limit: 10_000})
	require.NoError(t, err)
	require.Equal(t, 200, repo.lastFilters.Limit)
}

func TestAddGuardianValidation(t *testing.T) {
	svc := NewService(newMemoryRoster())

	created, err := svc.Create(context.Background(), CreateInput{AdmissionNumber: "ADM-005", ClassLevelID: 1})
	require.NoError(t, err)

	_, err = svc.AddGuardian(context.Background(), created.ID, GuardianInput{Name: "Jane Wambui"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.AddGuardian(context.Background(), created.ID, GuardianInput{
		Name: "Jane Wambui", Phone: "0711000000", ContactPriority: ContactPriority("tertiary"),
	})
	require.ErrorIs(t, err, ErrValidation)

	g, err := svc.AddGuardian(context.Background(), created.ID, GuardianInput{
		Name: "Jane Wambui", Phone: "0711000000",
	})
	require.NoError(t, err)
	require.Equal(t, PrioritySecondary, g.ContactPriority)

	_, err = svc.AddGuardian(context.Background(), 9999, GuardianInput{Name: "X", Phone: "0711"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGuardiansRequireExistingStudent(t *testing.T) {
	svc := NewService(newMemoryRoster())

	_, err := svc.Guardians(context.Background(), 404)
	require.ErrorIs(t, err, ErrNotFound)
}
