package approvals

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elimucore/elimucore/internal/shared"
)

type memoryLedger struct {
	mu      sync.Mutex
	records map[int64]Record
	byKey   map[string]int64
	nextID  int64
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		records: make(map[int64]Record),
		byKey:   make(map[string]int64),
	}
}

func (m *memoryLedger) Open(ctx context.Context, typ ApprovableType, approvableID, userID int64) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := string(typ) + "#" + strconv.FormatInt(approvableID, 10)
	if _, exists := m.byKey[key]; exists {
		return Record{}, ErrDuplicateApproval
	}
	m.nextID++
	rec := Record{
		ID:             m.nextID,
		ApprovableType: typ,
		ApprovableID:   approvableID,
		UserID:         userID,
		Status:         StatusPending,
		CreatedAt:      time.Now().Add(time.Duration(m.nextID) * time.Millisecond),
	}
	m.records[rec.ID] = rec
	m.byKey[key] = rec.ID
	return rec, nil
}

func (m *memoryLedger) Get(ctx context.Context, id int64) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *memoryLedger) ListPending(ctx context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []Record
	for _, rec := range m.records {
		if rec.Status == StatusPending {
			pending = append(pending, rec)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	return pending, nil
}

func (m *memoryLedger) Review(ctx context.Context, id int64, status Status, reviewerID int64, remarks string, at time.Time) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if rec.Status != StatusPending {
		return Record{}, ErrInvalidTransition
	}
	rec.Status = status
	rec.ReviewedBy = &reviewerID
	rec.ReviewRemarks = remarks
	reviewedAt := at
	rec.ReviewedAt = &reviewedAt
	m.records[id] = rec
	return rec, nil
}

type nullAudit struct {
	mu      sync.Mutex
	entries []shared.AuditLog
}

func (a *nullAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, log)
	return nil
}

func newService(t *testing.T) (*Service, *memoryLedger, *nullAudit) {
	t.Helper()
	repo := newMemoryLedger()
	audit := &nullAudit{}
	return NewService(repo, audit, nil), repo, audit
}

func TestOpenDuplicateFails(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, ApprovableUser, 7, 7)
	require.NoError(t, err)

	_, err = svc.Open(ctx, ApprovableUser, 7, 7)
	require.ErrorIs(t, err, ErrDuplicateApproval)
}

func TestApproveStampsReviewer(t *testing.T) {
	svc, _, audit := newService(t)
	ctx := context.Background()

	rec, err := svc.Open(ctx, ApprovableUser, 1, 1)
	require.NoError(t, err)

	reviewed, err := svc.Approve(ctx, rec.ID, 42, "credentials verified")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	require.Equal(t, int64(42), *reviewed.ReviewedBy)
	require.NotNil(t, reviewed.ReviewedAt)
	require.Equal(t, "credentials verified", reviewed.ReviewRemarks)
	require.Len(t, audit.entries, 1)
	require.Equal(t, "APPROVAL_APPROVE", audit.entries[0].Action)
}

func TestReviewIsSingleShot(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	rec, err := svc.Open(ctx, ApprovableUser, 2, 2)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, rec.ID, 42, "")
	require.NoError(t, err)

	_, err = svc.Approve(ctx, rec.ID, 42, "")
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Reject(ctx, rec.ID, 42, "too late")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRejectRequiresRemarks(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	rec, err := svc.Open(ctx, ApprovableUser, 3, 3)
	require.NoError(t, err)

	_, err = svc.Reject(ctx, rec.ID, 42, "  ")
	require.ErrorIs(t, err, ErrRemarksRequired)

	reviewed, err := svc.Reject(ctx, rec.ID, 42, "incomplete documents")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	require.NotNil(t, reviewed.ReviewedAt)
}

func TestReviewMissingRecord(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Approve(context.Background(), 999, 42, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentReviewersExactlyOneWins(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	rec, err := svc.Open(ctx, ApprovableUser, 4, 4)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = svc.Approve(ctx, rec.ID, 42, "")
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = svc.Reject(ctx, rec.ID, 43, "duplicate application")
	}()
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, ErrInvalidTransition)
			losses++
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, 1, losses)
}

func TestListPendingIsFIFO(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	first, err := svc.Open(ctx, ApprovableUser, 10, 10)
	require.NoError(t, err)
	second, err := svc.Open(ctx, ApprovableUser, 11, 11)
	require.NoError(t, err)
	third, err := svc.Open(ctx, ApprovableUser, 12, 12)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, second.ID, 42, "")
	require.NoError(t, err)

	pending, err := svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, first.ID, pending[0].ID)
	require.Equal(t, third.ID, pending[1].ID)
}
