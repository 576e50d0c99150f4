package fees

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elimucore/elimucore/internal/shared"
)

type memoryLedger struct {
	mu            sync.Mutex
	nextFeeID     int64
	nextPaymentID int64
	fees          map[int64]Fee
	payments      map[int64]Payment
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{fees: make(map[int64]Fee), payments: make(map[int64]Payment)}
}

func (m *memoryLedger) CreateFee(_ context.Context, f Fee) (Fee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextFeeID++
	f.ID = m.nextFeeID
	m.fees[f.ID] = f
	return f, nil
}

func (m *memoryLedger) GetFee(_ context.Context, id int64) (Fee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.fees[id]
	if !ok {
		return Fee{}, ErrNotFound
	}
	return f, nil
}

func (m *memoryLedger) ListFeesByStudent(_ context.Context, studentID int64) ([]Fee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Fee
	for _, f := range m.fees {
		if f.StudentID == studentID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memoryLedger) ListArrears(_ context.Context, asOf time.Time, _, _ int) ([]Fee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Fee
	for _, f := range m.fees {
		if f.AmountPaid < f.Amount && f.DueDate.Before(asOf) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memoryLedger) CreatePayment(_ context.Context, p Payment) (Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextPaymentID++
	p.ID = m.nextPaymentID
	m.payments[p.ID] = p
	return p, nil
}

func (m *memoryLedger) GetPayment(_ context.Context, id int64) (Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return Payment{}, ErrNotFound
	}
	return p, nil
}

func (m *memoryLedger) ListPaymentsByFee(_ context.Context, feeID int64) ([]Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Payment
	for _, p := range m.payments {
		if p.FeeID == feeID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryLedger) ListPendingPayments(_ context.Context, _, _ int) ([]Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Payment
	for _, p := range m.payments {
		if p.Status == PaymentPending {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryLedger) VerifyPayment(_ context.Context, paymentID, reviewerID int64) (Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok {
		return Payment{}, ErrNotFound
	}
	if p.Status != PaymentPending {
		return Payment{}, ErrAlreadyReviewed
	}
	now := time.Now()
	p.Status = PaymentVerified
	p.VerifiedBy = &reviewerID
	p.VerifiedAt = &now
	m.payments[paymentID] = p

	fee := m.fees[p.FeeID]
	fee.AmountPaid += p.Amount
	if fee.AmountPaid >= fee.Amount {
		fee.Status = FeePaid
	} else {
		fee.Status = FeePartial
	}
	m.fees[fee.ID] = fee
	return p, nil
}

func (m *memoryLedger) RejectPayment(_ context.Context, paymentID, reviewerID int64, remarks string) (Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok {
		return Payment{}, ErrNotFound
	}
	if p.Status != PaymentPending {
		return Payment{}, ErrAlreadyReviewed
	}
	now := time.Now()
	p.Status = PaymentRejected
	p.VerifiedBy = &reviewerID
	p.VerifiedAt = &now
	p.Remarks = remarks
	m.payments[paymentID] = p
	return p, nil
}

func (m *memoryLedger) Summarize(_ context.Context, from, to time.Time) (CollectionSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary := CollectionSummary{From: from, To: to}
	for _, f := range m.fees {
		summary.TotalBilled += f.Amount
	}
	for _, p := range m.payments {
		switch p.Status {
		case PaymentVerified:
			summary.TotalVerified += p.Amount
			summary.PaymentCount++
		case PaymentPending:
			summary.TotalPending += p.Amount
		}
	}
	return summary, nil
}

type nullAudit struct{}

func (nullAudit) Record(context.Context, shared.AuditLog) error { return nil }

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: make(map[string]bool)}
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

func newTestService(repo RepositoryPort) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, nullAudit{}, newMemoryIdempotency(), logger)
}

func billStudent(t *testing.T, svc *Service, amount int64) Fee {
	t.Helper()
	fee, err := svc.CreateFee(context.Background(), CreateFeeInput{
		StudentID: 1,
		FeeType:   "tuition",
		Term:      1,
		Year:      2026,
		Amount:    amount,
	})
	require.NoError(t, err)
	return fee
}

func TestRecordPaymentStartsPending(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	fee := billStudent(t, svc, 50_000_00)

	payment, err := svc.RecordPayment(context.Background(), 3, RecordPaymentInput{
		FeeID:  fee.ID,
		Amount: 20_000_00,
		Method: MethodMpesa,
	})
	require.NoError(t, err)
	assert.Equal(t, PaymentPending, payment.Status)
	assert.NotEmpty(t, payment.ReceiptNumber)
	assert.Equal(t, int64(3), payment.RecordedBy)

	unchanged, err := svc.GetFee(context.Background(), fee.ID)
	require.NoError(t, err)
	assert.Zero(t, unchanged.AmountPaid, "pending payment must not touch the balance")
}

func TestRecordPaymentRejectsOverpayment(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	fee := billStudent(t, svc, 10_000_00)

	_, err := svc.RecordPayment(context.Background(), 3, RecordPaymentInput{
		FeeID:  fee.ID,
		Amount: 10_000_01,
		Method: MethodCash,
	})
	assert.ErrorIs(t, err, ErrOverpayment)
}

func TestRecordPaymentIdempotencyKey(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	fee := billStudent(t, svc, 50_000_00)

	input := RecordPaymentInput{
		FeeID:          fee.ID,
		Amount:         5_000_00,
		Method:         MethodBank,
		IdempotencyKey: "req-abc",
	}
	_, err := svc.RecordPayment(context.Background(), 3, input)
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), 3, input)
	assert.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	assert.Len(t, repo.payments, 1)
}

func TestVerifyPaymentAppliesBalance(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	fee := billStudent(t, svc, 50_000_00)

	payment, err := svc.RecordPayment(context.Background(), 3, RecordPaymentInput{
		FeeID:  fee.ID,
		Amount: 20_000_00,
		Method: MethodMpesa,
	})
	require.NoError(t, err)

	verified, err := svc.VerifyPayment(context.Background(), 9, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentVerified, verified.Status)
	require.NotNil(t, verified.VerifiedBy)
	assert.Equal(t, int64(9), *verified.VerifiedBy)
	assert.NotNil(t, verified.VerifiedAt)

	updated, err := svc.GetFee(context.Background(), fee.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20_000_00), updated.AmountPaid)
	assert.Equal(t, FeePartial, updated.Status)
}

func TestVerifyPaymentSettlesFee(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	fee := billStudent(t, svc, 20_000_00)

	payment, err := svc.RecordPayment(context.Background(), 3, RecordPaymentInput{
		FeeID:  fee.ID,
		Amount: 20_000_00,
		Method: MethodCash,
	})
	require.NoError(t, err)

	_, err = svc.VerifyPayment(context.Background(), 9, payment.ID)
	require.NoError(t, err)

	updated, err := svc.GetFee(context.Background(), fee.ID)
	require.NoError(t, err)
	assert.Equal(t, FeePaid, updated.Status)
	assert.Zero(t, updated.Balance())
}

func TestVerifyPaymentIsSingleShot(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	fee := billStudent(t, svc, 50_000_00)

	payment, err := svc.RecordPayment(context.Background(), 3, RecordPaymentInput{
		FeeID:  fee.ID,
		Amount: 10_000_00,
		Method: MethodMpesa,
	})
	require.NoError(t, err)

	_, err = svc.VerifyPayment(context.Background(), 9, payment.ID)
	require.NoError(t, err)

	_, err = svc.VerifyPayment(context.Background(), 10, payment.ID)
	assert.ErrorIs(t, err, ErrAlreadyReviewed)

	_, err = svc.RejectPayment(context.Background(), 10, payment.ID, "duplicate")
	assert.ErrorIs(t, err, ErrAlreadyReviewed)

	updated, err := svc.GetFee(context.Background(), fee.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_00), updated.AmountPaid, "balance applied exactly once")
}

func TestConcurrentVerifiersExactlyOneWins(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	fee := billStudent(t, svc, 50_000_00)

	payment, err := svc.RecordPayment(context.Background(), 3, RecordPaymentInput{
		FeeID:  fee.ID,
		Amount: 10_000_00,
		Method: MethodMpesa,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.VerifyPayment(context.Background(), int64(100+i), payment.ID)
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrAlreadyReviewed):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)

	updated, err := svc.GetFee(context.Background(), fee.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_00), updated.AmountPaid)
}

func TestRejectPaymentRequiresRemarks(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	fee := billStudent(t, svc, 50_000_00)

	payment, err := svc.RecordPayment(context.Background(), 3, RecordPaymentInput{
		FeeID:  fee.ID,
		Amount: 10_000_00,
		Method: MethodCheque,
	})
	require.NoError(t, err)

	_, err = svc.RejectPayment(context.Background(), 9, payment.ID, "  ")
	assert.ErrorIs(t, err, ErrRemarksRequired)

	rejected, err := svc.RejectPayment(context.Background(), 9, payment.ID, "cheque bounced")
	require.NoError(t, err)
	assert.Equal(t, PaymentRejected, rejected.Status)
	assert.Equal(t, "cheque bounced", rejected.Remarks)

	unchanged, err := svc.GetFee(context.Background(), fee.ID)
	require.NoError(t, err)
	assert.Zero(t, unchanged.AmountPaid)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "KES 1,234.50", FormatMoney(123_450))
	assert.Equal(t, "KES 0.00", FormatMoney(0))
}
