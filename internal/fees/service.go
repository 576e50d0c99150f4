package fees

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/elimucore/elimucore/internal/shared"
)

// RepositoryPort describes persistence used by the Service.
type RepositoryPort interface {
	CreateFee(ctx context.Context, f Fee) (Fee, error)
	GetFee(ctx context.Context, id int64) (Fee, error)
	ListFeesByStudent(ctx context.Context, studentID int64) ([]Fee, error)
	ListArrears(ctx context.Context, asOf time.Time, limit, offset int) ([]Fee, error)
	CreatePayment(ctx context.Context, p Payment) (Payment, error)
	GetPayment(ctx context.Context, id int64) (Payment, error)
	ListPaymentsByFee(ctx context.Context, feeID int64) ([]Payment, error)
	ListPendingPayments(ctx context.Context, limit, offset int) ([]Payment, error)
	VerifyPayment(ctx context.Context, paymentID, reviewerID int64) (Payment, error)
	RejectPayment(ctx context.Context, paymentID, reviewerID int64, remarks string) (Payment, error)
	Summarize(ctx context.Context, from, to time.Time) (CollectionSummary, error)
}

// AuditPort records financial-impact transitions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort absorbs client retries on payment recording.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service handles fee billing and payment reconciliation.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	idem   IdempotencyPort
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, idem: idem, logger: logger}
}

// CreateFeeInput carries a new billing line.
type CreateFeeInput struct {
	StudentID int64
	FeeType   string
	Term      int
	Year      int
	Amount    int64
	DueDate   time.Time
}

// CreateFee bills a student for a term.
func (s *Service) CreateFee(ctx context.Context, input CreateFeeInput) (Fee, error) {
	input.FeeType = strings.TrimSpace(input.FeeType)
	if input.StudentID == 0 || input.FeeType == "" || input.Amount <= 0 {
		return Fee{}, ErrValidation
	}
	if input.Term < 1 || input.Term > 3 {
		return Fee{}, ErrValidation
	}
	if input.Year < 2000 {
		return Fee{}, ErrValidation
	}
	dueDate := input.DueDate
	if dueDate.IsZero() {
		dueDate = time.Now().AddDate(0, 1, 0)
	}
	return s.repo.CreateFee(ctx, Fee{
		StudentID: input.StudentID,
		FeeType:   input.FeeType,
		Term:      input.Term,
		Year:      input.Year,
		Amount:    input.Amount,
		DueDate:   dueDate,
		Status:    FeePending,
	})
}

// GetFee fetches one billing line.
func (s *Service) GetFee(ctx context.Context, id int64) (Fee, error) {
	return s.repo.GetFee(ctx, id)
}

// StudentFees returns a student's billing lines.
func (s *Service) StudentFees(ctx context.Context, studentID int64) ([]Fee, error) {
	if studentID == 0 {
		return nil, ErrValidation
	}
	return s.repo.ListFeesByStudent(ctx, studentID)
}

// Arrears returns overdue fees with an outstanding balance.
func (s *Service) Arrears(ctx context.Context, limit, offset int) ([]Fee, error) {
	limit = shared.ClampLimit(limit, 50, 200)
	offset = shared.ClampOffset(offset)
	return s.repo.ListArrears(ctx, time.Now(), limit, offset)
}

// RecordPaymentInput carries money received against a fee.
type RecordPaymentInput struct {
	FeeID          int64
	Amount         int64
	Method         PaymentMethod
	TransactionRef string
	PaymentDate    time.Time
	Remarks        string
	IdempotencyKey string
}

// RecordPayment creates a pending payment awaiting verification. The payment
// does not touch the fee balance until a bursar verifies it. A receipt number
// is issued immediately so the payer has a reference.
func (s *Service) RecordPayment(ctx context.Context, recordedBy int64, input RecordPaymentInput) (Payment, error) {
	if input.FeeID == 0 || input.Amount <= 0 || !input.Method.Valid() {
		return Payment{}, ErrValidation
	}
	fee, err := s.repo.GetFee(ctx, input.FeeID)
	if err != nil {
		return Payment{}, err
	}
	if input.Amount > fee.Balance() {
		return Payment{}, ErrOverpayment
	}
	if input.IdempotencyKey != "" {
		if err := s.idem.CheckAndInsert(ctx, input.IdempotencyKey, "fees"); err != nil {
			return Payment{}, err
		}
	}
	paymentDate := input.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}
	payment, err := s.repo.CreatePayment(ctx, Payment{
		FeeID:          fee.ID,
		StudentID:      fee.StudentID,
		Amount:         input.Amount,
		Method:         input.Method,
		TransactionRef: strings.TrimSpace(input.TransactionRef),
		ReceiptNumber:  "RCT-" + uuid.NewString(),
		PaymentDate:    paymentDate,
		Status:         PaymentPending,
		Remarks:        strings.TrimSpace(input.Remarks),
		RecordedBy:     recordedBy,
	})
	if err != nil {
		if input.IdempotencyKey != "" {
			if delErr := s.idem.Delete(ctx, input.IdempotencyKey); delErr != nil {
				s.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		return Payment{}, err
	}
	return payment, nil
}

// VerifyPayment confirms a pending payment and applies it to the fee balance.
// Only the first reviewer succeeds.
func (s *Service) VerifyPayment(ctx context.Context, reviewerID, paymentID int64) (Payment, error) {
	payment, err := s.repo.VerifyPayment(ctx, paymentID, reviewerID)
	if err != nil {
		return Payment{}, err
	}
	s.recordAudit(ctx, reviewerID, "PAYMENT_VERIFY", payment)
	return payment, nil
}

// RejectPayment refuses a pending payment. Remarks are mandatory so the payer
// knows why.
func (s *Service) RejectPayment(ctx context.Context, reviewerID, paymentID int64, remarks string) (Payment, error) {
	remarks = strings.TrimSpace(remarks)
	if remarks == "" {
		return Payment{}, ErrRemarksRequired
	}
	payment, err := s.repo.RejectPayment(ctx, paymentID, reviewerID, remarks)
	if err != nil {
		return Payment{}, err
	}
	s.recordAudit(ctx, reviewerID, "PAYMENT_REJECT", payment)
	return payment, nil
}

// GetPayment fetches one payment.
func (s *Service) GetPayment(ctx context.Context, id int64) (Payment, error) {
	return s.repo.GetPayment(ctx, id)
}

// FeePayments returns a fee's payments.
func (s *Service) FeePayments(ctx context.Context, feeID int64) ([]Payment, error) {
	if feeID == 0 {
		return nil, ErrValidation
	}
	return s.repo.ListPaymentsByFee(ctx, feeID)
}

// PendingPayments returns unreviewed payments in arrival order.
func (s *Service) PendingPayments(ctx context.Context, limit, offset int) ([]Payment, error) {
	limit = shared.ClampLimit(limit, 50, 200)
	offset = shared.ClampOffset(offset)
	return s.repo.ListPendingPayments(ctx, limit, offset)
}

// CollectionReport aggregates collections over a period. An empty range
// defaults to the current month.
func (s *Service) CollectionReport(ctx context.Context, from, to time.Time) (CollectionSummary, error) {
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, to.Location())
	}
	return s.repo.Summarize(ctx, from, to)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, payment Payment) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "fee_payment",
		EntityID: strconv.FormatInt(payment.ID, 10),
		Meta: map[string]any{
			"fee_id":  payment.FeeID,
			"amount":  payment.Amount,
			"receipt": payment.ReceiptNumber,
		},
	})
	if err != nil {
		s.logger.Warn("audit record failed",
			slog.String("action", action),
			slog.Int64("payment_id", payment.ID),
			slog.Any("error", err))
	}
}
