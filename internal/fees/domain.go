// Package fees bills students and reconciles their payments.
//
// Payments follow a two-step flow. Recording a payment only creates a pending
// row; a bursar must verify it before it counts against the fee balance.
// Verification and rejection are single-shot, a payment reviewed once cannot
// be reviewed again.
package fees

import (
	"errors"
	"time"
)

// Fee billing statuses, derived from the paid amount.
type FeeStatus string

const (
	FeePending FeeStatus = "pending"
	FeePartial FeeStatus = "partial"
	FeePaid    FeeStatus = "paid"
	FeeOverdue FeeStatus = "overdue"
)

// Payment statuses.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentVerified PaymentStatus = "verified"
	PaymentRejected PaymentStatus = "rejected"
)

// Payment methods accepted by the school.
type PaymentMethod string

const (
	MethodCash    PaymentMethod = "cash"
	MethodMpesa   PaymentMethod = "mpesa"
	MethodBank    PaymentMethod = "bank_transfer"
	MethodCheque  PaymentMethod = "cheque"
	MethodBursary PaymentMethod = "bursary"
)

// Valid reports whether the payment method is a known value.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodMpesa, MethodBank, MethodCheque, MethodBursary:
		return true
	}
	return false
}

// Fee is one billing line for a student in a term. Amounts are in cents.
type Fee struct {
	ID         int64
	StudentID  int64
	FeeType    string
	Term       int
	Year       int
	Amount     int64
	AmountPaid int64
	DueDate    time.Time
	Status     FeeStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Balance returns the unpaid remainder in cents.
func (f Fee) Balance() int64 {
	return f.Amount - f.AmountPaid
}

// Payment is money received against a fee. Amount is in cents. VerifiedBy and
// VerifiedAt are set only once, when a bursar reviews the payment.
type Payment struct {
	ID             int64
	FeeID          int64
	StudentID      int64
	Amount         int64
	Method         PaymentMethod
	TransactionRef string
	ReceiptNumber  string
	PaymentDate    time.Time
	Status         PaymentStatus
	Remarks        string
	RecordedBy     int64
	VerifiedBy     *int64
	VerifiedAt     *time.Time
	CreatedAt      time.Time
}

// CollectionSummary aggregates verified payments over a period.
type CollectionSummary struct {
	From          time.Time
	To            time.Time
	TotalBilled   int64
	TotalVerified int64
	TotalPending  int64
	PaymentCount  int
}

var (
	// ErrNotFound indicates the fee or payment does not exist.
	ErrNotFound = errors.New("fees: not found")
	// ErrAlreadyReviewed indicates the payment left the pending state.
	ErrAlreadyReviewed = errors.New("fees: payment already reviewed")
	// ErrRemarksRequired indicates a rejection is missing its remarks.
	ErrRemarksRequired = errors.New("fees: rejection requires remarks")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("fees: invalid input")
	// ErrOverpayment indicates the payment exceeds the outstanding balance.
	ErrOverpayment = errors.New("fees: payment exceeds outstanding balance")
)
