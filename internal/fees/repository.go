package fees

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elimucore/elimucore/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const feeColumns = `id, student_id, fee_type, term, year, amount, amount_paid, due_date, status, created_at, updated_at`

func scanFee(row pgx.Row) (Fee, error) {
	var f Fee
	var status string
	if err := row.Scan(&f.ID, &f.StudentID, &f.FeeType, &f.Term, &f.Year,
		&f.Amount, &f.AmountPaid, &f.DueDate, &status, &f.CreatedAt, &f.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Fee{}, ErrNotFound
		}
		return Fee{}, err
	}
	f.Status = FeeStatus(status)
	return f, nil
}

// CreateFee inserts a billing line.
func (r *Repository) CreateFee(ctx context.Context, f Fee) (Fee, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO fees
(student_id, fee_type, term, year, amount, amount_paid, due_date, status)
VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
RETURNING `+feeColumns,
		f.StudentID, f.FeeType, f.Term, f.Year, f.Amount, f.DueDate, string(f.Status))
	return scanFee(row)
}

// GetFee fetches a fee by ID.
func (r *Repository) GetFee(ctx context.Context, id int64) (Fee, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+feeColumns+` FROM fees WHERE id = $1`, id)
	return scanFee(row)
}

// ListFeesByStudent returns a student's billing lines, newest year first.
func (r *Repository) ListFeesByStudent(ctx context.Context, studentID int64) ([]Fee, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+feeColumns+` FROM fees
WHERE student_id = $1
ORDER BY year DESC, term DESC, id DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFees(rows)
}

// ListArrears returns fees with an unpaid balance past their due date.
func (r *Repository) ListArrears(ctx context.Context, asOf time.Time, limit, offset int) ([]Fee, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+feeColumns+` FROM fees
WHERE amount_paid < amount AND due_date < $1
ORDER BY due_date ASC, id ASC
LIMIT $2 OFFSET $3`, asOf, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFees(rows)
}

const paymentColumns = `id, fee_id, student_id, amount, method, transaction_ref, receipt_number, payment_date, status, remarks, recorded_by, verified_by, verified_at, created_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	var method, status string
	if err := row.Scan(&p.ID, &p.FeeID, &p.StudentID, &p.Amount, &method,
		&p.TransactionRef, &p.ReceiptNumber, &p.PaymentDate, &status, &p.Remarks,
		&p.RecordedBy, &p.VerifiedBy, &p.VerifiedAt, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Payment{}, ErrNotFound
		}
		return Payment{}, err
	}
	p.Method = PaymentMethod(method)
	p.Status = PaymentStatus(status)
	return p, nil
}

// CreatePayment inserts a pending payment row.
func (r *Repository) CreatePayment(ctx context.Context, p Payment) (Payment, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO fee_payments
(fee_id, student_id, amount, method, transaction_ref, receipt_number, payment_date, status, remarks, recorded_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING `+paymentColumns,
		p.FeeID, p.StudentID, p.Amount, string(p.Method), p.TransactionRef,
		p.ReceiptNumber, p.PaymentDate, string(p.Status), p.Remarks, p.RecordedBy)
	return scanPayment(row)
}

// GetPayment fetches a payment by ID.
func (r *Repository) GetPayment(ctx context.Context, id int64) (Payment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM fee_payments WHERE id = $1`, id)
	return scanPayment(row)
}

// ListPaymentsByFee returns a fee's payments, oldest first.
func (r *Repository) ListPaymentsByFee(ctx context.Context, feeID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+` FROM fee_payments
WHERE fee_id = $1 ORDER BY created_at ASC, id ASC`, feeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPayments(rows)
}

// ListPendingPayments returns unreviewed payments in arrival order.
func (r *Repository) ListPendingPayments(ctx context.Context, limit, offset int) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+` FROM fee_payments
WHERE status = 'pending'
ORDER BY created_at ASC, id ASC
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPayments(rows)
}

// VerifyPayment flips a pending payment to verified and applies its amount to
// the fee balance in the same transaction. The conditional update ensures only
// one reviewer wins when two race on the same payment.
func (r *Repository) VerifyPayment(ctx context.Context, paymentID, reviewerID int64) (Payment, error) {
	var payment Payment
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `UPDATE fee_payments SET
status = 'verified', verified_by = $2, verified_at = NOW()
WHERE id = $1 AND status = 'pending'
RETURNING `+paymentColumns, paymentID, reviewerID)
		p, err := scanPayment(row)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return r.classifyReviewMiss(ctx, tx, paymentID)
			}
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE fees SET
amount_paid = amount_paid + $2,
status = CASE
  WHEN amount_paid + $2 >= amount THEN 'paid'
  ELSE 'partial'
END,
updated_at = NOW()
WHERE id = $1`, p.FeeID, p.Amount); err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return Payment{}, err
	}
	return payment, nil
}

// RejectPayment flips a pending payment to rejected with the reviewer's
// remarks. The fee balance is untouched.
func (r *Repository) RejectPayment(ctx context.Context, paymentID, reviewerID int64, remarks string) (Payment, error) {
	var payment Payment
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `UPDATE fee_payments SET
status = 'rejected', verified_by = $2, verified_at = NOW(), remarks = $3
WHERE id = $1 AND status = 'pending'
RETURNING `+paymentColumns, paymentID, reviewerID, remarks)
		p, err := scanPayment(row)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return r.classifyReviewMiss(ctx, tx, paymentID)
			}
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return Payment{}, err
	}
	return payment, nil
}

// classifyReviewMiss distinguishes a missing payment from one that has already
// left the pending state.
func (r *Repository) classifyReviewMiss(ctx context.Context, tx pgx.Tx, paymentID int64) error {
	var status string
	err := tx.QueryRow(ctx, `SELECT status FROM fee_payments WHERE id = $1`, paymentID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrAlreadyReviewed
}

// Summarize aggregates billing and verified collections over a period.
func (r *Repository) Summarize(ctx context.Context, from, to time.Time) (CollectionSummary, error) {
	summary := CollectionSummary{From: from, To: to}
	row := r.pool.QueryRow(ctx, `SELECT
COALESCE((SELECT SUM(amount) FROM fees WHERE created_at >= $1 AND created_at <= $2), 0),
COALESCE(SUM(amount) FILTER (WHERE status = 'verified'), 0),
COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0),
COUNT(*) FILTER (WHERE status = 'verified')
FROM fee_payments
WHERE payment_date >= $1 AND payment_date <= $2`, from, to)
	if err := row.Scan(&summary.TotalBilled, &summary.TotalVerified, &summary.TotalPending, &summary.PaymentCount); err != nil {
		return CollectionSummary{}, err
	}
	return summary, nil
}

func collectFees(rows pgx.Rows) ([]Fee, error) {
	var fees []Fee
	for rows.Next() {
		f, err := scanFee(rows)
		if err != nil {
			return nil, err
		}
		fees = append(fees, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return fees, nil
}

func collectPayments(rows pgx.Rows) ([]Payment, error) {
	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}
