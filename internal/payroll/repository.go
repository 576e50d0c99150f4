package payroll

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const runColumns = `id, staff_id, month, basic_salary, allowances, deductions, status, generated_by, approved_by, approved_at, paid_at, created_at, updated_at`

func scanRun(row pgx.Row) (Run, error) {
	var r Run
	var status string
	if err := row.Scan(&r.ID, &r.StaffID, &r.Month, &r.BasicSalary, &r.Allowances,
		&r.Deductions, &status, &r.GeneratedBy, &r.ApprovedBy, &r.ApprovedAt,
		&r.PaidAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, err
	}
	r.Status = Status(status)
	return r, nil
}

// Create inserts a draft run.
func (r *Repository) Create(ctx context.Context, run Run) (Run, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO payroll_runs
(staff_id, month, basic_salary, allowances, deductions, status, generated_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+runColumns,
		run.StaffID, run.Month, run.BasicSalary, run.Allowances, run.Deductions,
		string(run.Status), run.GeneratedBy)
	created, err := scanRun(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Run{}, ErrDuplicateRun
		}
		return Run{}, err
	}
	return created, nil
}

// Get fetches a run by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Run, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM payroll_runs WHERE id = $1`, id)
	return scanRun(row)
}

// ListByMonth returns all runs for a month.
func (r *Repository) ListByMonth(ctx context.Context, month time.Time) ([]Run, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+runColumns+` FROM payroll_runs
WHERE month = $1 ORDER BY staff_id ASC`, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRuns(rows)
}

// ListByStaff returns a staff member's pay history, newest first.
func (r *Repository) ListByStaff(ctx context.Context, staffID int64) ([]Run, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+runColumns+` FROM payroll_runs
WHERE staff_id = $1 ORDER BY month DESC`, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRuns(rows)
}

// Approve flips a draft run to approved. The conditional update ensures only
// the first approver wins.
func (r *Repository) Approve(ctx context.Context, runID, approverID int64) (Run, error) {
	row := r.pool.QueryRow(ctx, `UPDATE payroll_runs SET
status = 'approved', approved_by = $2, approved_at = NOW(), updated_at = NOW()
WHERE id = $1 AND status = 'draft'
RETURNING `+runColumns, runID, approverID)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Run{}, r.classifyMiss(ctx, runID)
		}
		return Run{}, err
	}
	return run, nil
}

// MarkPaid flips an approved run to paid. A draft cannot be paid directly.
func (r *Repository) MarkPaid(ctx context.Context, runID int64) (Run, error) {
	row := r.pool.QueryRow(ctx, `UPDATE payroll_runs SET
status = 'paid', paid_at = NOW(), updated_at = NOW()
WHERE id = $1 AND status = 'approved'
RETURNING `+runColumns, runID)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Run{}, r.classifyMiss(ctx, runID)
		}
		return Run{}, err
	}
	return run, nil
}

// classifyMiss distinguishes a missing run from one in the wrong state.
func (r *Repository) classifyMiss(ctx context.Context, runID int64) error {
	var status string
	err := r.pool.QueryRow(ctx, `SELECT status FROM payroll_runs WHERE id = $1`, runID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrInvalidTransition
}

func collectRuns(rows pgx.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}
