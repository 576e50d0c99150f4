package approvals

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elimucore/elimucore/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for the ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = `id, approvable_type, approvable_id, user_id, status, reviewed_by, review_remarks, reviewed_at, created_at`

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var typ, status string
	if err := row.Scan(&rec.ID, &typ, &rec.ApprovableID, &rec.UserID, &status,
		&rec.ReviewedBy, &rec.ReviewRemarks, &rec.ReviewedAt, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	rec.ApprovableType = ApprovableType(typ)
	rec.Status = Status(status)
	return rec, nil
}

// Open inserts a pending record. The unique constraint on
// (approvable_type, approvable_id) turns a second open into
// ErrDuplicateApproval rather than a best-effort check.
func (r *Repository) Open(ctx context.Context, typ ApprovableType, approvableID, userID int64) (Record, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO approvals (approvable_type, approvable_id, user_id, status)
VALUES ($1, $2, $3, 'pending')
RETURNING `+recordColumns, string(typ), approvableID, userID)
	rec, err := scanRecord(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Record{}, ErrDuplicateApproval
		}
		return Record{}, err
	}
	return rec, nil
}

// Get fetches a record by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Record, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM approvals WHERE id = $1`, id)
	return scanRecord(row)
}

// ListPending returns pending records in creation order (FIFO review queue).
func (r *Repository) ListPending(ctx context.Context) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+recordColumns+` FROM approvals WHERE status = 'pending' ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Review atomically moves a pending record to a terminal status. The UPDATE
// is conditioned on status still being pending, so concurrent reviewers race
// on the row itself: exactly one wins, the loser sees ErrInvalidTransition.
// Approving a user registration flips the account's is_approved flag in the
// same transaction.
func (r *Repository) Review(ctx context.Context, id int64, status Status, reviewerID int64, remarks string, at time.Time) (Record, error) {
	var reviewed Record
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `UPDATE approvals
SET status = $2, reviewed_by = $3, review_remarks = $4, reviewed_at = $5
WHERE id = $1 AND status = 'pending'
RETURNING `+recordColumns, id, string(status), reviewerID, remarks, at.UTC())
		rec, err := scanRecord(row)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Distinguish a missing record from an already-reviewed one.
				existing := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM approvals WHERE id = $1`, id)
				if _, getErr := scanRecord(existing); getErr != nil {
					return getErr
				}
				return ErrInvalidTransition
			}
			return err
		}
		if rec.ApprovableType == ApprovableUser && status == StatusApproved {
			if _, err := tx.Exec(ctx, `UPDATE users SET is_approved = true, updated_at = NOW() WHERE id = $1`, rec.ApprovableID); err != nil {
				return err
			}
			// Student rows mirror their linked account's approval.
			if _, err := tx.Exec(ctx, `UPDATE students SET is_approved = true, updated_at = NOW() WHERE user_id = $1`, rec.ApprovableID); err != nil {
				return err
			}
		}
		reviewed = rec
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return reviewed, nil
}
