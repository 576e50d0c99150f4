package reports

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
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

const reportColumns = `id, type, status, params, artifact_path, error, requested_by, created_at, completed_at`

func scanReport(row pgx.Row) (Report, error) {
	var r Report
	var reportType, status string
	var params []byte
	if err := row.Scan(&r.ID, &reportType, &status, &params, &r.ArtifactPath,
		&r.Error, &r.RequestedBy, &r.CreatedAt, &r.CompletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Report{}, ErrNotFound
		}
		return Report{}, err
	}
	r.Type = Type(reportType)
	r.Status = Status(status)
	if len(params) > 0 {
		if err := json.Unmarshal(params, &r.Params); err != nil {
			return Report{}, err
		}
	}
	return r, nil
}

// Create inserts a queued report.
func (r *Repository) Create(ctx context.Context, report Report) (Report, error) {
	params, err := json.Marshal(report.Params)
	if err != nil {
		return Report{}, err
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO reports
(id, type, status, params, requested_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+reportColumns,
		report.ID, string(report.Type), string(report.Status), params, report.RequestedBy)
	return scanReport(row)
}

// Get fetches a report by ID.
func (r *Repository) Get(ctx context.Context, id string) (Report, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
	return scanReport(row)
}

// List returns reports, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Report, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+reportColumns+` FROM reports
ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reports []Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

// MarkRunning flips a queued report to running. Only the first worker wins.
func (r *Repository) MarkRunning(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE reports SET status = 'running'
WHERE id = $1 AND status = 'queued'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkCompleted stores the artifact path on success.
func (r *Repository) MarkCompleted(ctx context.Context, id, artifactPath string) error {
	_, err := r.pool.Exec(ctx, `UPDATE reports SET
status = 'completed', artifact_path = $2, completed_at = NOW()
WHERE id = $1`, id, artifactPath)
	return err
}

// MarkFailed stores the failure reason.
func (r *Repository) MarkFailed(ctx context.Context, id, reason string) error {
	_, err := r.pool.Exec(ctx, `UPDATE reports SET
status = 'failed', error = $2, completed_at = NOW()
WHERE id = $1`, id, reason)
	return err
}
