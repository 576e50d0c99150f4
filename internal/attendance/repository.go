package attendance

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

const entryColumns = `id, student_id, class_level_id, date, subject, mark, remarks, recorded_by, created_at, updated_at`

const upsertEntry = `INSERT INTO attendance_entries
(student_id, class_level_id, date, subject, mark, remarks, recorded_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (student_id, date, subject) DO UPDATE SET
mark = EXCLUDED.mark, remarks = EXCLUDED.remarks,
recorded_by = EXCLUDED.recorded_by, updated_at = NOW()
RETURNING ` + entryColumns

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	var mark string
	if err := row.Scan(&e.ID, &e.StudentID, &e.ClassLevelID, &e.Date, &e.Subject,
		&mark, &e.Remarks, &e.RecordedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	e.Mark = Mark(mark)
	return e, nil
}

// Upsert writes an attendance mark. Recording the same (student, date,
// subject) again replaces the earlier mark.
func (r *Repository) Upsert(ctx context.Context, e Entry) (Entry, error) {
	row := r.pool.QueryRow(ctx, upsertEntry,
		e.StudentID, e.ClassLevelID, e.Date, e.Subject, string(e.Mark), e.Remarks, e.RecordedBy)
	return scanEntry(row)
}

// UpsertBatch writes a class register in one transaction. All entries land or
// none do.
func (r *Repository) UpsertBatch(ctx context.Context, entries []Entry) ([]Entry, error) {
	saved := make([]Entry, 0, len(entries))
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, e := range entries {
			row := tx.QueryRow(ctx, upsertEntry,
				e.StudentID, e.ClassLevelID, e.Date, e.Subject, string(e.Mark), e.Remarks, e.RecordedBy)
			entry, err := scanEntry(row)
			if err != nil {
				return err
			}
			saved = append(saved, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// ListByClass returns the register of a class on a date.
func (r *Repository) ListByClass(ctx context.Context, classLevelID int64, date time.Time) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM attendance_entries
WHERE class_level_id = $1 AND date = $2
ORDER BY student_id ASC, subject ASC`, classLevelID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

// ListByStudent returns a student's marks inside a date range.
func (r *Repository) ListByStudent(ctx context.Context, studentID int64, from, to time.Time) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM attendance_entries
WHERE student_id = $1 AND date >= $2 AND date <= $3
ORDER BY date DESC, subject ASC`, studentID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

// Summarize aggregates a student's marks inside a date range.
func (r *Repository) Summarize(ctx context.Context, studentID int64, from, to time.Time) (Summary, error) {
	row := r.pool.QueryRow(ctx, `SELECT
COUNT(*) FILTER (WHERE mark = 'present'),
COUNT(*) FILTER (WHERE mark = 'absent'),
COUNT(*) FILTER (WHERE mark = 'late'),
COUNT(*) FILTER (WHERE mark = 'excused')
FROM attendance_entries
WHERE student_id = $1 AND date >= $2 AND date <= $3`, studentID, from, to)
	summary := Summary{StudentID: studentID}
	if err := row.Scan(&summary.Present, &summary.Absent, &summary.Late, &summary.Excused); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

func collectEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
