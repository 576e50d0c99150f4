package grades

import (
	"context"
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

const gradeColumns = `id, student_id, subject, exam_type, term, year, marks, band, recorded_by, created_at, updated_at`

func scanGrade(row pgx.Row) (Grade, error) {
	var g Grade
	var examType, band string
	if err := row.Scan(&g.ID, &g.StudentID, &g.Subject, &examType, &g.Term, &g.Year,
		&g.Marks, &band, &g.RecordedBy, &g.CreatedAt, &g.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Grade{}, ErrNotFound
		}
		return Grade{}, err
	}
	g.ExamType = ExamType(examType)
	g.Band = Band(band)
	return g, nil
}

// Upsert writes a grade. Recording the same (student, subject, exam, term,
// year) again replaces the earlier mark.
func (r *Repository) Upsert(ctx context.Context, g Grade) (Grade, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO grades
(student_id, subject, exam_type, term, year, marks, band, recorded_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (student_id, subject, exam_type, term, year) DO UPDATE SET
marks = EXCLUDED.marks, band = EXCLUDED.band,
recorded_by = EXCLUDED.recorded_by, updated_at = NOW()
RETURNING `+gradeColumns,
		g.StudentID, g.Subject, string(g.ExamType), g.Term, g.Year,
		g.Marks, string(g.Band), g.RecordedBy)
	return scanGrade(row)
}

// ListByStudent returns a student's grades for a term.
func (r *Repository) ListByStudent(ctx context.Context, studentID int64, term, year int) ([]Grade, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+gradeColumns+` FROM grades
WHERE student_id = $1 AND ($2 = 0 OR term = $2) AND ($3 = 0 OR year = $3)
ORDER BY year DESC, term DESC, subject ASC, exam_type ASC`, studentID, term, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGrades(rows)
}

// ListBySubject returns a class subject's grades for one exam.
func (r *Repository) ListBySubject(ctx context.Context, subject string, examType ExamType, term, year int) ([]Grade, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+gradeColumns+` FROM grades
WHERE subject = $1 AND exam_type = $2 AND term = $3 AND year = $4
ORDER BY marks DESC, student_id ASC`, subject, string(examType), term, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGrades(rows)
}

func collectGrades(rows pgx.Rows) ([]Grade, error) {
	var grades []Grade
	for rows.Next() {
		g, err := scanGrade(rows)
		if err != nil {
			return nil, err
		}
		grades = append(grades, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grades, nil
}
