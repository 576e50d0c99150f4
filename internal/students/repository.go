package students

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

const studentColumns = `id, user_id, admission_number, national_id, class_level_id, stream, date_of_birth, gender, phone, admission_date, status, is_approved, created_at, updated_at`

func scanStudent(row pgx.Row) (Student, error) {
	var s Student
	var status string
	if err := row.Scan(&s.ID, &s.UserID, &s.AdmissionNumber, &s.NationalID, &s.ClassLevelID,
		&s.Stream, &s.DateOfBirth, &s.Gender, &s.Phone, &s.AdmissionDate, &status,
		&s.IsApproved, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Student{}, ErrNotFound
		}
		return Student{}, err
	}
	s.Status = Status(status)
	return s, nil
}

// List returns students filtered by class level and status.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Student, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+studentColumns+` FROM students
WHERE ($1 = 0 OR class_level_id = $1)
  AND ($2 = '' OR status = $2)
ORDER BY admission_number ASC
LIMIT $3 OFFSET $4`, filters.ClassLevelID, string(filters.Status), filters.Limit, filters.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var students []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return students, nil
}

// Get fetches a student by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Student, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	return scanStudent(row)
}

// Create inserts a student row.
func (r *Repository) Create(ctx context.Context, s Student) (Student, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO students
(user_id, admission_number, national_id, class_level_id, stream, date_of_birth, gender, phone, admission_date, status, is_approved)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING `+studentColumns,
		s.UserID, s.AdmissionNumber, s.NationalID, s.ClassLevelID, s.Stream,
		s.DateOfBirth, s.Gender, s.Phone, s.AdmissionDate, string(s.Status), s.IsApproved)
	created, err := scanStudent(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Student{}, ErrDuplicateAdmission
		}
		return Student{}, err
	}
	return created, nil
}

// Update rewrites the mutable fields of a student.
func (r *Repository) Update(ctx context.Context, s Student) (Student, error) {
	row := r.pool.QueryRow(ctx, `UPDATE students SET
national_id = $2, class_level_id = $3, stream = $4, date_of_birth = $5,
gender = $6, phone = $7, status = $8, updated_at = NOW()
WHERE id = $1
RETURNING `+studentColumns,
		s.ID, s.NationalID, s.ClassLevelID, s.Stream, s.DateOfBirth, s.Gender, s.Phone, string(s.Status))
	return scanStudent(row)
}

// Delete removes a student. Returns ErrNotFound when nothing was deleted.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const guardianColumns = `id, student_id, name, relationship, phone, email, id_number, occupation, address, contact_priority, created_at`

func scanGuardian(row pgx.Row) (Guardian, error) {
	var g Guardian
	var priority string
	if err := row.Scan(&g.ID, &g.StudentID, &g.Name, &g.Relationship, &g.Phone, &g.Email,
		&g.IDNumber, &g.Occupation, &g.Address, &priority, &g.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Guardian{}, ErrNotFound
		}
		return Guardian{}, err
	}
	g.ContactPriority = ContactPriority(priority)
	return g, nil
}

// ListGuardians returns a student's guardians, primary first.
func (r *Repository) ListGuardians(ctx context.Context, studentID int64) ([]Guardian, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+guardianColumns+` FROM guardians
WHERE student_id = $1
ORDER BY CASE contact_priority WHEN 'primary' THEN 0 WHEN 'secondary' THEN 1 ELSE 2 END, id`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var guardians []Guardian
	for rows.Next() {
		g, err := scanGuardian(rows)
		if err != nil {
			return nil, err
		}
		guardians = append(guardians, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return guardians, nil
}

// AddGuardian inserts a guardian. When the new guardian is primary, any
// existing primary is demoted in the same transaction so the single-primary
// invariant holds.
func (r *Repository) AddGuardian(ctx context.Context, g Guardian) (Guardian, error) {
	var created Guardian
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if g.ContactPriority == PriorityPrimary {
			if _, err := tx.Exec(ctx, `UPDATE guardians SET contact_priority = 'secondary'
WHERE student_id = $1 AND contact_priority = 'primary'`, g.StudentID); err != nil {
				return err
			}
		}
		row := tx.QueryRow(ctx, `INSERT INTO guardians
(student_id, name, relationship, phone, email, id_number, occupation, address, contact_priority)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+guardianColumns,
			g.StudentID, g.Name, g.Relationship, g.Phone, g.Email, g.IDNumber,
			g.Occupation, g.Address, string(g.ContactPriority))
		var err error
		created, err = scanGuardian(row)
		return err
	})
	if err != nil {
		return Guardian{}, err
	}
	return created, nil
}

// ListClassLevels returns class levels in teaching order.
func (r *Repository) ListClassLevels(ctx context.Context) ([]ClassLevel, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, level, description FROM class_levels ORDER BY level`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var levels []ClassLevel
	for rows.Next() {
		var cl ClassLevel
		if err := rows.Scan(&cl.ID, &cl.Name, &cl.Level, &cl.Description); err != nil {
			return nil, err
		}
		levels = append(levels, cl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return levels, nil
}
