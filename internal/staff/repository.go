package staff

import (
	"context"
	"errors"

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

const memberColumns = `id, user_id, staff_number, tsc_number, national_id, phone, department, designation, employment_type, basic_salary, hire_date, status, created_at, updated_at`

func scanMember(row pgx.Row) (Member, error) {
	var m Member
	var employment, status string
	if err := row.Scan(&m.ID, &m.UserID, &m.StaffNumber, &m.TSCNumber, &m.NationalID,
		&m.Phone, &m.Department, &m.Designation, &employment, &m.BasicSalary,
		&m.HireDate, &status, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, ErrNotFound
		}
		return Member{}, err
	}
	m.EmploymentType = EmploymentType(employment)
	m.Status = Status(status)
	return m, nil
}

// List returns staff filtered by department, employment type and status.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+memberColumns+` FROM staff
WHERE ($1 = '' OR department = $1)
  AND ($2 = '' OR employment_type = $2)
  AND ($3 = '' OR status = $3)
ORDER BY staff_number ASC
LIMIT $4 OFFSET $5`,
		filters.Department, string(filters.EmploymentType), string(filters.Status),
		filters.Limit, filters.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

// Get fetches a staff member by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Member, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM staff WHERE id = $1`, id)
	return scanMember(row)
}

// Create inserts a staff row.
func (r *Repository) Create(ctx context.Context, m Member) (Member, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO staff
(user_id, staff_number, tsc_number, national_id, phone, department, designation, employment_type, basic_salary, hire_date, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING `+memberColumns,
		m.UserID, m.StaffNumber, m.TSCNumber, m.NationalID, m.Phone,
		m.Department, m.Designation, string(m.EmploymentType), m.BasicSalary,
		m.HireDate, string(m.Status))
	created, err := scanMember(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Member{}, ErrDuplicateStaffNumber
		}
		return Member{}, err
	}
	return created, nil
}

// Update rewrites the mutable fields of a staff member.
func (r *Repository) Update(ctx context.Context, m Member) (Member, error) {
	row := r.pool.QueryRow(ctx, `UPDATE staff SET
tsc_number = $2, national_id = $3, phone = $4, department = $5, designation = $6,
employment_type = $7, basic_salary = $8, status = $9, updated_at = NOW()
WHERE id = $1
RETURNING `+memberColumns,
		m.ID, m.TSCNumber, m.NationalID, m.Phone, m.Department, m.Designation,
		string(m.EmploymentType), m.BasicSalary, string(m.Status))
	return scanMember(row)
}

// Delete removes a staff member. Returns ErrNotFound when nothing was deleted.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM staff WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
