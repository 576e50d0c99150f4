package reports

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// Builder produces CSV artifacts for generation requests. Queries for a
// report run concurrently and the artifact is written only when all of them
// succeed.
type Builder struct {
	pool        *pgxpool.Pool
	artifactDir string
}

// NewBuilder constructs a builder writing artifacts under dir.
func NewBuilder(pool *pgxpool.Pool, dir string) *Builder {
	return &Builder{pool: pool, artifactDir: dir}
}

// Build generates the artifact and returns its path.
func (b *Builder) Build(ctx context.Context, report Report) (string, error) {
	rows, err := b.Rows(ctx, report.Type, report.Params)
	if err != nil {
		return "", err
	}
	return b.writeCSV(report.ID, rows)
}

// Rows runs the report's queries and returns header plus data rows. Used both
// for CSV artifacts and for the synchronous summary endpoints.
func (b *Builder) Rows(ctx context.Context, reportType Type, params Params) ([][]string, error) {
	switch reportType {
	case TypeEnrollment:
		return b.buildEnrollment(ctx)
	case TypeAttendance:
		return b.buildAttendance(ctx, params)
	case TypeFinancial:
		return b.buildFinancial(ctx, params)
	case TypePayroll:
		return b.buildPayroll(ctx, params)
	case TypeAcademic:
		return b.buildAcademic(ctx, params)
	default:
		return nil, ErrValidation
	}
}

func (b *Builder) buildEnrollment(ctx context.Context) ([][]string, error) {
	var byClass, byStatus [][]string
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byClass, err = b.countRows(ctx, `SELECT cl.name, COUNT(s.id)
FROM class_levels cl
LEFT JOIN students s ON s.class_level_id = cl.id AND s.status = 'active'
GROUP BY cl.id, cl.name ORDER BY cl.level ASC`)
		return err
	})
	g.Go(func() error {
		var err error
		byStatus, err = b.countRows(ctx, `SELECT status, COUNT(*)
FROM students GROUP BY status ORDER BY status ASC`)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	rows := [][]string{{"section", "label", "count"}}
	for _, row := range byClass {
		rows = append(rows, append([]string{"class"}, row...))
	}
	for _, row := range byStatus {
		rows = append(rows, append([]string{"status"}, row...))
	}
	return rows, nil
}

func (b *Builder) buildAttendance(ctx context.Context, params Params) ([][]string, error) {
	from, to := params.From, params.To
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, -1, 0)
	}
	result, err := b.pool.Query(ctx, `SELECT cl.name, a.mark, COUNT(*)
FROM attendance_entries a
JOIN class_levels cl ON cl.id = a.class_level_id
WHERE a.date >= $1 AND a.date <= $2
  AND ($3 = 0 OR a.class_level_id = $3)
GROUP BY cl.name, a.mark
ORDER BY cl.name ASC, a.mark ASC`, from, to, params.ClassLevelID)
	if err != nil {
		return nil, err
	}
	defer result.Close()
	rows := [][]string{{"class", "mark", "count"}}
	for result.Next() {
		var class, mark string
		var count int64
		if err := result.Scan(&class, &mark, &count); err != nil {
			return nil, err
		}
		rows = append(rows, []string{class, mark, strconv.FormatInt(count, 10)})
	}
	return rows, result.Err()
}

func (b *Builder) buildFinancial(ctx context.Context, params Params) ([][]string, error) {
	from, to := params.From, params.To
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, to.Location())
	}
	var billed, verified, pending int64
	var arrearsCount int64
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM fees
WHERE created_at >= $1 AND created_at <= $2`, from, to).Scan(&billed)
	})
	g.Go(func() error {
		return b.pool.QueryRow(ctx, `SELECT
COALESCE(SUM(amount) FILTER (WHERE status = 'verified'), 0),
COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0)
FROM fee_payments
WHERE payment_date >= $1 AND payment_date <= $2`, from, to).Scan(&verified, &pending)
	})
	g.Go(func() error {
		return b.pool.QueryRow(ctx, `SELECT COUNT(*) FROM fees
WHERE amount_paid < amount AND due_date < NOW()`).Scan(&arrearsCount)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return [][]string{
		{"metric", "value"},
		{"period_from", from.Format("2006-01-02")},
		{"period_to", to.Format("2006-01-02")},
		{"total_billed_cents", strconv.FormatInt(billed, 10)},
		{"total_verified_cents", strconv.FormatInt(verified, 10)},
		{"total_pending_cents", strconv.FormatInt(pending, 10)},
		{"fees_in_arrears", strconv.FormatInt(arrearsCount, 10)},
	}, nil
}

func (b *Builder) buildPayroll(ctx context.Context, params Params) ([][]string, error) {
	from, to := params.From, params.To
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = time.Date(to.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	}
	result, err := b.pool.Query(ctx, `SELECT to_char(month, 'YYYY-MM'), status, COUNT(*),
COALESCE(SUM(basic_salary + allowances - deductions), 0)
FROM payroll_runs
WHERE month >= $1 AND month <= $2
GROUP BY month, status
ORDER BY month ASC, status ASC`, from, to)
	if err != nil {
		return nil, err
	}
	defer result.Close()
	rows := [][]string{{"month", "status", "runs", "net_cents"}}
	for result.Next() {
		var month, status string
		var runs, net int64
		if err := result.Scan(&month, &status, &runs, &net); err != nil {
			return nil, err
		}
		rows = append(rows, []string{month, status,
			strconv.FormatInt(runs, 10), strconv.FormatInt(net, 10)})
	}
	return rows, result.Err()
}

func (b *Builder) buildAcademic(ctx context.Context, params Params) ([][]string, error) {
	if params.Term < 1 || params.Term > 3 || params.Year < 2000 {
		return nil, ErrValidation
	}
	result, err := b.pool.Query(ctx, `SELECT subject, exam_type, ROUND(AVG(marks), 2), COUNT(*)
FROM grades
WHERE term = $1 AND year = $2
GROUP BY subject, exam_type
ORDER BY subject ASC, exam_type ASC`, params.Term, params.Year)
	if err != nil {
		return nil, err
	}
	defer result.Close()
	rows := [][]string{{"subject", "exam_type", "mean_marks", "entries"}}
	for result.Next() {
		var subject, examType string
		var mean float64
		var count int64
		if err := result.Scan(&subject, &examType, &mean, &count); err != nil {
			return nil, err
		}
		rows = append(rows, []string{subject, examType,
			strconv.FormatFloat(mean, 'f', 2, 64), strconv.FormatInt(count, 10)})
	}
	return rows, result.Err()
}

func (b *Builder) countRows(ctx context.Context, query string) ([][]string, error) {
	result, err := b.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer result.Close()
	var rows [][]string
	for result.Next() {
		var label string
		var count int64
		if err := result.Scan(&label, &count); err != nil {
			return nil, err
		}
		rows = append(rows, []string{label, strconv.FormatInt(count, 10)})
	}
	return rows, result.Err()
}

func (b *Builder) writeCSV(reportID string, rows [][]string) (string, error) {
	if err := os.MkdirAll(b.artifactDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(b.artifactDir, fmt.Sprintf("report-%s.csv", reportID))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	writer := csv.NewWriter(f)
	if err := writer.WriteAll(rows); err != nil {
		return "", err
	}
	return path, nil
}
