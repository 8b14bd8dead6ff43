package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository persists attendance days in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ActiveStudentRefs resolves the given ids against active students in one
// query. Ids with no match are simply absent from the result.
func (r *Repository) ActiveStudentRefs(ctx context.Context, ids []string) (map[string]StudentRef, error) {
	if len(ids) == 0 {
		return map[string]StudentRef{}, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := `SELECT id, name, grade FROM students WHERE is_active AND id IN (` + strings.Join(placeholders, ",") + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]StudentRef, len(ids))
	for rows.Next() {
		var ref StudentRef
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.Grade); err != nil {
			return nil, err
		}
		out[ref.ID] = ref
	}
	return out, rows.Err()
}

// UpsertDays applies a marking batch as one multi-row upsert. Re-marking an
// existing (student, day) overwrites the row; the RETURNING clause tells
// inserts from updates apart for the result counts. The statement is a
// single round trip but not wrapped in an outer transaction with anything
// else.
func (r *Repository) UpsertDays(ctx context.Context, entries []DayEntry) (created, updated int, err error) {
	if len(entries) == 0 {
		return 0, 0, nil
	}

	var (
		b    strings.Builder
		args []any
	)
	b.WriteString(`
		INSERT INTO attendance_days (id, student_id, day, status, marked_by, marked_at)
		VALUES `)
	for i, e := range entries {
		if i > 0 {
			b.WriteString(",")
		}
		n := len(args)
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)", n+1, n+2, n+3, n+4, n+5, n+6))
		args = append(args, uuid.NewString(), e.StudentID, e.Day, e.Status, e.MarkedBy, e.MarkedAt)
	}
	b.WriteString(`
		ON CONFLICT (student_id, day) DO UPDATE SET
			status = EXCLUDED.status,
			marked_by = EXCLUDED.marked_by,
			marked_at = EXCLUDED.marked_at
		RETURNING (xmax = 0) AS inserted`)

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		var inserted bool
		if err := rows.Scan(&inserted); err != nil {
			return 0, 0, err
		}
		if inserted {
			created++
		} else {
			updated++
		}
	}
	return created, updated, rows.Err()
}

// MonthEntries returns all day rows for a (year, month), joined with the
// directory for name and grade, optionally narrowed to a grade or student.
func (r *Repository) MonthEntries(ctx context.Context, year int, month time.Month, grade, studentID string) ([]DayRow, error) {
	query := `
		SELECT a.student_id, s.name, s.grade, a.day, a.status, a.marked_by, a.marked_at
		FROM attendance_days a
		JOIN students s ON s.id = a.student_id
		WHERE EXTRACT(YEAR FROM a.day) = $1 AND EXTRACT(MONTH FROM a.day) = $2`
	args := []any{year, int(month)}
	if grade != "" && grade != "all" {
		args = append(args, grade)
		query += fmt.Sprintf(" AND s.grade = $%d", len(args))
	}
	if studentID != "" {
		args = append(args, studentID)
		query += fmt.Sprintf(" AND a.student_id = $%d", len(args))
	}
	query += " ORDER BY s.grade, s.name, a.day"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DayRow
	for rows.Next() {
		var row DayRow
		if err := rows.Scan(&row.StudentID, &row.StudentName, &row.Grade, &row.Day, &row.Status, &row.MarkedBy, &row.MarkedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MonthsWithData returns the months of a year that have at least one entry.
func (r *Repository) MonthsWithData(ctx context.Context, year int) ([]time.Month, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT EXTRACT(MONTH FROM day)::int AS m
		FROM attendance_days
		WHERE EXTRACT(YEAR FROM day) = $1
		ORDER BY m
	`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Month
	for rows.Next() {
		var m int
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, time.Month(m))
	}
	return out, rows.Err()
}

// YearsWithData returns every year with attendance data, newest first.
func (r *Repository) YearsWithData(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT EXTRACT(YEAR FROM day)::int AS y
		FROM attendance_days
		ORDER BY y DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		out = append(out, y)
	}
	return out, rows.Err()
}
