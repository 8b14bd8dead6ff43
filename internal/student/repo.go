package student

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Repository persists the student directory in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const studentCols = `id, name, grade, parent_name, contact, admission_date, last_fee_paid_date, fee_defaulted, is_active, created_at, updated_at`

// List returns active students matching the filter plus the total count.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Student, int, error) {
	args := []any{}
	clauses := []string{"is_active"}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, "(name ILIKE "+n+" OR parent_name ILIKE "+n+" OR contact ILIKE "+n+")")
	}
	if f.Grade != "" && f.Grade != "All" {
		args = append(args, f.Grade)
		clauses = append(clauses, fmt.Sprintf("grade = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(clauses, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM students"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + studentCols + " FROM students" + where +
		fmt.Sprintf(" ORDER BY created_at DESC, name ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, st)
	}
	return out, total, rows.Err()
}

// ListActive returns every active student.
func (r *Repository) ListActive(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+studentCols+" FROM students WHERE is_active")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Get returns an active student by id, or nil.
func (r *Repository) Get(ctx context.Context, id string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+studentCols+" FROM students WHERE id = $1 AND is_active", id)
	st, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// FindDuplicate returns an active student with the same (name, grade),
// excluding excludeID when non-empty.
func (r *Repository) FindDuplicate(ctx context.Context, name, grade, excludeID string) (*Student, error) {
	query := "SELECT " + studentCols + " FROM students WHERE name = $1 AND grade = $2 AND is_active"
	args := []any{name, grade}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	row := r.db.QueryRowContext(ctx, query, args...)
	st, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Insert writes a new student row.
func (r *Repository) Insert(ctx context.Context, st Student, createdBy string) (Student, error) {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, name, grade, parent_name, contact, admission_date, last_fee_paid_date, fee_defaulted, is_active, created_by, updated_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,TRUE,$9,$9)
		RETURNING created_at, updated_at
	`, st.ID, st.Name, st.Grade, st.ParentName, st.Contact, st.AdmissionDate, st.LastFeePaidDate, st.FeeDefaulted, createdBy)
	if err := row.Scan(&st.CreatedAt, &st.UpdatedAt); err != nil {
		return Student{}, err
	}
	st.IsActive = true
	return st, nil
}

// Update rewrites the editable fields of a student row.
func (r *Repository) Update(ctx context.Context, st Student, updatedBy string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE students
		SET name = $2, grade = $3, parent_name = $4, contact = $5, admission_date = $6,
		    last_fee_paid_date = $7, updated_at = NOW(), updated_by = $8
		WHERE id = $1
	`, st.ID, st.Name, st.Grade, st.ParentName, st.Contact, st.AdmissionDate, st.LastFeePaidDate, updatedBy)
	return err
}

// SoftDelete marks a student inactive. Directory deletes never remove rows.
func (r *Repository) SoftDelete(ctx context.Context, id, deletedBy string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students
		SET is_active = FALSE, deleted_at = NOW(), deleted_by = $2, updated_at = NOW()
		WHERE id = $1 AND is_active
	`, id, deletedBy)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (Student, error) {
	var st Student
	err := row.Scan(&st.ID, &st.Name, &st.Grade, &st.ParentName, &st.Contact,
		&st.AdmissionDate, &st.LastFeePaidDate, &st.FeeDefaulted, &st.IsActive,
		&st.CreatedAt, &st.UpdatedAt)
	return st, err
}
