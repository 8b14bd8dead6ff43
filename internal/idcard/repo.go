package idcard

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Repository persists ID-card profiles in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const profileCols = `id, class, student_name, birthdate, admission_date, school_name,
	parent_name, parent_email, contact_number, address, photo_url, created_at, updated_at`

// List returns up to 100 profiles, newest first, optionally narrowed by a
// free-text search or an exact class.
func (r *Repository) List(ctx context.Context, search, class string) ([]Profile, error) {
	query := `SELECT ` + profileCols + ` FROM id_profiles`
	var (
		where []string
		args  []any
	)
	if search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(student_name ILIKE $%d OR parent_name ILIKE $%d OR contact_number ILIKE $%d OR parent_email ILIKE $%d)",
			n, n, n, n))
	}
	if class != "" {
		args = append(args, class)
		where = append(where, fmt.Sprintf("class = $%d", len(args)))
	}
	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}
	query += " ORDER BY created_at DESC LIMIT 100"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Get returns one profile or nil.
func (r *Repository) Get(ctx context.Context, id string) (*Profile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+profileCols+` FROM id_profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// FindDuplicate reports whether another profile has the same student and
// parent names, case-insensitively, excluding excludeID when non-empty.
func (r *Repository) FindDuplicate(ctx context.Context, studentName, parentName, excludeID string) (bool, error) {
	query, args := duplicateQuery(studentName, parentName, excludeID)
	var one int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// duplicateQuery adds the id exclusion only when an id is given. The column
// is uuid-typed, so binding an empty string would fail to decode and error
// every lookup.
func duplicateQuery(studentName, parentName, excludeID string) (string, []any) {
	query := `SELECT 1 FROM id_profiles WHERE LOWER(student_name) = LOWER($1) AND LOWER(parent_name) = LOWER($2)`
	args := []any{studentName, parentName}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	return query + " LIMIT 1", args
}

// Insert writes a new profile and fills id and timestamps.
func (r *Repository) Insert(ctx context.Context, p *Profile) error {
	p.ID = uuid.NewString()
	return r.db.QueryRowContext(ctx, `
		INSERT INTO id_profiles (id, class, student_name, birthdate, admission_date, school_name,
			parent_name, parent_email, contact_number, contact_digits, address, photo_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at
	`, p.ID, p.Class, p.StudentName, p.Birthdate, p.AdmissionDate, p.SchoolName,
		p.ParentName, nullable(p.ParentEmail), p.ContactNumber, NormalizeContact(p.ContactNumber),
		p.Address, nullable(p.PhotoURL)).Scan(&p.CreatedAt, &p.UpdatedAt)
}

// Update rewrites a profile in place.
func (r *Repository) Update(ctx context.Context, p *Profile) error {
	return r.db.QueryRowContext(ctx, `
		UPDATE id_profiles SET
			class = $2, student_name = $3, birthdate = $4, admission_date = $5, school_name = $6,
			parent_name = $7, parent_email = $8, contact_number = $9, contact_digits = $10,
			address = $11, photo_url = $12, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, p.ID, p.Class, p.StudentName, p.Birthdate, p.AdmissionDate, p.SchoolName,
		p.ParentName, nullable(p.ParentEmail), p.ContactNumber, NormalizeContact(p.ContactNumber),
		p.Address, nullable(p.PhotoURL)).Scan(&p.UpdatedAt)
}

// Delete removes a profile; reports whether it existed.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM id_profiles WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// FindEmailByContact resolves a normalized contact to a parent email. Used
// by the confirmation-email worker; a single indexed lookup, no scanning.
func (r *Repository) FindEmailByContact(ctx context.Context, digits string) (name, email string, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT parent_name, parent_email FROM id_profiles
		WHERE contact_digits = $1 AND parent_email IS NOT NULL
		ORDER BY updated_at DESC
		LIMIT 1
	`, digits).Scan(&name, &email)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	return name, email, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var p Profile
	var parentEmail, photoURL sql.NullString
	if err := row.Scan(&p.ID, &p.Class, &p.StudentName, &p.Birthdate, &p.AdmissionDate, &p.SchoolName,
		&p.ParentName, &parentEmail, &p.ContactNumber, &p.Address, &photoURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ParentEmail = parentEmail.String
	p.PhotoURL = photoURL.String
	return &p, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
