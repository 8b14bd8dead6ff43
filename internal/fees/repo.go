package fees

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Repository persists fee entries in Postgres. It also owns the student
// columns the ledger maintains (last_fee_paid_date, fee_defaulted), which
// historically lived on the student record.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const entryCols = `year, month, paid, due_date, paid_on, payment_mode, amount, recorded_by, recorded_at`

// ListForStudent returns a student's entries in ledger order.
func (r *Repository) ListForStudent(ctx context.Context, studentID string) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryCols+`
		FROM fee_entries
		WHERE student_id = $1
		ORDER BY year, month
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListAll returns every student's entries keyed by student id.
func (r *Repository) ListAll(ctx context.Context) (map[string][]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id, `+entryCols+`
		FROM fee_entries
		ORDER BY student_id, year, month
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]Entry{}
	for rows.Next() {
		var sid string
		var e Entry
		var mode sql.NullString
		var recordedBy sql.NullString
		if err := rows.Scan(&sid, &e.Year, &e.Month, &e.Paid, &e.DueDate, &e.PaidOn, &mode, &e.Amount, &recordedBy, &e.RecordedAt); err != nil {
			return nil, err
		}
		e.PaymentMode = mode.String
		e.RecordedBy = recordedBy.String
		e.Label = MonthLabel(e.Year, time.Month(e.Month))
		out[sid] = append(out[sid], e)
	}
	return out, rows.Err()
}

// Upsert writes one entry, replacing any existing entry for the same
// (student, year, month). An independent ledger edit clears the student's
// fee_defaulted flag and refreshes last_fee_paid_date when the entry is paid.
func (r *Repository) Upsert(ctx context.Context, studentID string, e Entry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO fee_entries (id, student_id, year, month, paid, due_date, paid_on, payment_mode, amount, recorded_by, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (student_id, year, month) DO UPDATE SET
			paid = EXCLUDED.paid,
			due_date = EXCLUDED.due_date,
			paid_on = EXCLUDED.paid_on,
			payment_mode = EXCLUDED.payment_mode,
			amount = EXCLUDED.amount,
			recorded_by = EXCLUDED.recorded_by,
			recorded_at = EXCLUDED.recorded_at
	`, uuid.NewString(), studentID, e.Year, e.Month, e.Paid, e.DueDate, e.PaidOn, nullable(e.PaymentMode), e.Amount, nullable(e.RecordedBy), e.RecordedAt); err != nil {
		return err
	}

	if e.Paid {
		if _, err := tx.ExecContext(ctx, `
			UPDATE students SET last_fee_paid_date = NOW(), fee_defaulted = FALSE, updated_at = NOW() WHERE id = $1
		`, studentID); err != nil {
			return err
		}
	} else {
		if _, err := tx.ExecContext(ctx, `
			UPDATE students SET fee_defaulted = FALSE, updated_at = NOW() WHERE id = $1
		`, studentID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ReplaceAll swaps a student's whole ledger in one transaction. The caller
// supplies the complete desired state.
func (r *Repository) ReplaceAll(ctx context.Context, studentID string, entries []Entry, lastFeePaid *time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fee_entries WHERE student_id = $1`, studentID); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO fee_entries (id, student_id, year, month, paid, due_date, paid_on, payment_mode, amount, recorded_by, recorded_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		`, uuid.NewString(), studentID, e.Year, e.Month, e.Paid, e.DueDate, e.PaidOn, nullable(e.PaymentMode), e.Amount, nullable(e.RecordedBy), e.RecordedAt); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE students SET last_fee_paid_date = COALESCE($2, last_fee_paid_date), fee_defaulted = FALSE, updated_at = NOW() WHERE id = $1
	`, studentID, lastFeePaid); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes one entry; reports whether it existed.
func (r *Repository) Delete(ctx context.Context, studentID string, year, month int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM fee_entries WHERE student_id = $1 AND year = $2 AND month = $3
	`, studentID, year, month)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		_, err = r.db.ExecContext(ctx, `UPDATE students SET fee_defaulted = FALSE, updated_at = NOW() WHERE id = $1`, studentID)
	}
	return n > 0, err
}

// HasEntry reports whether a (student, year, month) entry exists.
func (r *Repository) HasEntry(ctx context.Context, studentID string, year, month int) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM fee_entries WHERE student_id = $1 AND year = $2 AND month = $3 LIMIT 1
	`, studentID, year, month).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// InsertUnpaid appends the scheduled unpaid entry for a month.
func (r *Repository) InsertUnpaid(ctx context.Context, studentID string, year, month int, dueDate time.Time, recordedBy string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fee_entries (id, student_id, year, month, paid, due_date, recorded_by, recorded_at)
		VALUES ($1,$2,$3,$4,FALSE,$5,$6,NOW())
		ON CONFLICT (student_id, year, month) DO NOTHING
	`, uuid.NewString(), studentID, year, month, dueDate, recordedBy)
	return err
}

// CreateAdmissionEntry writes the admission month's entry, paid on the
// admission date. Part of the student-creation side effect.
func (r *Repository) CreateAdmissionEntry(ctx context.Context, studentID string, admission time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fee_entries (id, student_id, year, month, paid, due_date, paid_on, recorded_by, recorded_at)
		VALUES ($1,$2,$3,$4,TRUE,$5,$5,'admission',NOW())
		ON CONFLICT (student_id, year, month) DO NOTHING
	`, uuid.NewString(), studentID, admission.Year(), int(admission.Month()), admission)
	return err
}

// RealignAdmissionEntry moves the still-defaulted admission entry to a new
// admission date. Only called while the student's fee_defaulted flag is set.
// A scheduled unpaid entry may already occupy the target month; the admission
// entry replaces it, keeping (student, year, month) unique.
func (r *Repository) RealignAdmissionEntry(ctx context.Context, studentID string, oldAdmission, newAdmission time.Time) error {
	oldYear, oldMonth := oldAdmission.Year(), int(oldAdmission.Month())
	newYear, newMonth := newAdmission.Year(), int(newAdmission.Month())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if oldYear != newYear || oldMonth != newMonth {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM fee_entries WHERE student_id = $1 AND year = $2 AND month = $3
		`, studentID, newYear, newMonth); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE fee_entries
		SET year = $4, month = $5, due_date = $6, paid_on = $6
		WHERE student_id = $1 AND year = $2 AND month = $3
	`, studentID, oldYear, oldMonth, newYear, newMonth, newAdmission); err != nil {
		return err
	}
	return tx.Commit()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var e Entry
		var mode, recordedBy sql.NullString
		if err := rows.Scan(&e.Year, &e.Month, &e.Paid, &e.DueDate, &e.PaidOn, &mode, &e.Amount, &recordedBy, &e.RecordedAt); err != nil {
			return nil, err
		}
		e.PaymentMode = mode.String
		e.RecordedBy = recordedBy.String
		e.Label = MonthLabel(e.Year, time.Month(e.Month))
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
