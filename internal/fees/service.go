package fees

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"sktutorial/internal/apperr"
	"sktutorial/internal/queue"
	"sktutorial/internal/student"
)

// Ledger is the persistence surface the service needs.
type Ledger interface {
	ListForStudent(ctx context.Context, studentID string) ([]Entry, error)
	ListAll(ctx context.Context) (map[string][]Entry, error)
	Upsert(ctx context.Context, studentID string, e Entry) error
	ReplaceAll(ctx context.Context, studentID string, entries []Entry, lastFeePaid *time.Time) error
	Delete(ctx context.Context, studentID string, year, month int) (bool, error)
	HasEntry(ctx context.Context, studentID string, year, month int) (bool, error)
	InsertUnpaid(ctx context.Context, studentID string, year, month int, dueDate time.Time, recordedBy string) error
}

// StudentSource resolves directory records for the ledger.
type StudentSource interface {
	Get(ctx context.Context, id string) (*student.Student, error)
	ListActive(ctx context.Context) ([]student.Student, error)
}

// Publisher hands newly-paid events to the outbox queue.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Service implements the fee ledger.
type Service struct {
	ledger   Ledger
	students StudentSource
	outbox   Publisher
	now      func() time.Time
}

// NewService creates a ledger service. outbox may be nil when confirmation
// emails are disabled.
func NewService(ledger Ledger, students StudentSource, outbox Publisher) *Service {
	return &Service{ledger: ledger, students: students, outbox: outbox, now: time.Now}
}

// ListWithStatus returns every active student with their embedded ledger.
func (s *Service) ListWithStatus(ctx context.Context) ([]StudentFees, error) {
	active, err := s.students.ListActive(ctx)
	if err != nil {
		return nil, apperr.Internal("Error fetching students data", err)
	}
	all, err := s.ledger.ListAll(ctx)
	if err != nil {
		return nil, apperr.Internal("Error fetching students data", err)
	}

	out := make([]StudentFees, 0, len(active))
	for _, st := range active {
		entries := all[st.ID]
		if entries == nil {
			entries = []Entry{}
		}
		out = append(out, StudentFees{
			ID:               st.ID,
			Name:             st.Name,
			Grade:            st.Grade,
			ParentName:       st.ParentName,
			Contact:          st.Contact,
			AdmissionDate:    st.AdmissionDate,
			LastFeePaidDate:  st.LastFeePaidDate,
			MonthlyFeeStatus: entries,
		})
	}
	return out, nil
}

// RecordPaymentInput is the single-payment request.
type RecordPaymentInput struct {
	StudentID   string   `json:"studentId"`
	Year        int      `json:"year"`
	Month       int      `json:"month"`
	PaymentMode string   `json:"paymentMode"`
	Amount      *float64 `json:"amount"`
	PaidOn      string   `json:"paidOn"` // YYYY-MM-DD, defaults to today
}

// RecordPayment upserts a paid entry for one month. The due date is the
// admission day projected into that month, clamped to its last day.
func (s *Service) RecordPayment(ctx context.Context, in RecordPaymentInput, recordedBy string) (Entry, error) {
	if in.StudentID == "" || in.Year == 0 || in.Month == 0 || in.PaymentMode == "" || in.Amount == nil {
		return Entry{}, apperr.Invalid("Student ID, month, payment mode, and amount are required")
	}
	if in.Month < 1 || in.Month > 12 {
		return Entry{}, apperr.Invalid("Invalid month. Must be between 1 and 12")
	}
	if !ValidPaymentMode(in.PaymentMode) {
		return Entry{}, apperr.Invalid("Invalid payment mode")
	}

	st, err := s.students.Get(ctx, in.StudentID)
	if err != nil {
		return Entry{}, apperr.Internal("Error recording payment", err)
	}
	if st == nil {
		return Entry{}, apperr.NotFound("Student not found")
	}

	paidOn := s.now().UTC()
	if in.PaidOn != "" {
		d, err := student.ParseDate(in.PaidOn)
		if err != nil {
			return Entry{}, apperr.Invalid("Invalid paidOn date format")
		}
		paidOn = d
	}
	dueDate := DueDateFor(st.AdmissionDate, in.Year, time.Month(in.Month))

	entry := Entry{
		Year:        in.Year,
		Month:       in.Month,
		Label:       MonthLabel(in.Year, time.Month(in.Month)),
		Paid:        true,
		DueDate:     &dueDate,
		PaidOn:      &paidOn,
		PaymentMode: in.PaymentMode,
		Amount:      in.Amount,
		RecordedBy:  recordedBy,
		RecordedAt:  s.now().UTC(),
	}
	if err := s.ledger.Upsert(ctx, in.StudentID, entry); err != nil {
		return Entry{}, apperr.Internal("Error recording payment", err)
	}

	s.publishPaid(ctx, *st, entry)
	return entry, nil
}

// UpdateStatus full-replaces a student's ledger with the supplied state and
// detects newly-paid entries by (year, month, paid, amount, paymentMode)
// tuple equality against the previous state. Replaying an identical array
// detects nothing, so no duplicate confirmations fire.
func (s *Service) UpdateStatus(ctx context.Context, studentID string, entries []Entry, recordedBy string) (StudentFees, error) {
	if studentID == "" || entries == nil {
		return StudentFees{}, apperr.Invalid("Student ID and monthly fee status are required")
	}

	st, err := s.students.Get(ctx, studentID)
	if err != nil {
		return StudentFees{}, apperr.Internal("Error updating payment record", err)
	}
	if st == nil {
		return StudentFees{}, apperr.NotFound("Student not found")
	}

	for i := range entries {
		if entries[i].Month < 1 || entries[i].Month > 12 || entries[i].Year == 0 {
			return StudentFees{}, apperr.Invalid("Each entry needs a valid year and month")
		}
		if entries[i].PaymentMode != "" && !ValidPaymentMode(entries[i].PaymentMode) {
			return StudentFees{}, apperr.Invalid("Invalid payment mode")
		}
		entries[i].Label = MonthLabel(entries[i].Year, time.Month(entries[i].Month))
		if entries[i].RecordedBy == "" {
			entries[i].RecordedBy = recordedBy
		}
		if entries[i].RecordedAt.IsZero() {
			entries[i].RecordedAt = s.now().UTC()
		}
	}

	old, err := s.ledger.ListForStudent(ctx, studentID)
	if err != nil {
		return StudentFees{}, apperr.Internal("Error updating payment record", err)
	}
	newlyPaid := diffNewlyPaid(old, entries)

	var lastPaid *time.Time
	if len(newlyPaid) > 0 {
		t := s.now().UTC()
		lastPaid = &t
	}
	if err := s.ledger.ReplaceAll(ctx, studentID, entries, lastPaid); err != nil {
		return StudentFees{}, apperr.Internal("Error updating payment record", err)
	}

	for _, e := range newlyPaid {
		s.publishPaid(ctx, *st, e)
	}

	return StudentFees{
		ID:               st.ID,
		Name:             st.Name,
		Grade:            st.Grade,
		ParentName:       st.ParentName,
		Contact:          st.Contact,
		AdmissionDate:    st.AdmissionDate,
		LastFeePaidDate:  lastPaid,
		MonthlyFeeStatus: entries,
	}, nil
}

// DeletePayment removes one month's entry.
func (s *Service) DeletePayment(ctx context.Context, studentID string, year, month int) error {
	if studentID == "" || year == 0 || month == 0 {
		return apperr.Invalid("Student ID and month are required")
	}
	st, err := s.students.Get(ctx, studentID)
	if err != nil {
		return apperr.Internal("Error deleting payment record", err)
	}
	if st == nil {
		return apperr.NotFound("Student not found")
	}
	ok, err := s.ledger.Delete(ctx, studentID, year, month)
	if err != nil {
		return apperr.Internal("Error deleting payment record", err)
	}
	if !ok {
		return apperr.NotFound("Payment record for specified month not found")
	}
	return nil
}

// GenerateResult summarizes a scheduled due-entry run.
type GenerateResult struct {
	ProcessedMonth      string `json:"processedMonth"`
	StudentsUpdated     int    `json:"studentsUpdated"`
	TotalActiveStudents int    `json:"totalActiveStudents"`
}

// GenerateDueEntries appends the current month's unpaid entry for every
// active student that doesn't have one yet. Students admitted after the
// month started are skipped; their first entry arrives with admission.
func (s *Service) GenerateDueEntries(ctx context.Context) (GenerateResult, error) {
	today := s.now().UTC()
	year, month := today.Year(), today.Month()
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)

	active, err := s.students.ListActive(ctx)
	if err != nil {
		return GenerateResult{}, apperr.Internal("Internal server error", err)
	}

	updated := 0
	for _, st := range active {
		if st.AdmissionDate.After(monthStart) {
			continue
		}
		exists, err := s.ledger.HasEntry(ctx, st.ID, year, int(month))
		if err != nil {
			return GenerateResult{}, apperr.Internal("Internal server error", err)
		}
		if exists {
			continue
		}
		dueDate := DueDateFor(st.AdmissionDate, year, month)
		if err := s.ledger.InsertUnpaid(ctx, st.ID, year, int(month), dueDate, "system-cron"); err != nil {
			return GenerateResult{}, apperr.Internal("Internal server error", err)
		}
		updated++
	}

	return GenerateResult{
		ProcessedMonth:      MonthLabel(year, month),
		StudentsUpdated:     updated,
		TotalActiveStudents: len(active),
	}, nil
}

// diffNewlyPaid returns the entries of next that are paid and whose
// (year, month, paid, amount, paymentMode) tuple is absent from prev.
func diffNewlyPaid(prev, next []Entry) []Entry {
	type tuple struct {
		year, month int
		paid        bool
		amount      float64
		hasAmount   bool
		mode        string
	}
	key := func(e Entry) tuple {
		t := tuple{year: e.Year, month: e.Month, paid: e.Paid, mode: e.PaymentMode}
		if e.Amount != nil {
			t.amount, t.hasAmount = *e.Amount, true
		}
		return t
	}
	seen := make(map[tuple]bool, len(prev))
	for _, e := range prev {
		seen[key(e)] = true
	}
	var out []Entry
	for _, e := range next {
		if e.Paid && !seen[key(e)] {
			out = append(out, e)
		}
	}
	return out
}

// publishPaid hands a newly-paid entry to the outbox. Failures are logged
// and never fail the payment write.
func (s *Service) publishPaid(ctx context.Context, st student.Student, e Entry) {
	if s.outbox == nil {
		return
	}
	body, err := json.Marshal(PaidEvent{
		StudentID:   st.ID,
		StudentName: st.Name,
		Contact:     st.Contact,
		Year:        e.Year,
		Month:       e.Month,
		Label:       e.Label,
		Amount:      e.Amount,
		PaymentMode: e.PaymentMode,
	})
	if err != nil {
		log.Printf("fees: marshal paid event failed: %v", err)
		return
	}
	if err := s.outbox.Publish(ctx, queue.Message{Type: MessageTypePaid, Body: body}); err != nil {
		log.Printf("fees: outbox publish failed for %s %s: %v", st.ID, e.Label, err)
	}
}
