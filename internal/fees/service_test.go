package fees

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sktutorial/internal/apperr"
	"sktutorial/internal/queue"
	"sktutorial/internal/student"
)

type fakeLedger struct {
	entries  map[string][]Entry
	upserts  []Entry
	replaced [][]Entry
	unpaid   []Entry
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: map[string][]Entry{}}
}

func (f *fakeLedger) ListForStudent(_ context.Context, studentID string) ([]Entry, error) {
	return f.entries[studentID], nil
}

func (f *fakeLedger) ListAll(_ context.Context) (map[string][]Entry, error) {
	return f.entries, nil
}

func (f *fakeLedger) Upsert(_ context.Context, studentID string, e Entry) error {
	f.upserts = append(f.upserts, e)
	f.entries[studentID] = append(f.entries[studentID], e)
	return nil
}

func (f *fakeLedger) ReplaceAll(_ context.Context, studentID string, entries []Entry, _ *time.Time) error {
	f.replaced = append(f.replaced, entries)
	f.entries[studentID] = entries
	return nil
}

func (f *fakeLedger) Delete(_ context.Context, studentID string, year, month int) (bool, error) {
	for i, e := range f.entries[studentID] {
		if e.Year == year && e.Month == month {
			f.entries[studentID] = append(f.entries[studentID][:i], f.entries[studentID][i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) HasEntry(_ context.Context, studentID string, year, month int) (bool, error) {
	for _, e := range f.entries[studentID] {
		if e.Year == year && e.Month == month {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) InsertUnpaid(_ context.Context, studentID string, year, month int, dueDate time.Time, recordedBy string) error {
	e := Entry{Year: year, Month: month, DueDate: &dueDate, RecordedBy: recordedBy}
	f.unpaid = append(f.unpaid, e)
	f.entries[studentID] = append(f.entries[studentID], e)
	return nil
}

type fakeStudents struct {
	students map[string]*student.Student
}

func (f *fakeStudents) Get(_ context.Context, id string) (*student.Student, error) {
	return f.students[id], nil
}

func (f *fakeStudents) ListActive(_ context.Context) ([]student.Student, error) {
	var out []student.Student
	for _, st := range f.students {
		out = append(out, *st)
	}
	return out, nil
}

type fakePublisher struct {
	messages []queue.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg queue.Message) error {
	f.messages = append(f.messages, msg)
	return nil
}

func fixedNow() time.Time {
	return time.Date(2024, time.April, 10, 12, 0, 0, 0, time.UTC)
}

func testStudent(id string, admission time.Time) *student.Student {
	return &student.Student{
		ID:            id,
		Name:          "Anita",
		Grade:         "1st",
		ParentName:    "Ravi",
		Contact:       "+91 9876543210",
		AdmissionDate: admission,
		IsActive:      true,
	}
}

func newTestService(ledger Ledger, students StudentSource, pub Publisher) *Service {
	svc := NewService(ledger, students, pub)
	svc.now = fixedNow
	return svc
}

func TestDueDateClamping(t *testing.T) {
	admission := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		month   time.Month
		wantDay int
	}{
		{time.February, 29}, // leap year
		{time.March, 31},
		{time.April, 30},
	}
	for _, tt := range tests {
		got := DueDateFor(admission, 2024, tt.month)
		assert.Equal(t, tt.wantDay, got.Day(), "due day in %s", tt.month)
		assert.Equal(t, tt.month, got.Month())
	}

	// non-leap February
	got := DueDateFor(admission, 2023, time.February)
	assert.Equal(t, 28, got.Day())
}

func TestMonthLabel(t *testing.T) {
	assert.Equal(t, "January 2024", MonthLabel(2024, time.January))
	assert.Equal(t, "December 2025", MonthLabel(2025, time.December))
}

func TestRecordPayment(t *testing.T) {
	ledger := newFakeLedger()
	admission := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	students := &fakeStudents{students: map[string]*student.Student{"s1": testStudent("s1", admission)}}
	pub := &fakePublisher{}
	svc := newTestService(ledger, students, pub)

	amount := 1500.0
	entry, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		StudentID:   "s1",
		Year:        2024,
		Month:       4,
		PaymentMode: "UPI",
		Amount:      &amount,
	}, "u1")
	require.NoError(t, err)

	assert.Equal(t, "April 2024", entry.Label)
	assert.True(t, entry.Paid)
	require.NotNil(t, entry.DueDate)
	assert.Equal(t, 30, entry.DueDate.Day(), "admission on the 31st clamps to April 30")
	assert.Equal(t, "u1", entry.RecordedBy)
	require.Len(t, pub.messages, 1)
	assert.Equal(t, MessageTypePaid, pub.messages[0].Type)
}

func TestRecordPaymentValidation(t *testing.T) {
	students := &fakeStudents{students: map[string]*student.Student{}}
	svc := newTestService(newFakeLedger(), students, &fakePublisher{})
	amount := 100.0

	tests := []struct {
		name string
		in   RecordPaymentInput
		want string
	}{
		{"missing fields", RecordPaymentInput{StudentID: "s1"}, "Student ID, month, payment mode, and amount are required"},
		{"bad month", RecordPaymentInput{StudentID: "s1", Year: 2024, Month: 13, PaymentMode: "Cash", Amount: &amount}, "Invalid month. Must be between 1 and 12"},
		{"bad mode", RecordPaymentInput{StudentID: "s1", Year: 2024, Month: 4, PaymentMode: "Barter", Amount: &amount}, "Invalid payment mode"},
		{"unknown student", RecordPaymentInput{StudentID: "s1", Year: 2024, Month: 4, PaymentMode: "Cash", Amount: &amount}, "Student not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordPayment(context.Background(), tt.in, "u1")
			require.Error(t, err)
			assert.Equal(t, tt.want, apperr.Message(err))
		})
	}
}

func TestUpdateStatusDetectsNewlyPaid(t *testing.T) {
	ledger := newFakeLedger()
	amount := 1500.0
	ledger.entries["s1"] = []Entry{
		{Year: 2024, Month: 1, Paid: true, Amount: &amount, PaymentMode: "Cash"},
		{Year: 2024, Month: 2, Paid: false},
	}
	admission := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	students := &fakeStudents{students: map[string]*student.Student{"s1": testStudent("s1", admission)}}
	pub := &fakePublisher{}
	svc := newTestService(ledger, students, pub)

	// February flips to paid; only it triggers a confirmation
	next := []Entry{
		{Year: 2024, Month: 1, Paid: true, Amount: &amount, PaymentMode: "Cash"},
		{Year: 2024, Month: 2, Paid: true, Amount: &amount, PaymentMode: "UPI"},
	}
	updated, err := svc.UpdateStatus(context.Background(), "s1", next, "u1")
	require.NoError(t, err)
	require.Len(t, pub.messages, 1)
	assert.Len(t, updated.MonthlyFeeStatus, 2)
	assert.NotNil(t, updated.LastFeePaidDate)
}

func TestUpdateStatusReplayPublishesNothing(t *testing.T) {
	ledger := newFakeLedger()
	amount := 1500.0
	current := []Entry{
		{Year: 2024, Month: 1, Paid: true, Amount: &amount, PaymentMode: "Cash"},
		{Year: 2024, Month: 2, Paid: true, Amount: &amount, PaymentMode: "UPI"},
	}
	ledger.entries["s1"] = current
	admission := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	students := &fakeStudents{students: map[string]*student.Student{"s1": testStudent("s1", admission)}}
	pub := &fakePublisher{}
	svc := newTestService(ledger, students, pub)

	replay := make([]Entry, len(current))
	copy(replay, current)
	updated, err := svc.UpdateStatus(context.Background(), "s1", replay, "u1")
	require.NoError(t, err)
	assert.Empty(t, pub.messages, "replaying the same ledger must not re-trigger confirmations")
	assert.Nil(t, updated.LastFeePaidDate)
}

func TestDeletePayment(t *testing.T) {
	ledger := newFakeLedger()
	ledger.entries["s1"] = []Entry{{Year: 2024, Month: 1, Paid: true}}
	admission := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	students := &fakeStudents{students: map[string]*student.Student{"s1": testStudent("s1", admission)}}
	svc := newTestService(ledger, students, &fakePublisher{})

	require.NoError(t, svc.DeletePayment(context.Background(), "s1", 2024, 1))

	err := svc.DeletePayment(context.Background(), "s1", 2024, 1)
	require.Error(t, err)
	assert.Equal(t, "Payment record for specified month not found", apperr.Message(err))
}

func TestGenerateDueEntries(t *testing.T) {
	ledger := newFakeLedger()
	students := &fakeStudents{students: map[string]*student.Student{
		// admitted on Jan 31, gets an April entry clamped to the 30th
		"s1": testStudent("s1", time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)),
		// already has an April entry, skipped
		"s2": testStudent("s2", time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC)),
		// admitted after April started, skipped
		"s3": testStudent("s3", time.Date(2024, time.April, 20, 0, 0, 0, 0, time.UTC)),
	}}
	ledger.entries["s2"] = []Entry{{Year: 2024, Month: 4, Paid: true}}
	svc := newTestService(ledger, students, &fakePublisher{})

	res, err := svc.GenerateDueEntries(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "April 2024", res.ProcessedMonth)
	assert.Equal(t, 1, res.StudentsUpdated)
	assert.Equal(t, 3, res.TotalActiveStudents)
	require.Len(t, ledger.unpaid, 1)
	assert.Equal(t, "system-cron", ledger.unpaid[0].RecordedBy)
	assert.Equal(t, 30, ledger.unpaid[0].DueDate.Day())

	// a second run is a no-op
	res, err = svc.GenerateDueEntries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.StudentsUpdated)
}

func TestValidPaymentMode(t *testing.T) {
	for _, m := range PaymentModes {
		assert.True(t, ValidPaymentMode(m), m)
	}
	assert.False(t, ValidPaymentMode("Barter"))
	assert.False(t, ValidPaymentMode("cash"))
}
