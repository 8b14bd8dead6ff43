package fees

import (
	"strconv"
	"time"
)

// Payment modes accepted by the ledger.
var PaymentModes = []string{"Cash", "Online", "UPI", "Bank Transfer", "Cheque"}

// ValidPaymentMode reports whether mode is accepted.
func ValidPaymentMode(mode string) bool {
	for _, m := range PaymentModes {
		if m == mode {
			return true
		}
	}
	return false
}

// Entry is one month's payment record for a student. The month is keyed as
// (year, month number) internally; the label exists only for display, so
// "January" can never be ambiguous across years.
type Entry struct {
	Year        int        `json:"year"`
	Month       int        `json:"month"`
	Label       string     `json:"label"`
	Paid        bool       `json:"paid"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	PaidOn      *time.Time `json:"paidOn,omitempty"`
	PaymentMode string     `json:"paymentMode,omitempty"`
	Amount      *float64   `json:"amount,omitempty"`
	RecordedBy  string     `json:"recordedBy,omitempty"`
	RecordedAt  time.Time  `json:"recordedAt,omitempty"`
}

// MonthLabel renders the display form of a ledger month, e.g. "January 2024".
func MonthLabel(year int, month time.Month) string {
	return month.String() + " " + strconv.Itoa(year)
}

// DueDateFor projects the admission day into the target month, clamped to
// the month's last day (admission on the 31st dues on the 30th in a 30-day
// month).
func DueDateFor(admission time.Time, year int, month time.Month) time.Time {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	day := admission.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// StudentFees is a directory entry with its embedded ledger.
type StudentFees struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Grade            string     `json:"grade"`
	ParentName       string     `json:"parentName"`
	Contact          string     `json:"contact"`
	AdmissionDate    time.Time  `json:"admissionDate"`
	LastFeePaidDate  *time.Time `json:"lastFeePaidDate,omitempty"`
	MonthlyFeeStatus []Entry    `json:"monthlyFeeStatus"`
}

// PaidEvent is the outbox payload published per newly-paid entry; the
// worker turns it into a confirmation email.
type PaidEvent struct {
	StudentID   string   `json:"studentId"`
	StudentName string   `json:"studentName"`
	Contact     string   `json:"contact"`
	Year        int      `json:"year"`
	Month       int      `json:"month"`
	Label       string   `json:"label"`
	Amount      *float64 `json:"amount,omitempty"`
	PaymentMode string   `json:"paymentMode,omitempty"`
}

// MessageTypePaid tags PaidEvent queue messages.
const MessageTypePaid = "fee_paid"
