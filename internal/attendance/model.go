package attendance

import "time"

// Canonical day statuses. Earlier builds of the app also accepted "leave";
// that value is superseded and rejected.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
)

// ValidStatus reports whether s is a canonical status.
func ValidStatus(s string) bool {
	return s == StatusPresent || s == StatusAbsent || s == StatusLate
}

// DayEntry is a single date's attendance mark for one student.
type DayEntry struct {
	StudentID string
	Day       time.Time
	Status    string
	MarkedBy  string
	MarkedAt  time.Time
}

// DayRow is a stored day entry joined with the student it belongs to.
// Name and grade come from the directory at read time; nothing is
// denormalized into attendance rows.
type DayRow struct {
	StudentID   string
	StudentName string
	Grade       string
	Day         time.Time
	Status      string
	MarkedBy    string
	MarkedAt    time.Time
}

// StudentRef identifies an active student during a marking batch.
type StudentRef struct {
	ID    string
	Name  string
	Grade string
}

// MarkResult summarizes one marking batch.
type MarkResult struct {
	Date      string `json:"date"`
	Month     string `json:"month"`
	Year      int    `json:"year"`
	Processed int    `json:"processed"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	Skipped   int    `json:"skipped"`
}
