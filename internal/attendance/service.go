package attendance

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"sktutorial/internal/apperr"
	"sktutorial/internal/student"
)

// Store is the persistence surface the service needs.
type Store interface {
	ActiveStudentRefs(ctx context.Context, ids []string) (map[string]StudentRef, error)
	UpsertDays(ctx context.Context, entries []DayEntry) (created, updated int, err error)
	MonthEntries(ctx context.Context, year int, month time.Month, grade, studentID string) ([]DayRow, error)
	MonthsWithData(ctx context.Context, year int) ([]time.Month, error)
	YearsWithData(ctx context.Context) ([]int, error)
}

// Service implements attendance marking and reporting.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// ParseMonthName maps "January".."December" to its month number.
func ParseMonthName(name string) (time.Month, bool) {
	for m := time.January; m <= time.December; m++ {
		if m.String() == name {
			return m, true
		}
	}
	return 0, false
}

// Mark applies one day's attendance batch.
//
// The whole batch is validated before any read: one bad status rejects
// everything, naming the value. Unknown or inactive student ids are skipped,
// not errors. All surviving entries go to the store as one bulk upsert, so
// re-marking a date overwrites that date's row and nothing else.
func (s *Service) Mark(ctx context.Context, date string, entries map[string]string, markedBy string) (MarkResult, error) {
	if date == "" || len(entries) == 0 {
		return MarkResult{}, apperr.Invalid("Date and attendance data are required")
	}
	day, err := student.ParseDate(date)
	if err != nil {
		return MarkResult{}, apperr.Invalid("Invalid date format")
	}
	for _, status := range entries {
		if !ValidStatus(status) {
			return MarkResult{}, apperr.Invalid("Invalid attendance status: " + status)
		}
	}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	refs, err := s.store.ActiveStudentRefs(ctx, ids)
	if err != nil {
		return MarkResult{}, apperr.Internal("Error marking attendance", err)
	}

	markedAt := s.now().UTC()
	batch := make([]DayEntry, 0, len(refs))
	for id, status := range entries {
		if _, ok := refs[id]; !ok {
			continue
		}
		batch = append(batch, DayEntry{
			StudentID: id,
			Day:       day,
			Status:    status,
			MarkedBy:  markedBy,
			MarkedAt:  markedAt,
		})
	}

	created, updated, err := s.store.UpsertDays(ctx, batch)
	if err != nil {
		return MarkResult{}, apperr.Internal("Error marking attendance", err)
	}

	return MarkResult{
		Date:      day.Format(student.DateLayout),
		Month:     day.Month().String(),
		Year:      day.Year(),
		Processed: len(entries),
		Created:   created,
		Updated:   updated,
		Skipped:   len(entries) - len(batch),
	}, nil
}

// AvailableMonths lists the months and years that carry data.
type AvailableMonths struct {
	AvailableMonths []string `json:"availableMonths"`
	AvailableYears  []int    `json:"availableYears"`
	CurrentYear     int      `json:"currentYear"`
	CurrentMonth    string   `json:"currentMonth"`
}

// Available returns which report months exist for the given year (current
// year when zero).
func (s *Service) Available(ctx context.Context, year int) (AvailableMonths, error) {
	if year == 0 {
		year = s.now().Year()
	}
	months, err := s.store.MonthsWithData(ctx, year)
	if err != nil {
		return AvailableMonths{}, apperr.Internal("Internal server error", err)
	}
	years, err := s.store.YearsWithData(ctx)
	if err != nil {
		return AvailableMonths{}, apperr.Internal("Internal server error", err)
	}

	names := make([]string, 0, len(months))
	for _, m := range months {
		names = append(names, m.String())
	}
	return AvailableMonths{
		AvailableMonths: names,
		AvailableYears:  years,
		CurrentYear:     year,
		CurrentMonth:    s.now().Month().String(),
	}, nil
}

// StudentDetail is one per-student row of the grade report.
type StudentDetail struct {
	StudentName    string  `json:"studentName"`
	Grade          string  `json:"grade"`
	TotalDays      int     `json:"totalDays"`
	Present        int     `json:"present"`
	Absent         int     `json:"absent"`
	Late           int     `json:"late"`
	AttendanceRate float64 `json:"attendanceRate"`
}

// GradeStat is one per-grade row, recomputed from grade-level sums rather
// than averaged student rates.
type GradeStat struct {
	Grade          string  `json:"grade"`
	Present        float64 `json:"present"`
	Absent         float64 `json:"absent"`
	Late           float64 `json:"late"`
	TotalStudents  int     `json:"totalStudents"`
	AttendanceRate float64 `json:"attendanceRate"`
}

// GradeRef names a grade with its winning value in an insight.
type GradeRef struct {
	Grade string  `json:"grade"`
	Rate  float64 `json:"rate,omitempty"`
	Count float64 `json:"count,omitempty"`
}

// Insights are the min/max reductions over grade stats.
type Insights struct {
	HighestAttendance GradeRef `json:"highestAttendance"`
	LowestAttendance  GradeRef `json:"lowestAttendance"`
	MostAbsent        GradeRef `json:"mostAbsent"`
	MostLate          GradeRef `json:"mostLate"`
}

// ReportMetadata describes a generated report.
type ReportMetadata struct {
	TotalStudents int       `json:"totalStudents"`
	TotalGrades   int       `json:"totalGrades"`
	ReportMonth   string    `json:"reportMonth"`
	ReportYear    int       `json:"reportYear"`
	GeneratedAt   time.Time `json:"generatedAt"`
}

// GradeReport is the month overview grouped by grade.
type GradeReport struct {
	GradeStats     []GradeStat     `json:"gradeStats"`
	StudentDetails []StudentDetail `json:"studentDetails"`
	Insights       Insights        `json:"insights"`
	Metadata       ReportMetadata  `json:"metadata"`
}

// BuildGradeReport computes the report for a month. Rates are relative to
// days actually marked, not working days: a student marked twice and present
// both times shows 100.
func (s *Service) BuildGradeReport(ctx context.Context, monthName string, year int) (GradeReport, error) {
	if year == 0 {
		year = s.now().Year()
	}
	if monthName == "" {
		monthName = s.now().Month().String()
	}
	month, ok := ParseMonthName(monthName)
	if !ok {
		return GradeReport{}, apperr.Invalid("Invalid month. Please provide a valid month name (e.g., January, February, etc.)")
	}

	rows, err := s.store.MonthEntries(ctx, year, month, "", "")
	if err != nil {
		return GradeReport{}, apperr.Internal("Internal server error", err)
	}

	report := summarize(rows)
	report.Metadata = ReportMetadata{
		TotalStudents: len(report.StudentDetails),
		TotalGrades:   len(report.GradeStats),
		ReportMonth:   monthName,
		ReportYear:    year,
		GeneratedAt:   s.now().UTC(),
	}
	return report, nil
}

func summarize(rows []DayRow) GradeReport {
	type counts struct {
		name, grade                  string
		total, present, absent, late int
	}
	perStudent := map[string]*counts{}
	for _, row := range rows {
		c, ok := perStudent[row.StudentID]
		if !ok {
			c = &counts{name: row.StudentName, grade: row.Grade}
			perStudent[row.StudentID] = c
		}
		c.total++
		switch row.Status {
		case StatusPresent:
			c.present++
		case StatusAbsent:
			c.absent++
		case StatusLate:
			c.late++
		}
	}

	details := make([]StudentDetail, 0, len(perStudent))
	type gradeTotals struct {
		students, total, present, absent, late int
	}
	perGrade := map[string]*gradeTotals{}
	for _, c := range perStudent {
		details = append(details, StudentDetail{
			StudentName:    c.name,
			Grade:          c.grade,
			TotalDays:      c.total,
			Present:        c.present,
			Absent:         c.absent,
			Late:           c.late,
			AttendanceRate: round1(float64(c.present) / float64(c.total) * 100),
		})
		g, ok := perGrade[c.grade]
		if !ok {
			g = &gradeTotals{}
			perGrade[c.grade] = g
		}
		g.students++
		g.total += c.total
		g.present += c.present
		g.absent += c.absent
		g.late += c.late
	}
	sort.Slice(details, func(i, j int) bool {
		gi, gj := student.GradeRank(details[i].Grade), student.GradeRank(details[j].Grade)
		if gi != gj {
			return gi < gj
		}
		return details[i].StudentName < details[j].StudentName
	})

	stats := make([]GradeStat, 0, len(perGrade))
	for grade, g := range perGrade {
		possible := float64(g.total)
		stats = append(stats, GradeStat{
			Grade:          grade,
			Present:        round1(float64(g.present) / possible * 100),
			Absent:         round1(float64(g.absent) / possible * 100),
			Late:           round1(float64(g.late) / possible * 100),
			TotalStudents:  g.students,
			AttendanceRate: round1(float64(g.present) / possible * 100),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		return student.GradeRank(stats[i].Grade) < student.GradeRank(stats[j].Grade)
	})

	return GradeReport{
		GradeStats:     stats,
		StudentDetails: details,
		Insights:       calcInsights(stats),
	}
}

// calcInsights reduces grade stats to min/max winners. Stats arrive in
// teaching order and comparisons are strict, so the earliest grade in that
// order wins ties.
func calcInsights(stats []GradeStat) Insights {
	if len(stats) == 0 {
		na := GradeRef{Grade: "N/A"}
		return Insights{HighestAttendance: na, LowestAttendance: na, MostAbsent: na, MostLate: na}
	}
	highest, lowest, mostAbsent, mostLate := stats[0], stats[0], stats[0], stats[0]
	for _, st := range stats[1:] {
		if st.AttendanceRate > highest.AttendanceRate {
			highest = st
		}
		if st.AttendanceRate < lowest.AttendanceRate {
			lowest = st
		}
		if st.Absent > mostAbsent.Absent {
			mostAbsent = st
		}
		if st.Late > mostLate.Late {
			mostLate = st
		}
	}
	return Insights{
		HighestAttendance: GradeRef{Grade: highest.Grade, Rate: highest.AttendanceRate},
		LowestAttendance:  GradeRef{Grade: lowest.Grade, Rate: lowest.AttendanceRate},
		MostAbsent:        GradeRef{Grade: mostAbsent.Grade, Count: mostAbsent.Absent},
		MostLate:          GradeRef{Grade: mostLate.Grade, Count: mostLate.Late},
	}
}

// ReportQuery selects a month's raw records.
type ReportQuery struct {
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Grade     string `json:"grade"`
	StudentID string `json:"studentId"`
}

// StudentRecord is one student's day entries for the requested month.
type StudentRecord struct {
	StudentID    string        `json:"studentId"`
	StudentName  string        `json:"studentName"`
	StudentGrade string        `json:"studentGrade"`
	Year         int           `json:"year"`
	Days         []RecordedDay `json:"days"`
}

// RecordedDay is one stored mark in a student record.
type RecordedDay struct {
	Date     string    `json:"date"`
	Status   string    `json:"status"`
	MarkedBy string    `json:"markedBy"`
	MarkedAt time.Time `json:"markedAt"`
}

// ReportSummary aggregates a monthly report.
type ReportSummary struct {
	TotalStudents         int      `json:"totalStudents"`
	MonthName             string   `json:"monthName"`
	Year                  int      `json:"year"`
	Grades                []string `json:"grades"`
	DateRangeStart        string   `json:"dateRangeStart,omitempty"`
	DateRangeEnd          string   `json:"dateRangeEnd,omitempty"`
	OverallAttendanceRate int      `json:"overallAttendanceRate"`
	StudentsWithData      int      `json:"studentsWithData"`
}

// MonthlyReport is the raw-records report.
type MonthlyReport struct {
	Data    []StudentRecord `json:"data"`
	Summary ReportSummary   `json:"summary"`
}

// BuildMonthlyReport returns per-student day entries for a (year, month)
// with an aggregate summary.
func (s *Service) BuildMonthlyReport(ctx context.Context, q ReportQuery) (MonthlyReport, error) {
	if q.Year == 0 || q.Month == 0 {
		return MonthlyReport{}, apperr.Invalid("Year and month are required parameters")
	}
	currentYear := s.now().Year()
	if q.Year < 2020 || q.Year > currentYear+1 {
		return MonthlyReport{}, apperr.Invalid("Invalid year. Must be between 2020 and " + strconv.Itoa(currentYear+1))
	}
	if q.Month < 1 || q.Month > 12 {
		return MonthlyReport{}, apperr.Invalid("Invalid month. Must be between 1 and 12")
	}

	rows, err := s.store.MonthEntries(ctx, q.Year, time.Month(q.Month), q.Grade, q.StudentID)
	if err != nil {
		return MonthlyReport{}, apperr.Internal("Internal server error while fetching attendance data", err)
	}

	byStudent := map[string]*StudentRecord{}
	order := []string{}
	gradeSet := map[string]bool{}
	var earliest, latest time.Time
	present, possible := 0, 0

	for _, row := range rows {
		rec, ok := byStudent[row.StudentID]
		if !ok {
			rec = &StudentRecord{
				StudentID:    row.StudentID,
				StudentName:  row.StudentName,
				StudentGrade: row.Grade,
				Year:         q.Year,
			}
			byStudent[row.StudentID] = rec
			order = append(order, row.StudentID)
		}
		rec.Days = append(rec.Days, RecordedDay{
			Date:     row.Day.Format(student.DateLayout),
			Status:   row.Status,
			MarkedBy: row.MarkedBy,
			MarkedAt: row.MarkedAt,
		})
		gradeSet[row.Grade] = true
		if earliest.IsZero() || row.Day.Before(earliest) {
			earliest = row.Day
		}
		if latest.IsZero() || row.Day.After(latest) {
			latest = row.Day
		}
		possible++
		if row.Status == StatusPresent {
			present++
		}
	}

	data := make([]StudentRecord, 0, len(order))
	for _, id := range order {
		data = append(data, *byStudent[id])
	}

	grades := make([]string, 0, len(gradeSet))
	for g := range gradeSet {
		grades = append(grades, g)
	}
	sort.Slice(grades, func(i, j int) bool {
		return student.GradeRank(grades[i]) < student.GradeRank(grades[j])
	})

	summary := ReportSummary{
		TotalStudents:    len(data),
		MonthName:        time.Month(q.Month).String(),
		Year:             q.Year,
		Grades:           grades,
		StudentsWithData: len(data),
	}
	if possible > 0 {
		summary.OverallAttendanceRate = int(math.Round(float64(present) / float64(possible) * 100))
		summary.DateRangeStart = earliest.Format(student.DateLayout)
		summary.DateRangeEnd = latest.Format(student.DateLayout)
	}

	return MonthlyReport{Data: data, Summary: summary}, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
