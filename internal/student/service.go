package student

import (
	"context"
	"strings"
	"time"

	"sktutorial/internal/apperr"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Directory is the subset of Repository the service needs.
type Directory interface {
	List(ctx context.Context, f ListFilter) ([]Student, int, error)
	ListActive(ctx context.Context) ([]Student, error)
	Get(ctx context.Context, id string) (*Student, error)
	FindDuplicate(ctx context.Context, name, grade, excludeID string) (*Student, error)
	Insert(ctx context.Context, st Student, createdBy string) (Student, error)
	Update(ctx context.Context, st Student, updatedBy string) error
	SoftDelete(ctx context.Context, id, deletedBy string) (bool, error)
}

// FeeLedger is how the directory keeps the fee ledger in step with
// admissions. Implemented by the fees repository.
type FeeLedger interface {
	CreateAdmissionEntry(ctx context.Context, studentID string, admission time.Time) error
	RealignAdmissionEntry(ctx context.Context, studentID string, oldAdmission, newAdmission time.Time) error
}

// Service implements directory operations and their fee side effects.
type Service struct {
	repo Directory
	fees FeeLedger
	now  func() time.Time
}

// NewService creates a directory service.
func NewService(repo Directory, fees FeeLedger) *Service {
	return &Service{repo: repo, fees: fees, now: time.Now}
}

// List returns one page of the directory.
func (s *Service) List(ctx context.Context, f ListFilter) (Page, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}
	students, total, err := s.repo.List(ctx, f)
	if err != nil {
		return Page{}, apperr.Internal("Failed to fetch students", err)
	}
	totalPages := (total + f.Limit - 1) / f.Limit
	return Page{Students: students, TotalCount: total, CurrentPage: f.Page, TotalPages: totalPages}, nil
}

// Roster returns every active student in teaching order, the shape the
// marking sheet wants.
func (s *Service) Roster(ctx context.Context) ([]Student, error) {
	students, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, apperr.Internal("Error fetching students data", err)
	}
	SortByGradeThenName(students)
	if students == nil {
		students = []Student{}
	}
	return students, nil
}

// Create admits a new student. The admission month's fee entry is written as
// paid on the admission date, flagged as defaulted so a later admission-date
// edit can move it.
func (s *Service) Create(ctx context.Context, in Input, createdBy string) (Student, error) {
	name, grade, parentName, contact, admission, err := s.validate(in)
	if err != nil {
		return Student{}, err
	}

	dup, err := s.repo.FindDuplicate(ctx, name, grade, "")
	if err != nil {
		return Student{}, apperr.Internal("Failed to create student", err)
	}
	if dup != nil {
		return Student{}, apperr.Conflict("A student with this name already exists in the same grade")
	}

	st := Student{
		Name:            name,
		Grade:           grade,
		ParentName:      parentName,
		Contact:         contact,
		AdmissionDate:   admission,
		LastFeePaidDate: &admission,
		FeeDefaulted:    true,
	}
	created, err := s.repo.Insert(ctx, st, createdBy)
	if err != nil {
		return Student{}, apperr.Internal("Failed to create student", err)
	}
	if err := s.fees.CreateAdmissionEntry(ctx, created.ID, admission); err != nil {
		return Student{}, apperr.Internal("Failed to create student", err)
	}
	return created, nil
}

// Update edits a student. When the admission date moves and the fee fields
// were never edited independently (fee_defaulted still set), the first fee
// entry and lastFeePaidDate follow it.
func (s *Service) Update(ctx context.Context, id string, in Input, updatedBy string) (Student, error) {
	if id == "" {
		return Student{}, apperr.Invalid("Student ID is required")
	}
	name, grade, parentName, contact, admission, err := s.validate(in)
	if err != nil {
		return Student{}, err
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Student{}, apperr.Internal("Failed to update student", err)
	}
	if existing == nil {
		return Student{}, apperr.NotFound("Student not found")
	}

	dup, err := s.repo.FindDuplicate(ctx, name, grade, id)
	if err != nil {
		return Student{}, apperr.Internal("Failed to update student", err)
	}
	if dup != nil {
		return Student{}, apperr.Conflict("Another student with this name already exists in the same grade")
	}

	updated := *existing
	updated.Name = name
	updated.Grade = grade
	updated.ParentName = parentName
	updated.Contact = contact
	updated.AdmissionDate = admission

	admissionChanged := !sameDay(existing.AdmissionDate, admission)
	if admissionChanged && existing.FeeDefaulted {
		updated.LastFeePaidDate = &admission
		if err := s.fees.RealignAdmissionEntry(ctx, id, existing.AdmissionDate, admission); err != nil {
			return Student{}, apperr.Internal("Failed to update student", err)
		}
	}

	if err := s.repo.Update(ctx, updated, updatedBy); err != nil {
		return Student{}, apperr.Internal("Failed to update student", err)
	}
	return updated, nil
}

// Delete soft-deletes a student.
func (s *Service) Delete(ctx context.Context, id, deletedBy string) error {
	if id == "" {
		return apperr.Invalid("Student ID is required")
	}
	ok, err := s.repo.SoftDelete(ctx, id, deletedBy)
	if err != nil {
		return apperr.Internal("Failed to delete student", err)
	}
	if !ok {
		return apperr.NotFound("Student not found")
	}
	return nil
}

func (s *Service) validate(in Input) (name, grade, parentName, contact string, admission time.Time, err error) {
	name = strings.TrimSpace(in.Name)
	grade = strings.TrimSpace(in.Grade)
	parentName = strings.TrimSpace(in.ParentName)
	contact = strings.TrimSpace(in.Contact)

	switch {
	case name == "" || grade == "" || parentName == "" || contact == "" || in.AdmissionDate == "":
		err = apperr.Invalid("All fields are required: name, grade, parentName, contact, admissionDate")
	case len(name) < 2:
		err = apperr.Invalid("Student name must be at least 2 characters long")
	case len(parentName) < 2:
		err = apperr.Invalid("Parent name must be at least 2 characters long")
	case !ValidContact(contact):
		err = apperr.Invalid("Invalid contact number format. Use +91 followed by 10 digits")
	case !ValidGrade(grade):
		err = apperr.Invalid("Invalid grade selected")
	}
	if err != nil {
		return
	}

	admission, perr := ParseDate(in.AdmissionDate)
	if perr != nil {
		err = apperr.Invalid("Invalid admission date format")
		return
	}
	today := s.now()
	endOfToday := time.Date(today.Year(), today.Month(), today.Day(), 23, 59, 59, 0, today.Location())
	if admission.After(endOfToday) {
		err = apperr.Invalid("Admission date cannot be in the future")
	}
	return
}

// ParseDate accepts YYYY-MM-DD or a full RFC 3339 timestamp and returns the
// calendar day in UTC.
func ParseDate(s string) (time.Time, error) {
	if d, err := time.ParseInLocation(DateLayout, s, time.UTC); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func sameDay(a, b time.Time) bool {
	return a.Format(DateLayout) == b.Format(DateLayout)
}
