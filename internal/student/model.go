package student

import (
	"regexp"
	"sort"
	"time"
)

// Grades in teaching order, Nursery through 9th.
var Grades = []string{"Nursery", "LKG", "UKG", "1st", "2nd", "3rd", "4th", "5th", "6th", "7th", "8th", "9th"}

var gradeIndex = func() map[string]int {
	m := make(map[string]int, len(Grades))
	for i, g := range Grades {
		m[g] = i
	}
	return m
}()

// ValidGrade reports whether g is one of the fixed grade labels.
func ValidGrade(g string) bool {
	_, ok := gradeIndex[g]
	return ok
}

// GradeRank returns the position of a grade in teaching order; unknown
// grades sort last.
func GradeRank(g string) int {
	if i, ok := gradeIndex[g]; ok {
		return i
	}
	return len(Grades)
}

// SortByGradeThenName orders students for the attendance-marking sheet.
func SortByGradeThenName(list []Student) {
	sort.SliceStable(list, func(i, j int) bool {
		gi, gj := GradeRank(list[i].Grade), GradeRank(list[j].Grade)
		if gi != gj {
			return gi < gj
		}
		return list[i].Name < list[j].Name
	})
}

// Indian mobile numbers: +91 then a 10-digit number starting 6-9.
var phoneRe = regexp.MustCompile(`^\+91\s?[6-9]\d{9}$`)

// ValidContact checks the contact number format, ignoring inner spaces.
func ValidContact(contact string) bool {
	stripped := ""
	for _, r := range contact {
		if r != ' ' {
			stripped += string(r)
		}
	}
	return phoneRe.MatchString(stripped)
}

// Student is an enrolled student in the directory.
type Student struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Grade           string     `json:"grade"`
	ParentName      string     `json:"parentName"`
	Contact         string     `json:"contact"`
	AdmissionDate   time.Time  `json:"admissionDate"`
	LastFeePaidDate *time.Time `json:"lastFeePaidDate,omitempty"`
	FeeDefaulted    bool       `json:"-"`
	IsActive        bool       `json:"isActive"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Input is the caller-supplied student data for create/update.
type Input struct {
	Name          string `json:"name"`
	Grade         string `json:"grade"`
	ParentName    string `json:"parentName"`
	Contact       string `json:"contact"`
	AdmissionDate string `json:"admissionDate"` // YYYY-MM-DD
}

// ListFilter narrows the directory listing.
type ListFilter struct {
	Search string
	Grade  string
	Page   int
	Limit  int
}

// Page is one page of directory results.
type Page struct {
	Students    []Student
	TotalCount  int
	CurrentPage int
	TotalPages  int
}
