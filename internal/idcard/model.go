package idcard

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Profile is one ID-card record. These live apart from the attendance
// directory; the overlap in fields is intentional, cards are often made
// for siblings or students of other branches.
type Profile struct {
	ID            string     `json:"id"`
	Class         string     `json:"class"`
	StudentName   string     `json:"studentName"`
	Birthdate     time.Time  `json:"birthdate"`
	AdmissionDate *time.Time `json:"admissionDate,omitempty"`
	SchoolName    string     `json:"schoolName"`
	ParentName    string     `json:"parentName"`
	ParentEmail   string     `json:"parentEmail,omitempty"`
	ContactNumber string     `json:"contactNumber"`
	Address       string     `json:"address"`
	PhotoURL      string     `json:"photoUrl,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`

	// computed at read time
	RollNumber string `json:"rollNumber,omitempty"`
	Age        *int   `json:"age,omitempty"`
}

// Input is the create/update payload. Photo, when set, is a data URL or
// raw base64 image.
type Input struct {
	Class         string `json:"class"`
	StudentName   string `json:"studentName"`
	Birthdate     string `json:"birthdate"`
	AdmissionDate string `json:"admissionDate"`
	SchoolName    string `json:"schoolName"`
	ParentName    string `json:"parentName"`
	ParentEmail   string `json:"parentEmail"`
	ContactNumber string `json:"contactNumber"`
	Address       string `json:"address"`
	Photo         string `json:"photo"`
}

var (
	emailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	contactRe = regexp.MustCompile(`^\+?[\d\s\-()]+$`)
	digitsRe  = regexp.MustCompile(`\D`)
)

// NormalizeContact reduces a phone number to its last ten digits, the form
// the contact_digits index stores. Country codes and separators never
// affect matching.
func NormalizeContact(s string) string {
	digits := digitsRe.ReplaceAllString(s, "")
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}

// RollNumber formats the positional card number, e.g. "SK007".
func RollNumber(pos int) string {
	return fmt.Sprintf("SK%03d", pos)
}

// AgeAt computes whole years between birthdate and now.
func AgeAt(birthdate, now time.Time) int {
	return int(now.Sub(birthdate).Hours() / (365.25 * 24))
}

func (in Input) validate() []string {
	var errs []string
	required := []struct{ name, value string }{
		{"class", in.Class},
		{"studentName", in.StudentName},
		{"birthdate", in.Birthdate},
		{"schoolName", in.SchoolName},
		{"parentName", in.ParentName},
		{"contactNumber", in.ContactNumber},
		{"address", in.Address},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, f.name+" is required")
		}
	}
	if e := strings.TrimSpace(in.ParentEmail); e != "" && !emailRe.MatchString(e) {
		errs = append(errs, "Invalid email format")
	}
	if in.ContactNumber != "" && !contactRe.MatchString(in.ContactNumber) {
		errs = append(errs, "Invalid contact number format")
	}
	return errs
}
