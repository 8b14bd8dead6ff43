package idcard

import (
	"context"
	"log"
	"strings"
	"time"

	"sktutorial/internal/apperr"
	"sktutorial/internal/cloudinary"
)

// Profiles is the persistence surface the service needs.
type Profiles interface {
	List(ctx context.Context, search, class string) ([]Profile, error)
	Get(ctx context.Context, id string) (*Profile, error)
	FindDuplicate(ctx context.Context, studentName, parentName, excludeID string) (bool, error)
	Insert(ctx context.Context, p *Profile) error
	Update(ctx context.Context, p *Profile) error
	Delete(ctx context.Context, id string) (bool, error)
	FindEmailByContact(ctx context.Context, digits string) (name, email string, err error)
}

// PhotoUploader pushes card photos to external storage. Nil disables
// uploads entirely.
type PhotoUploader interface {
	UploadPhoto(ctx context.Context, data string) (*cloudinary.UploadResult, error)
}

// Service implements the ID-card profile operations.
type Service struct {
	repo   Profiles
	photos PhotoUploader
	now    func() time.Time
}

// NewService creates the service. photos may be nil.
func NewService(repo Profiles, photos PhotoUploader) *Service {
	return &Service{repo: repo, photos: photos, now: time.Now}
}

const dateLayout = "2006-01-02"

// List returns profiles with the computed roll number and age. Roll numbers
// are positional within the returned set.
func (s *Service) List(ctx context.Context, search, class string) ([]Profile, error) {
	profiles, err := s.repo.List(ctx, search, class)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch students", err)
	}
	today := s.now().UTC()
	for i := range profiles {
		profiles[i].RollNumber = RollNumber(i + 1)
		age := AgeAt(profiles[i].Birthdate, today)
		profiles[i].Age = &age
	}
	if profiles == nil {
		profiles = []Profile{}
	}
	return profiles, nil
}

// Create validates and stores a new profile. A failed photo upload never
// fails creation; the card is simply stored without a photo.
func (s *Service) Create(ctx context.Context, in Input) (*Profile, error) {
	p, err := s.fromInput(in)
	if err != nil {
		return nil, err
	}

	dup, err := s.repo.FindDuplicate(ctx, p.StudentName, p.ParentName, "")
	if err != nil {
		return nil, apperr.Internal("Failed to create student", err)
	}
	if dup {
		return nil, apperr.Conflict("Student already exists with same name and parent")
	}

	if in.Photo != "" && s.photos != nil {
		if res, err := s.photos.UploadPhoto(ctx, in.Photo); err != nil {
			log.Printf("idcard: photo upload failed for %s: %v", p.StudentName, err)
		} else {
			p.PhotoURL = res.SecureURL
		}
	}

	if err := s.repo.Insert(ctx, p); err != nil {
		return nil, apperr.Internal("Failed to create student", err)
	}
	return p, nil
}

// Update validates and rewrites an existing profile. Unlike Create, a
// failed photo upload here is an error, the caller explicitly asked for a
// new photo.
func (s *Service) Update(ctx context.Context, id string, in Input) (*Profile, error) {
	if id == "" {
		return nil, apperr.Invalid("Valid student ID is required")
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperr.Internal("Failed to update student", err)
	}
	if existing == nil {
		return nil, apperr.NotFound("Student not found")
	}

	p, err := s.fromInput(in)
	if err != nil {
		return nil, err
	}
	p.ID = id
	p.PhotoURL = existing.PhotoURL
	p.CreatedAt = existing.CreatedAt

	if in.Photo != "" {
		if s.photos == nil {
			return nil, apperr.Invalid("Photo upload is not configured")
		}
		res, err := s.photos.UploadPhoto(ctx, in.Photo)
		if err != nil {
			return nil, apperr.Internal("Photo upload failed", err)
		}
		p.PhotoURL = res.SecureURL
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, apperr.Internal("Failed to update student", err)
	}
	return p, nil
}

// Delete hard-removes a profile. Cards are ephemeral artifacts, nothing
// references them.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperr.Invalid("Valid student ID is required")
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return apperr.Internal("Failed to delete student", err)
	}
	if !ok {
		return apperr.NotFound("Student not found")
	}
	return nil
}

// EmailForContact resolves a raw phone number to (parentName, email) via
// the normalized contact index. Both empty when nothing matches.
func (s *Service) EmailForContact(ctx context.Context, contact string) (string, string, error) {
	digits := NormalizeContact(contact)
	if digits == "" {
		return "", "", nil
	}
	return s.repo.FindEmailByContact(ctx, digits)
}

func (s *Service) fromInput(in Input) (*Profile, error) {
	if errs := in.validate(); len(errs) > 0 {
		return nil, apperr.Invalid("Validation failed: " + strings.Join(errs, "; "))
	}
	birth, err := time.Parse(dateLayout, in.Birthdate)
	if err != nil {
		return nil, apperr.Invalid("Invalid birthdate format")
	}
	p := &Profile{
		Class:         strings.TrimSpace(in.Class),
		StudentName:   strings.TrimSpace(in.StudentName),
		Birthdate:     birth,
		SchoolName:    strings.TrimSpace(in.SchoolName),
		ParentName:    strings.TrimSpace(in.ParentName),
		ParentEmail:   strings.TrimSpace(in.ParentEmail),
		ContactNumber: strings.TrimSpace(in.ContactNumber),
		Address:       strings.TrimSpace(in.Address),
	}
	if in.AdmissionDate != "" {
		adm, err := time.Parse(dateLayout, in.AdmissionDate)
		if err != nil {
			return nil, apperr.Invalid("Invalid admission date format")
		}
		p.AdmissionDate = &adm
	}
	return p, nil
}
