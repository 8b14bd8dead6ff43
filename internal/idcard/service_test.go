package idcard

import (
	"context"
	"errors"
	"testing"
	"time"

	"sktutorial/internal/apperr"
	"sktutorial/internal/cloudinary"
)

type fakeProfiles struct {
	profiles map[string]*Profile
	nextID   int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: map[string]*Profile{}}
}

func (f *fakeProfiles) List(_ context.Context, _, _ string) ([]Profile, error) {
	var out []Profile
	for _, p := range f.profiles {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeProfiles) Get(_ context.Context, id string) (*Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) FindDuplicate(_ context.Context, studentName, parentName, excludeID string) (bool, error) {
	for _, p := range f.profiles {
		if p.StudentName == studentName && p.ParentName == parentName && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProfiles) Insert(_ context.Context, p *Profile) error {
	f.nextID++
	p.ID = RollNumber(f.nextID)
	f.profiles[p.ID] = p
	return nil
}

func (f *fakeProfiles) Update(_ context.Context, p *Profile) error {
	f.profiles[p.ID] = p
	return nil
}

func (f *fakeProfiles) Delete(_ context.Context, id string) (bool, error) {
	if _, ok := f.profiles[id]; !ok {
		return false, nil
	}
	delete(f.profiles, id)
	return true, nil
}

func (f *fakeProfiles) FindEmailByContact(_ context.Context, digits string) (string, string, error) {
	for _, p := range f.profiles {
		if NormalizeContact(p.ContactNumber) == digits && p.ParentEmail != "" {
			return p.ParentName, p.ParentEmail, nil
		}
	}
	return "", "", nil
}

type fakeUploader struct {
	fail  bool
	calls int
}

func (f *fakeUploader) UploadPhoto(_ context.Context, _ string) (*cloudinary.UploadResult, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("upstream down")
	}
	return &cloudinary.UploadResult{SecureURL: "https://res.example/photo.jpg"}, nil
}

func validCardInput() Input {
	return Input{
		Class:         "3rd",
		StudentName:   "Anita",
		Birthdate:     "2014-06-01",
		SchoolName:    "SK Public School",
		ParentName:    "Ravi",
		ParentEmail:   "ravi@example.test",
		ContactNumber: "+91 9876543210",
		Address:       "12 MG Road",
	}
}

func TestCreateCardPhotoBestEffort(t *testing.T) {
	repo := newFakeProfiles()
	up := &fakeUploader{fail: true}
	svc := NewService(repo, up)

	in := validCardInput()
	in.Photo = "data:image/jpeg;base64,xxxx"
	created, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create() error = %v, upload failure must not fail creation", err)
	}
	if created.PhotoURL != "" {
		t.Errorf("photoUrl = %q, want empty after failed upload", created.PhotoURL)
	}
	if up.calls != 1 {
		t.Errorf("upload calls = %d, want 1", up.calls)
	}
}

func TestCreateCardDuplicate(t *testing.T) {
	repo := newFakeProfiles()
	svc := NewService(repo, nil)

	if _, err := svc.Create(context.Background(), validCardInput()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	_, err := svc.Create(context.Background(), validCardInput())
	if err == nil || apperr.Message(err) != "Student already exists with same name and parent" {
		t.Errorf("Create() error = %v, want duplicate conflict", err)
	}
}

func TestUpdateCardPhotoFailureIsFatal(t *testing.T) {
	repo := newFakeProfiles()
	up := &fakeUploader{}
	svc := NewService(repo, up)

	created, err := svc.Create(context.Background(), validCardInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	up.fail = true
	in := validCardInput()
	in.Photo = "data:image/jpeg;base64,xxxx"
	if _, err := svc.Update(context.Background(), created.ID, in); err == nil {
		t.Error("Update() with failing upload expected error")
	}

	// without a new photo the stored URL is kept
	up.fail = false
	in.Photo = ""
	updated, err := svc.Update(context.Background(), created.ID, in)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.PhotoURL != created.PhotoURL {
		t.Errorf("photoUrl = %q, want %q preserved", updated.PhotoURL, created.PhotoURL)
	}
}

func TestListComputesRollAndAge(t *testing.T) {
	repo := newFakeProfiles()
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC) }

	if _, err := svc.Create(context.Background(), validCardInput()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	list, err := svc.List(context.Background(), "", "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d profiles", len(list))
	}
	if list[0].RollNumber != "SK001" {
		t.Errorf("rollNumber = %q", list[0].RollNumber)
	}
	if list[0].Age == nil || *list[0].Age != 10 {
		t.Errorf("age = %v, want 10", list[0].Age)
	}
}

func TestEmailForContact(t *testing.T) {
	repo := newFakeProfiles()
	svc := NewService(repo, nil)

	if _, err := svc.Create(context.Background(), validCardInput()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// different formatting, same digits
	name, email, err := svc.EmailForContact(context.Background(), "98765-43210")
	if err != nil {
		t.Fatalf("EmailForContact() error = %v", err)
	}
	if name != "Ravi" || email != "ravi@example.test" {
		t.Errorf("got %q/%q", name, email)
	}

	_, email, err = svc.EmailForContact(context.Background(), "+91 9000000000")
	if err != nil {
		t.Fatalf("EmailForContact() error = %v", err)
	}
	if email != "" {
		t.Errorf("unexpected match %q", email)
	}
}
