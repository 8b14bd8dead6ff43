package auth

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"sktutorial/internal/apperr"
)

// Roles recognized by the system.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)

// UserStore is the subset of Repository the service needs.
type UserStore interface {
	FindByEmailAndRole(ctx context.Context, email, role string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	TouchLastLogin(ctx context.Context, id string) error
}

// Service handles credential checks and token issuing.
type Service struct {
	store   UserStore
	issuer  string
	signKey string
	ttl     time.Duration
}

// NewService creates a service backed by a user store.
func NewService(store UserStore, issuer, signKey string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{store: store, issuer: issuer, signKey: signKey, ttl: ttl}
}

// LoginResult is the successful login payload.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

// Login verifies email/password/role and issues a session token. A valid
// password with the wrong role fails the same way as a bad password: the
// lookup is keyed on (email, role), so no cross-role token can come out.
func (s *Service) Login(ctx context.Context, email, password, role string) (LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" || role == "" {
		return LoginResult{}, apperr.Invalid("Email, password, and role are required")
	}
	if role != RoleAdmin && role != RoleTeacher {
		return LoginResult{}, apperr.Invalid("Unknown role")
	}

	usr, err := s.store.FindByEmailAndRole(ctx, email, role)
	if err != nil {
		return LoginResult{}, apperr.Internal("Internal server error", err)
	}
	if usr == nil {
		return LoginResult{}, apperr.Unauthorized("Invalid credentials or role")
	}
	if !usr.IsActive {
		return LoginResult{}, apperr.Unauthorized("Account is deactivated. Please contact administrator.")
	}
	if bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(password)) != nil {
		return LoginResult{}, apperr.Unauthorized("Invalid credentials")
	}

	token, exp, err := Issue(usr.ID, usr.Email, usr.Role, usr.Name, s.issuer, s.signKey, s.ttl)
	if err != nil {
		return LoginResult{}, apperr.Internal("Internal server error", err)
	}
	if err := s.store.TouchLastLogin(ctx, usr.ID); err != nil {
		return LoginResult{}, apperr.Internal("Internal server error", err)
	}
	return LoginResult{Token: token, ExpiresAt: exp, User: *usr}, nil
}

// CurrentUser resolves the account behind a verified token, rejecting
// deleted or deactivated accounts.
func (s *Service) CurrentUser(ctx context.Context, userID string) (User, error) {
	usr, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return User{}, apperr.Internal("Internal server error", err)
	}
	if usr == nil {
		return User{}, apperr.Unauthorized("User not found")
	}
	if !usr.IsActive {
		return User{}, apperr.Unauthorized("Account deactivated")
	}
	return *usr, nil
}
