package authn

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/cmformation/formation-portal/pkg/authenticator"
	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/server/store"
)

// MinPasswordLength is the minimum number of characters of a portal password
const MinPasswordLength = 10

// ErrWeakPassword is returned by HashPassword for passwords below MinPasswordLength
var ErrWeakPassword = fmt.Errorf("password must be at least %d characters", MinPasswordLength)

// dummyHash is compared against when the email is unknown so both paths cost one bcrypt run
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("formation-portal-unknown-account"), bcrypt.DefaultCost)

// Store abstracts the profile lookups the authenticator needs
type Store interface {
	GetByEmail(email string) (*model.Profile, error)
}

// HealthChecker reports database health
type HealthChecker interface {
	CheckConnectivity() error
}

// Authenticator implements email/password authentication
type Authenticator struct {
	profiles Store
	health   HealthChecker
}

// New creates a new password authenticator
func New(profiles Store, health HealthChecker) *Authenticator {
	return &Authenticator{
		profiles: profiles,
		health:   health,
	}
}

// Name returns the authenticator name
func (a *Authenticator) Name() string {
	return "authn"
}

// Authenticate validates an email and password and returns the profile
func (a *Authenticator) Authenticate(ctx context.Context, input authenticator.Input) (*model.Profile, error) {
	if input.Email == "" || len(input.Credentials) == 0 {
		return nil, authenticator.ErrAuthenticationFailed
	}

	profile, err := a.profiles.GetByEmail(input.Email)
	if errors.Is(err, store.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, input.Credentials)
		return nil, authenticator.ErrAuthenticationFailed
	}
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	// Invited profiles have no password until they accept the invitation
	if !profile.HasPassword() {
		_ = bcrypt.CompareHashAndPassword(dummyHash, input.Credentials)
		return nil, authenticator.ErrAuthenticationFailed
	}

	if !CheckPassword(*profile.PasswordHash, input.Credentials) {
		return nil, authenticator.ErrAuthenticationFailed
	}
	return profile, nil
}

// Status checks if the authenticator is healthy
func (a *Authenticator) Status(ctx context.Context) error {
	if a.health == nil {
		return nil
	}
	return a.health.CheckConnectivity()
}

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash
func CheckPassword(hash string, password []byte) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), password) == nil
}
