package store

import "github.com/cmformation/formation-portal/pkg/model"

// ProfileUpdate holds the mutable profile fields; nil fields are left unchanged
type ProfileUpdate struct {
	FullName *string
	Role     *model.Role
}

// ProfilesStore abstracts profile storage operations
type ProfilesStore interface {
	// List returns every profile ordered by name
	List() ([]model.Profile, error)

	// Get returns a profile by id.
	// Returns ErrNotFound if the profile doesn't exist.
	Get(id string) (*model.Profile, error)

	// GetByEmail returns a profile by case-insensitive email.
	// Returns ErrNotFound if the profile doesn't exist.
	GetByEmail(email string) (*model.Profile, error)

	// Create inserts a profile.
	// Returns ErrConflict if the email is already taken.
	Create(profile *model.Profile) error

	// Update applies a partial update and returns the stored profile
	Update(id string, update ProfileUpdate) (*model.Profile, error)

	// SetPassword replaces the bcrypt hash of a profile
	SetPassword(id string, passwordHash string) error

	// Delete removes a profile
	Delete(id string) error
}
