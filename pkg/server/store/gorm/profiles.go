package gorm

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/server/store"
)

// Ensure ProfilesStore implements store.ProfilesStore
var _ store.ProfilesStore = (*ProfilesStore)(nil)

// ProfilesStore implements store.ProfilesStore using GORM
type ProfilesStore struct {
	db *gorm.DB
}

// NewProfilesStore creates a new ProfilesStore
func NewProfilesStore(db *gorm.DB) *ProfilesStore {
	return &ProfilesStore{db: db}
}

// List returns every profile ordered by name
func (s *ProfilesStore) List() ([]model.Profile, error) {
	var profiles []model.Profile
	if err := s.db.Order("full_name asc, email asc").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// Get returns a profile by id
func (s *ProfilesStore) Get(id string) (*model.Profile, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	var profile model.Profile
	if err := s.db.Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

// GetByEmail returns a profile by case-insensitive email
func (s *ProfilesStore) GetByEmail(email string) (*model.Profile, error) {
	var profile model.Profile
	if err := s.db.Where("email = ?", model.NormalizeEmail(email)).First(&profile).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

// Create inserts a profile
func (s *ProfilesStore) Create(profile *model.Profile) error {
	if profile.Role != "" && !profile.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", store.ErrInvalid, profile.Role)
	}
	if model.NormalizeEmail(profile.Email) == "" {
		return fmt.Errorf("%w: email is required", store.ErrInvalid)
	}
	return translate(s.db.Create(profile).Error)
}

// Update applies a partial update and returns the stored profile
func (s *ProfilesStore) Update(id string, update store.ProfileUpdate) (*model.Profile, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	changes := map[string]interface{}{}
	if update.FullName != nil {
		changes["full_name"] = *update.FullName
	}
	if update.Role != nil {
		if !update.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", store.ErrInvalid, *update.Role)
		}
		changes["role"] = *update.Role
	}

	if len(changes) > 0 {
		tx := s.db.Model(&model.Profile{ID: id}).Updates(changes)
		if tx.Error != nil {
			return nil, translate(tx.Error)
		}
		if tx.RowsAffected == 0 {
			return nil, store.ErrNotFound
		}
	}
	return s.Get(id)
}

// SetPassword replaces the bcrypt hash of a profile
func (s *ProfilesStore) SetPassword(id string, passwordHash string) error {
	if err := checkIDs(id); err != nil {
		return err
	}
	tx := s.db.Model(&model.Profile{ID: id}).Update("password_hash", passwordHash)
	if tx.Error != nil {
		return translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Delete removes a profile
func (s *ProfilesStore) Delete(id string) error {
	if err := checkIDs(id); err != nil {
		return err
	}
	tx := s.db.Where("id = ?", id).Delete(&model.Profile{})
	if tx.Error != nil {
		return translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}
