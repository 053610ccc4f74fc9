package gorm

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/server/store"
)

// Ensure WorkshopsStore implements store.WorkshopsStore
var _ store.WorkshopsStore = (*WorkshopsStore)(nil)

// WorkshopsStore implements store.WorkshopsStore using GORM
type WorkshopsStore struct {
	db *gorm.DB
}

// NewWorkshopsStore creates a new WorkshopsStore
func NewWorkshopsStore(db *gorm.DB) *WorkshopsStore {
	return &WorkshopsStore{db: db}
}

// List returns workshops ordered by start time
func (s *WorkshopsStore) List(includeDrafts bool) ([]model.Workshop, error) {
	q := s.db.Order("starts_at asc")
	if !includeDrafts {
		q = q.Where("published = ?", true)
	}

	workshops := []model.Workshop{}
	if err := q.Find(&workshops).Error; err != nil {
		return nil, err
	}
	return workshops, nil
}

// Get returns a workshop by id
func (s *WorkshopsStore) Get(id string) (*model.Workshop, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	var workshop model.Workshop
	if err := s.db.Where("id = ?", id).First(&workshop).Error; err != nil {
		return nil, translate(err)
	}
	return &workshop, nil
}

// Create inserts a workshop
func (s *WorkshopsStore) Create(workshop *model.Workshop) error {
	if err := validateWorkshop(workshop); err != nil {
		return err
	}
	return translate(s.db.Create(workshop).Error)
}

// Update applies a partial update and returns the stored workshop
func (s *WorkshopsStore) Update(id string, update store.WorkshopUpdate) (*model.Workshop, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	var workshop model.Workshop
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&workshop).Error; err != nil {
			return err
		}

		if update.Title != nil {
			workshop.Title = *update.Title
		}
		if update.Description != nil {
			workshop.Description = *update.Description
		}
		if update.Location != nil {
			workshop.Location = *update.Location
		}
		if update.StartsAt != nil {
			workshop.StartsAt = *update.StartsAt
		}
		if update.EndsAt != nil {
			workshop.EndsAt = update.EndsAt
		}
		if update.ClearEndsAt {
			workshop.EndsAt = nil
		}
		if update.Published != nil {
			workshop.Published = *update.Published
		}

		if err := validateWorkshop(&workshop); err != nil {
			return err
		}
		return tx.Save(&workshop).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &workshop, nil
}

// Delete removes a workshop with its files and returns the removed files
func (s *WorkshopsStore) Delete(id string) ([]model.WorkshopFile, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	files := []model.WorkshopFile{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var workshop model.Workshop
		if err := tx.Where("id = ?", id).First(&workshop).Error; err != nil {
			return err
		}
		if err := tx.Where("workshop_id = ?", id).Find(&files).Error; err != nil {
			return err
		}
		if err := tx.Where("workshop_id = ?", id).Delete(&model.WorkshopFile{}).Error; err != nil {
			return err
		}
		return tx.Delete(&workshop).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return files, nil
}

// ListFiles returns the files attached to a workshop
func (s *WorkshopsStore) ListFiles(workshopID string) ([]model.WorkshopFile, error) {
	if err := checkIDs(workshopID); err != nil {
		return nil, err
	}
	files := []model.WorkshopFile{}
	if err := s.db.Where("workshop_id = ?", workshopID).Order("created_at asc").Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

// GetFile returns a single workshop file
func (s *WorkshopsStore) GetFile(workshopID, fileID string) (*model.WorkshopFile, error) {
	if err := checkIDs(workshopID, fileID); err != nil {
		return nil, err
	}
	var file model.WorkshopFile
	if err := s.db.Where("workshop_id = ? AND id = ?", workshopID, fileID).First(&file).Error; err != nil {
		return nil, translate(err)
	}
	return &file, nil
}

// AddFile attaches a file to a workshop
func (s *WorkshopsStore) AddFile(file *model.WorkshopFile) error {
	if _, err := s.Get(file.WorkshopID); err != nil {
		return err
	}
	return translate(s.db.Create(file).Error)
}

// DeleteFile detaches a file and returns the deleted row
func (s *WorkshopsStore) DeleteFile(workshopID, fileID string) (*model.WorkshopFile, error) {
	if err := checkIDs(workshopID, fileID); err != nil {
		return nil, err
	}
	var file model.WorkshopFile
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workshop_id = ? AND id = ?", workshopID, fileID).First(&file).Error; err != nil {
			return err
		}
		return tx.Delete(&file).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &file, nil
}

func validateWorkshop(w *model.Workshop) error {
	if w.Title == "" {
		return fmt.Errorf("%w: title is required", store.ErrInvalid)
	}
	if w.StartsAt.IsZero() {
		return fmt.Errorf("%w: starts_at is required", store.ErrInvalid)
	}
	if !w.ValidSchedule() {
		return fmt.Errorf("%w: ends_at must not be before starts_at", store.ErrInvalid)
	}
	return nil
}
