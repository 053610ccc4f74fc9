package gorm

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/server/store"
)

// Ensure DocumentsStore implements store.DocumentsStore
var _ store.DocumentsStore = (*DocumentsStore)(nil)

// DocumentsStore implements store.DocumentsStore using GORM
type DocumentsStore struct {
	db *gorm.DB
}

// NewDocumentsStore creates a new DocumentsStore
func NewDocumentsStore(db *gorm.DB) *DocumentsStore {
	return &DocumentsStore{db: db}
}

// List returns documents matching filter, newest first
func (s *DocumentsStore) List(filter store.DocumentFilter) ([]model.Document, error) {
	visibilities := model.VisibilitiesFor(filter.VisibleTo)
	if len(visibilities) == 0 {
		return []model.Document{}, nil
	}

	q := s.db.Where("visibility IN ?", visibilities)
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Query != "" {
		pattern := likePattern(filter.Query)
		q = q.Where("(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\')", pattern, pattern)
	}

	documents := []model.Document{}
	if err := q.Order("created_at desc").Find(&documents).Error; err != nil {
		return nil, err
	}
	return documents, nil
}

// Get returns a document by id
func (s *DocumentsStore) Get(id string) (*model.Document, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	var document model.Document
	if err := s.db.Where("id = ?", id).First(&document).Error; err != nil {
		return nil, translate(err)
	}
	return &document, nil
}

// Create inserts document metadata
func (s *DocumentsStore) Create(document *model.Document) error {
	if document.Visibility != "" && !document.Visibility.Valid() {
		return fmt.Errorf("%w: unknown visibility %q", store.ErrInvalid, document.Visibility)
	}
	if document.Title == "" {
		return fmt.Errorf("%w: title is required", store.ErrInvalid)
	}
	return translate(s.db.Create(document).Error)
}

// Update applies a partial update and returns the stored document
func (s *DocumentsStore) Update(id string, update store.DocumentUpdate) (*model.Document, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	changes := map[string]interface{}{}
	if update.Title != nil {
		if *update.Title == "" {
			return nil, fmt.Errorf("%w: title is required", store.ErrInvalid)
		}
		changes["title"] = *update.Title
	}
	if update.Description != nil {
		changes["description"] = *update.Description
	}
	if update.Category != nil {
		changes["category"] = *update.Category
	}
	if update.Visibility != nil {
		if !update.Visibility.Valid() {
			return nil, fmt.Errorf("%w: unknown visibility %q", store.ErrInvalid, *update.Visibility)
		}
		changes["visibility"] = *update.Visibility
	}

	if len(changes) > 0 {
		tx := s.db.Model(&model.Document{ID: id}).Updates(changes)
		if tx.Error != nil {
			return nil, translate(tx.Error)
		}
		if tx.RowsAffected == 0 {
			return nil, store.ErrNotFound
		}
	}
	return s.Get(id)
}

// Delete removes document metadata and returns the deleted row
func (s *DocumentsStore) Delete(id string) (*model.Document, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	var document model.Document
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&document).Error; err != nil {
			return err
		}
		return tx.Delete(&document).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &document, nil
}

// Categories returns the distinct non-empty categories readable by role
func (s *DocumentsStore) Categories(visibleTo model.Role) ([]string, error) {
	categories := []string{}
	visibilities := model.VisibilitiesFor(visibleTo)
	if len(visibilities) == 0 {
		return categories, nil
	}

	err := s.db.Model(&model.Document{}).
		Where("visibility IN ? AND category <> ''", visibilities).
		Distinct().
		Order("category asc").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}
