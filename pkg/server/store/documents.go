package store

import "github.com/cmformation/formation-portal/pkg/model"

// DocumentFilter narrows a document listing
type DocumentFilter struct {
	Category string
	// Query matches title or description, case-insensitively
	Query string
	// VisibleTo restricts results to visibilities readable by the role
	VisibleTo model.Role
}

// DocumentUpdate holds the mutable document fields; nil fields are left unchanged
type DocumentUpdate struct {
	Title       *string
	Description *string
	Category    *string
	Visibility  *model.Visibility
}

// DocumentsStore abstracts document metadata storage operations
type DocumentsStore interface {
	// List returns documents matching filter, newest first
	List(filter DocumentFilter) ([]model.Document, error)

	// Get returns a document by id.
	// Returns ErrNotFound if the document doesn't exist.
	Get(id string) (*model.Document, error)

	// Create inserts document metadata
	Create(document *model.Document) error

	// Update applies a partial update and returns the stored document
	Update(id string, update DocumentUpdate) (*model.Document, error)

	// Delete removes document metadata and returns the deleted row
	Delete(id string) (*model.Document, error)

	// Categories returns the distinct non-empty categories readable by role
	Categories(visibleTo model.Role) ([]string, error)
}
