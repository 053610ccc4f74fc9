package store

import (
	"time"

	"github.com/cmformation/formation-portal/pkg/model"
)

// WorkshopUpdate holds the mutable workshop fields; nil fields are left unchanged.
// ClearEndsAt removes the end time.
type WorkshopUpdate struct {
	Title       *string
	Description *string
	Location    *string
	StartsAt    *time.Time
	EndsAt      *time.Time
	ClearEndsAt bool
	Published   *bool
}

// WorkshopsStore abstracts workshop storage operations
type WorkshopsStore interface {
	// List returns workshops ordered by start time; drafts only when includeDrafts
	List(includeDrafts bool) ([]model.Workshop, error)

	// Get returns a workshop by id.
	// Returns ErrNotFound if the workshop doesn't exist.
	Get(id string) (*model.Workshop, error)

	// Create inserts a workshop.
	// Returns ErrInvalid if it ends before it starts.
	Create(workshop *model.Workshop) error

	// Update applies a partial update and returns the stored workshop
	Update(id string, update WorkshopUpdate) (*model.Workshop, error)

	// Delete removes a workshop with its files and returns the removed files
	Delete(id string) ([]model.WorkshopFile, error)

	// ListFiles returns the files attached to a workshop
	ListFiles(workshopID string) ([]model.WorkshopFile, error)

	// GetFile returns a single workshop file
	GetFile(workshopID, fileID string) (*model.WorkshopFile, error)

	// AddFile attaches a file to a workshop
	AddFile(file *model.WorkshopFile) error

	// DeleteFile detaches a file and returns the deleted row
	DeleteFile(workshopID, fileID string) (*model.WorkshopFile, error)
}
