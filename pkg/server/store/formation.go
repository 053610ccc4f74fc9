package store

import (
	"time"

	"github.com/cmformation/formation-portal/pkg/model"
)

// ConfrereFilter narrows the formation directory
type ConfrereFilter struct {
	ProvinceSlug string
	// State matches any of a confrere's formation states
	State    string
	Position string
	// Query matches the name, case-insensitively
	Query string
}

// SettingsUpdate replaces the sync settings
type SettingsUpdate struct {
	IncludedStates    []string
	IncludedProvinces []string
	PruneMissing      bool
	UpdatedBy         *string
}

// RunResult is the outcome recorded when a sync run finishes
type RunResult struct {
	Status   string
	Fetched  int
	Matched  int
	Upserted int
	Pruned   int
	Error    string
}

// FormationStore abstracts storage of the formation directory and its sync bookkeeping
type FormationStore interface {
	// Settings returns the singleton sync settings row
	Settings() (*model.FormationSettings, error)

	// SaveSettings replaces the sync settings and returns the stored row
	SaveSettings(update SettingsUpdate) (*model.FormationSettings, error)

	// ListConfreres returns directory rows matching filter, ordered by name
	ListConfreres(filter ConfrereFilter) ([]model.ConfrereInFormation, error)

	// GetConfrere returns a directory row by WordPress id.
	// Returns ErrNotFound if the row doesn't exist.
	GetConfrere(wpID int64) (*model.ConfrereInFormation, error)

	// UpsertConfreres inserts rows or updates them on wp_id conflict
	UpsertConfreres(rows []model.ConfrereInFormation) (int, error)

	// PruneConfreres deletes every row whose wp_id is not in keep
	PruneConfreres(keep []int64) (int, error)

	// UpsertTerms inserts terms or updates them on (taxonomy, wp_id) conflict
	UpsertTerms(terms []model.TaxonomyTerm) (int, error)

	// ListTerms returns cached terms of a taxonomy, or of every taxonomy when empty
	ListTerms(taxonomy string) ([]model.TaxonomyTerm, error)

	// StartRun records a new running sync
	StartRun(job string, dryRun bool) (*model.SyncRun, error)

	// FinishRun stamps a run with its result
	FinishRun(id int64, result RunResult) error

	// ListRuns returns the latest runs, newest first
	ListRuns(limit int) ([]model.SyncRun, error)

	// MarkSynced stamps last_synced_at on the settings row
	MarkSynced(at time.Time) error
}
