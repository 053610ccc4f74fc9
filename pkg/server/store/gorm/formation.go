package gorm

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/server/store"
)

// upsertBatchSize bounds the number of rows per INSERT ... ON CONFLICT statement
const upsertBatchSize = 200

// Ensure FormationStore implements store.FormationStore
var _ store.FormationStore = (*FormationStore)(nil)

// FormationStore implements store.FormationStore using GORM
type FormationStore struct {
	db *gorm.DB
}

// NewFormationStore creates a new FormationStore
func NewFormationStore(db *gorm.DB) *FormationStore {
	return &FormationStore{db: db}
}

// Settings returns the singleton sync settings row.
// A missing row yields the zero settings (every state, every province).
func (s *FormationStore) Settings() (*model.FormationSettings, error) {
	var settings model.FormationSettings
	err := s.db.Where("id = ?", model.FormationSettingsID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.FormationSettings{
			ID:                model.FormationSettingsID,
			IncludedStates:    []string{},
			IncludedProvinces: []string{},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	if settings.IncludedStates == nil {
		settings.IncludedStates = []string{}
	}
	if settings.IncludedProvinces == nil {
		settings.IncludedProvinces = []string{}
	}
	return &settings, nil
}

// SaveSettings replaces the sync settings and returns the stored row
func (s *FormationStore) SaveSettings(update store.SettingsUpdate) (*model.FormationSettings, error) {
	current, err := s.Settings()
	if err != nil {
		return nil, err
	}

	current.IncludedStates = nonNil(update.IncludedStates)
	current.IncludedProvinces = nonNil(update.IncludedProvinces)
	current.PruneMissing = update.PruneMissing
	current.UpdatedBy = update.UpdatedBy

	if err := s.db.Save(current).Error; err != nil {
		return nil, translate(err)
	}
	return current, nil
}

// ListConfreres returns directory rows matching filter, ordered by name
func (s *FormationStore) ListConfreres(filter store.ConfrereFilter) ([]model.ConfrereInFormation, error) {
	q := s.db.Model(&model.ConfrereInFormation{})
	if filter.ProvinceSlug != "" {
		q = q.Where("province_slug = ?", filter.ProvinceSlug)
	}
	if filter.State != "" {
		q = q.Where(s.jsonArrayContains("formation_states", filter.State))
	}
	if filter.Position != "" {
		q = q.Where(s.jsonArrayContains("positions", filter.Position))
	}
	if filter.Query != "" {
		q = q.Where("LOWER(name) LIKE ? ESCAPE '\\'", likePattern(filter.Query))
	}

	rows := []model.ConfrereInFormation{}
	if err := q.Order("name asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetConfrere returns a directory row by WordPress id
func (s *FormationStore) GetConfrere(wpID int64) (*model.ConfrereInFormation, error) {
	var row model.ConfrereInFormation
	if err := s.db.Where("wp_id = ?", wpID).First(&row).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

// UpsertConfreres inserts rows or updates them on wp_id conflict
func (s *FormationStore) UpsertConfreres(rows []model.ConfrereInFormation) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "wp_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "slug", "email", "photo_url", "link",
			"province", "province_slug", "positions",
			"formation_states", "formation_state", "birth_date",
			"wp_modified_at", "synced_at",
		}),
	}).CreateInBatches(rows, upsertBatchSize)
	if tx.Error != nil {
		return 0, translate(tx.Error)
	}
	return len(rows), nil
}

// PruneConfreres deletes every row whose wp_id is not in keep
func (s *FormationStore) PruneConfreres(keep []int64) (int, error) {
	q := s.db.Where("1 = 1")
	if len(keep) > 0 {
		q = s.db.Where("wp_id NOT IN ?", keep)
	}

	tx := q.Delete(&model.ConfrereInFormation{})
	if tx.Error != nil {
		return 0, tx.Error
	}
	return int(tx.RowsAffected), nil
}

// UpsertTerms inserts terms or updates them on (taxonomy, wp_id) conflict
func (s *FormationStore) UpsertTerms(terms []model.TaxonomyTerm) (int, error) {
	if len(terms) == 0 {
		return 0, nil
	}

	tx := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "taxonomy"}, {Name: "wp_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "slug", "parent", "count", "synced_at"}),
	}).CreateInBatches(terms, upsertBatchSize)
	if tx.Error != nil {
		return 0, translate(tx.Error)
	}
	return len(terms), nil
}

// ListTerms returns cached terms of a taxonomy, or of every taxonomy when empty
func (s *FormationStore) ListTerms(taxonomy string) ([]model.TaxonomyTerm, error) {
	q := s.db.Order("taxonomy asc, name asc")
	if taxonomy != "" {
		q = q.Where("taxonomy = ?", taxonomy)
	}

	terms := []model.TaxonomyTerm{}
	if err := q.Find(&terms).Error; err != nil {
		return nil, err
	}
	return terms, nil
}

// StartRun records a new running sync
func (s *FormationStore) StartRun(job string, dryRun bool) (*model.SyncRun, error) {
	run := &model.SyncRun{
		Job:       job,
		DryRun:    dryRun,
		Status:    model.SyncRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.db.Create(run).Error; err != nil {
		return nil, translate(err)
	}
	return run, nil
}

// FinishRun stamps a run with its result
func (s *FormationStore) FinishRun(id int64, result store.RunResult) error {
	tx := s.db.Model(&model.SyncRun{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":      result.Status,
		"fetched":     result.Fetched,
		"matched":     result.Matched,
		"upserted":    result.Upserted,
		"pruned":      result.Pruned,
		"error":       result.Error,
		"finished_at": time.Now().UTC(),
	})
	if tx.Error != nil {
		return translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListRuns returns the latest runs, newest first
func (s *FormationStore) ListRuns(limit int) ([]model.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	runs := []model.SyncRun{}
	if err := s.db.Order("id desc").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// MarkSynced stamps last_synced_at on the settings row
func (s *FormationStore) MarkSynced(at time.Time) error {
	return s.db.Model(&model.FormationSettings{}).
		Where("id = ?", model.FormationSettingsID).
		Update("last_synced_at", at.UTC()).Error
}

// jsonArrayContains matches rows whose JSON array column holds value
func (s *FormationStore) jsonArrayContains(column, value string) clause.Expr {
	if s.db.Dialector.Name() == "postgres" {
		return clause.Expr{SQL: column + " @> jsonb_build_array(?::text)", Vars: []interface{}{value}}
	}
	return clause.Expr{SQL: "EXISTS (SELECT 1 FROM json_each(" + column + ") WHERE json_each.value = ?)", Vars: []interface{}{value}}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
