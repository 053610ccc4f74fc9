package model

import "time"

// FormationSettingsID is the primary key of the singleton settings row
const FormationSettingsID = 1

// FormationSettings controls which WordPress members the directory sync keeps
type FormationSettings struct {
	ID                int16      `gorm:"primaryKey;autoIncrement:false" json:"-"`
	IncludedStates    []string   `gorm:"serializer:json;not null" json:"included_states"`
	IncludedProvinces []string   `gorm:"serializer:json;not null" json:"included_provinces"`
	PruneMissing      bool       `json:"prune_missing"`
	LastSyncedAt      *time.Time `json:"last_synced_at,omitempty"`
	UpdatedBy         *string    `gorm:"type:uuid" json:"updated_by,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (FormationSettings) TableName() string {
	return "formation_settings"
}

// ConfrereInFormation is a denormalized directory row built from a WordPress member
type ConfrereInFormation struct {
	WPID            int64      `gorm:"column:wp_id;primaryKey;autoIncrement:false" json:"wp_id"`
	Name            string     `gorm:"not null" json:"name"`
	Slug            string     `json:"slug"`
	Email           string     `json:"email"`
	PhotoURL        string     `json:"photo_url"`
	Link            string     `json:"link"`
	Province        string     `json:"province"`
	ProvinceSlug    string     `gorm:"index" json:"province_slug"`
	Positions       []string   `gorm:"serializer:json;not null" json:"positions"`
	FormationStates []string   `gorm:"serializer:json;not null" json:"formation_states"`
	FormationState  string     `gorm:"index" json:"formation_state"`
	BirthDate       string     `json:"birth_date,omitempty"`
	WPModifiedAt    *time.Time `gorm:"column:wp_modified_at" json:"wp_modified_at,omitempty"`
	SyncedAt        time.Time  `json:"synced_at"`
}

func (ConfrereInFormation) TableName() string {
	return "confreres_in_formation"
}

// TaxonomyTerm is a WordPress term cached for filters and name resolution
type TaxonomyTerm struct {
	Taxonomy string    `gorm:"primaryKey" json:"taxonomy"`
	WPID     int64     `gorm:"column:wp_id;primaryKey;autoIncrement:false" json:"wp_id"`
	Name     string    `gorm:"not null" json:"name"`
	Slug     string    `gorm:"not null" json:"slug"`
	Parent   int64     `json:"parent"`
	Count    int       `json:"count"`
	SyncedAt time.Time `json:"synced_at"`
}

func (TaxonomyTerm) TableName() string {
	return "taxonomy_terms"
}

// Sync run states
const (
	SyncRunning   = "running"
	SyncSucceeded = "succeeded"
	SyncFailed    = "failed"
)

type SyncRun struct {
	ID         int64      `gorm:"primaryKey" json:"id"`
	Job        string     `gorm:"not null" json:"job"`
	DryRun     bool       `json:"dry_run"`
	Status     string     `gorm:"not null;default:running" json:"status"`
	Fetched    int        `json:"fetched"`
	Matched    int        `json:"matched"`
	Upserted   int        `json:"upserted"`
	Pruned     int        `json:"pruned"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func (SyncRun) TableName() string {
	return "sync_runs"
}
