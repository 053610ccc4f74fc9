package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Workshop struct {
	ID          string     `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartsAt    time.Time  `gorm:"not null" json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Published   bool       `json:"published"`
	CreatedBy   *string    `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Workshop) TableName() string {
	return "workshops"
}

func (w *Workshop) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

// ValidSchedule reports whether the workshop ends no earlier than it starts
func (w *Workshop) ValidSchedule() bool {
	return w.EndsAt == nil || !w.EndsAt.Before(w.StartsAt)
}

type WorkshopFile struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	WorkshopID  string    `gorm:"type:uuid;index;not null" json:"workshop_id"`
	ObjectKey   string    `gorm:"uniqueIndex;not null" json:"-"`
	FileName    string    `gorm:"not null" json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedBy  *string   `gorm:"type:uuid" json:"uploaded_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (WorkshopFile) TableName() string {
	return "workshop_files"
}

func (f *WorkshopFile) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
