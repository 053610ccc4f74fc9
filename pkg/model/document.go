package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Document struct {
	ID          string     `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Visibility  Visibility `gorm:"not null;default:members" json:"visibility"`
	ObjectKey   string     `gorm:"uniqueIndex;not null" json:"-"`
	FileName    string     `gorm:"not null" json:"file_name"`
	ContentType string     `json:"content_type"`
	SizeBytes   int64      `json:"size_bytes"`
	UploadedBy  *string    `gorm:"type:uuid" json:"uploaded_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Document) TableName() string {
	return "documents"
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Visibility == "" {
		d.Visibility = VisibilityMembers
	}
	return nil
}
