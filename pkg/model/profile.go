package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Profile struct {
	ID           string     `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string     `gorm:"not null" json:"email"`
	FullName     string     `json:"full_name"`
	Role         Role       `gorm:"not null;default:member" json:"role"`
	PasswordHash *string    `json:"-"`
	InvitedAt    *time.Time `json:"invited_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// HasPassword reports whether the profile finished its invitation
func (p *Profile) HasPassword() bool {
	return p.PasswordHash != nil && *p.PasswordHash != ""
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Email = NormalizeEmail(p.Email)
	if p.Role == "" {
		p.Role = RoleMember
	}
	return nil
}

// NormalizeEmail lower-cases and trims an address for the unique index
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
