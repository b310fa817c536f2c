package models

import (
	"time"

	"github.com/google/uuid"
)

type Project struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	OwnerID     uuid.UUID `json:"ownerId" gorm:"type:uuid;not null;index"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	// GitHubRepo is set once remote sync has been enabled for the project.
	GitHubRepo  string    `json:"githubRepo"`
	SyncEnabled bool      `json:"syncEnabled" gorm:"default:false"`
	CreatedAt   time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
	Files       []File    `json:"files,omitempty" gorm:"foreignKey:ProjectID"` // one-to-many relation
}
