package models

import (
	"time"

	"github.com/google/uuid"
)

// StorageTier identifies the backend currently holding a file's bytes.
type StorageTier string

const (
	TierInline StorageTier = "inline" // content lives in the files row
	TierBlob   StorageTier = "blob"   // content lives in the blob store under StorageKey
)

type File struct {
	ID             uuid.UUID   `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	ProjectID      uuid.UUID   `json:"projectId" gorm:"type:uuid;not null;uniqueIndex:idx_files_project_path"`
	Path           string      `json:"path" gorm:"not null;uniqueIndex:idx_files_project_path"`
	Content        *string     `json:"content,omitempty" gorm:"type:text"` // set only when StorageTier = inline
	StorageKey     *string     `json:"storageKey,omitempty"`               // set only when StorageTier = blob
	StorageTier    StorageTier `json:"storageTier" gorm:"not null;default:inline"`
	Size           int64       `json:"size" gorm:"not null"` // bytes, authoritative regardless of tier
	Checksum       string      `json:"checksum" gorm:"not null"`
	IsDirectory    bool        `json:"isDirectory" gorm:"default:false"`
	IsBinary       bool        `json:"isBinary" gorm:"default:false"`
	LastModifiedBy uuid.UUID   `json:"lastModifiedBy" gorm:"type:uuid"`
	CreatedAt      time.Time   `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt      time.Time   `json:"updatedAt" gorm:"autoUpdateTime"`
}
