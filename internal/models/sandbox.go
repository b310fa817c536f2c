package models

import (
	"time"

	"github.com/google/uuid"
)

// InstanceStatus is the lifecycle state of a sandbox instance.
type InstanceStatus string

const (
	InstanceBooting    InstanceStatus = "booting"
	InstanceReady      InstanceStatus = "ready"
	InstanceError      InstanceStatus = "error"
	InstanceTerminated InstanceStatus = "terminated"
)

// SandboxInstance is one sandboxed execution environment. At most one
// instance per project is expected to be ready at a time.
type SandboxInstance struct {
	ID           string         `json:"id" gorm:"primaryKey"`
	ProjectID    uuid.UUID      `json:"projectId" gorm:"type:uuid;not null;index"`
	Status       InstanceStatus `json:"status" gorm:"not null"`
	Port         int            `json:"port"`
	PreviewURL   string         `json:"previewUrl"`
	LastActivity time.Time      `json:"lastActivity"`
	CreatedAt    time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
}
