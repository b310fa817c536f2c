package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a terminal session.
type SessionStatus string

const (
	SessionRunning SessionStatus = "running"
	SessionExited  SessionStatus = "exited"
	SessionError   SessionStatus = "error"
)

// TerminalSession is one interactive process inside a sandbox instance.
type TerminalSession struct {
	ID                string        `json:"id" gorm:"primaryKey"`
	SandboxInstanceID string        `json:"sandboxInstanceId" gorm:"not null;index"`
	ProcessID         string        `json:"processId"` // opaque handle of the spawned process
	ProjectID         uuid.UUID     `json:"projectId" gorm:"type:uuid;not null;index"`
	OwnerUserID       uuid.UUID     `json:"ownerUserId" gorm:"type:uuid;not null"`
	Status            SessionStatus `json:"status" gorm:"not null"`
	Cols              uint16        `json:"cols" gorm:"default:80"`
	Rows              uint16        `json:"rows" gorm:"default:24"`
	LastActivity      time.Time     `json:"lastActivity"`
	CreatedAt         time.Time     `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt         time.Time     `json:"updatedAt" gorm:"autoUpdateTime"`
}
