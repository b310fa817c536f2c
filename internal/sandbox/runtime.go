// Package sandbox owns the lifecycle of the single sandboxed execution
// environment per project and the interface to the underlying runtime.
package sandbox

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
)

var (
	// ErrInstanceActive is how the runtime signals that its one live
	// instance slot is already taken.
	ErrInstanceActive = errors.New("sandbox instance already active")
	// ErrInstanceNotFound means no live instance matches the given id.
	ErrInstanceNotFound = errors.New("sandbox instance not found")
	// ErrSandboxBootFailed means no usable instance could be obtained, even
	// after conflict recovery.
	ErrSandboxBootFailed = errors.New("sandbox boot failed")
)

// WinSize is a terminal geometry.
type WinSize struct {
	Cols uint16
	Rows uint16
}

// BootOptions tune a sandbox boot.
type BootOptions struct {
	// Template seeds the workspace ("node", "static", ...). Empty means a
	// bare workspace.
	Template string
}

// Instance is a live sandboxed execution environment.
type Instance struct {
	ID         string
	ProjectID  uuid.UUID
	Workdir    string
	Port       int
	PreviewURL string
}

// Process is an interactive process running inside an instance. Its output
// is a single-consumer byte source.
type Process interface {
	Write(p []byte) (int, error)
	Resize(size WinSize) error
	Output() io.Reader
	Close() error
}

// Runtime abstracts the sandbox runtime. The runtime permits only one live
// instance process-wide; Boot returns ErrInstanceActive when the slot is
// taken, and Current exposes the live instance regardless of who booted it.
type Runtime interface {
	Boot(ctx context.Context, projectID uuid.UUID, opts BootOptions) (*Instance, error)
	Current() (*Instance, bool)
	Spawn(instanceID string, size WinSize) (Process, error)
	ReadFile(instanceID, path string) ([]byte, error)
	WriteFile(instanceID, path string, content []byte) error
	RemoveFile(instanceID, path string) error
}
