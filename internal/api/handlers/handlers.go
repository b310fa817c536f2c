package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rohittcodes/flashio-sub001/internal/api/middleware"
	"github.com/rohittcodes/flashio-sub001/internal/repositories"
	"github.com/rohittcodes/flashio-sub001/internal/sandbox"
	"github.com/rohittcodes/flashio-sub001/internal/storage"
	"github.com/rohittcodes/flashio-sub001/internal/terminal"
)

// Shared handler dependencies, wired once at startup.
var (
	Storage     *storage.Manager
	Sandboxes   *sandbox.Registry
	Runtime     sandbox.Runtime
	Terminals   *terminal.Manager
	SandboxRows *repositories.SandboxRepository
)

// Init wires the handler package's dependencies.
func Init(mgr *storage.Manager, reg *sandbox.Registry, rt sandbox.Runtime, term *terminal.Manager, sandboxRows *repositories.SandboxRepository) {
	Storage = mgr
	Sandboxes = reg
	Runtime = rt
	Terminals = term
	SandboxRows = sandboxRows
}

// currentUserID pulls the authenticated caller's id out of the request
// context.
func currentUserID(r *http.Request) (uuid.UUID, bool) {
	raw, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
