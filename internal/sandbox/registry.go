package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rohittcodes/flashio-sub001/internal/logging"
	"github.com/rohittcodes/flashio-sub001/internal/metrics"
	"github.com/rohittcodes/flashio-sub001/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// InstanceStore persists instance rows so the dashboard can show status and
// preview URLs.
type InstanceStore interface {
	Upsert(ctx context.Context, instance *models.SandboxInstance) error
	Get(ctx context.Context, id string) (*models.SandboxInstance, error)
	Delete(ctx context.Context, id string) error
}

// DefaultBootBackoff is how long a losing boot waits before re-checking for
// an instance the winner made visible.
const DefaultBootBackoff = 500 * time.Millisecond

// Registry is the one component allowed to boot or tear down sandbox
// instances. It guards the runtime's single live-instance slot: concurrent
// acquires collapse, boot conflicts back off and adopt, and an instance
// created outside the registry is adopted rather than duplicated.
type Registry struct {
	runtime Runtime
	store   InstanceStore
	backoff time.Duration

	sf singleflight.Group

	mu      sync.Mutex
	byProj  map[uuid.UUID]*Instance
	byID    map[string]*Instance
}

// NewRegistry builds a registry over the runtime. backoff <= 0 uses the
// default.
func NewRegistry(runtime Runtime, store InstanceStore, backoff time.Duration) *Registry {
	if backoff <= 0 {
		backoff = DefaultBootBackoff
	}
	return &Registry{
		runtime: runtime,
		store:   store,
		backoff: backoff,
		byProj:  make(map[uuid.UUID]*Instance),
		byID:    make(map[string]*Instance),
	}
}

// Acquire returns the project's ready instance, booting one if needed.
// Callers racing on the same project all observe the same instance.
func (r *Registry) Acquire(ctx context.Context, projectID uuid.UUID, opts BootOptions) (*Instance, error) {
	v, err, _ := r.sf.Do(projectID.String(), func() (interface{}, error) {
		return r.acquire(ctx, projectID, opts)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Instance), nil
}

func (r *Registry) acquire(ctx context.Context, projectID uuid.UUID, opts BootOptions) (*Instance, error) {
	r.mu.Lock()
	if inst, ok := r.byProj[projectID]; ok {
		r.mu.Unlock()
		r.persist(ctx, inst, models.InstanceReady)
		return inst, nil
	}
	r.mu.Unlock()

	// The runtime's slot may already hold this project's instance, created
	// by a caller outside our control. Adopt it as authoritative.
	if cur, ok := r.runtime.Current(); ok && cur.ProjectID == projectID {
		return r.adopt(ctx, cur), nil
	}

	// A marker row makes the in-flight boot visible to the dashboard. The
	// real instance id is only known after the boot, so the marker lives
	// under a per-project pending id and is cleared on the outcome.
	pending := &Instance{ID: pendingID(projectID), ProjectID: projectID}
	r.persist(ctx, pending, models.InstanceBooting)

	inst, err := r.runtime.Boot(ctx, projectID, opts)
	if errors.Is(err, ErrInstanceActive) {
		// Another boot won the slot mid-flight. Back off briefly and
		// re-check instead of retrying the boot; the winner's instance may
		// be ours to adopt.
		if waitErr := r.wait(ctx); waitErr != nil {
			r.persist(ctx, pending, models.InstanceError)
			metrics.RecordSandboxBoot("error")
			return nil, fmt.Errorf("%w: %v", ErrSandboxBootFailed, waitErr)
		}
		if cur, ok := r.runtime.Current(); ok && cur.ProjectID == projectID {
			r.clearPending(ctx, projectID)
			metrics.RecordSandboxBoot("adopted")
			return r.adopt(ctx, cur), nil
		}
		r.persist(ctx, pending, models.InstanceError)
		metrics.RecordSandboxBoot("error")
		return nil, fmt.Errorf("%w: instance slot held by another project", ErrSandboxBootFailed)
	}
	if err != nil {
		r.persist(ctx, pending, models.InstanceError)
		metrics.RecordSandboxBoot("error")
		return nil, fmt.Errorf("%w: %v", ErrSandboxBootFailed, err)
	}

	r.clearPending(ctx, projectID)
	r.register(inst)
	r.persist(ctx, inst, models.InstanceReady)
	metrics.RecordSandboxBoot("ok")
	logging.Info("sandbox instance ready",
		zap.String("instanceId", inst.ID),
		zap.String("projectId", projectID.String()))
	return inst, nil
}

func pendingID(projectID uuid.UUID) string {
	return "pending-" + projectID.String()
}

func (r *Registry) clearPending(ctx context.Context, projectID uuid.UUID) {
	if r.store == nil {
		return
	}
	if err := r.store.Delete(ctx, pendingID(projectID)); err != nil {
		logging.Warn("failed to clear pending sandbox instance row",
			zap.String("projectId", projectID.String()), zap.Error(err))
	}
}

func (r *Registry) wait(ctx context.Context) error {
	timer := time.NewTimer(r.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Registry) adopt(ctx context.Context, inst *Instance) *Instance {
	r.register(inst)
	r.persist(ctx, inst, models.InstanceReady)
	logging.Info("adopted externally created sandbox instance",
		zap.String("instanceId", inst.ID))
	return inst
}

func (r *Registry) register(inst *Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byProj[inst.ProjectID] = inst
	r.byID[inst.ID] = inst
}

// Get returns a registered instance by id.
func (r *Registry) Get(instanceID string) (*Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.byID[instanceID]
	return inst, ok
}

// Release clears the registry's reference to an instance. The runtime has no
// force-stop primitive, so this only lets a later Acquire boot afresh.
func (r *Registry) Release(ctx context.Context, instanceID string) {
	r.mu.Lock()
	inst, ok := r.byID[instanceID]
	if ok {
		delete(r.byID, instanceID)
		delete(r.byProj, inst.ProjectID)
	}
	r.mu.Unlock()
	if ok {
		r.persist(ctx, inst, models.InstanceTerminated)
		if lr, isLocal := r.runtime.(*LocalRuntime); isLocal {
			lr.Drop(instanceID)
		}
	}
}

func (r *Registry) persist(ctx context.Context, inst *Instance, status models.InstanceStatus) {
	if r.store == nil {
		return
	}
	row := &models.SandboxInstance{
		ID:           inst.ID,
		ProjectID:    inst.ProjectID,
		Status:       status,
		Port:         inst.Port,
		PreviewURL:   inst.PreviewURL,
		LastActivity: time.Now(),
	}
	if err := r.store.Upsert(ctx, row); err != nil {
		logging.Warn("failed to persist sandbox instance row",
			zap.String("instanceId", inst.ID), zap.Error(err))
	}
}
