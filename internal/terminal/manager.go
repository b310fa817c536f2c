// Package terminal creates and tracks interactive process sessions inside a
// sandbox instance and bridges their output to streaming consumers.
package terminal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rohittcodes/flashio-sub001/internal/logging"
	"github.com/rohittcodes/flashio-sub001/internal/metrics"
	"github.com/rohittcodes/flashio-sub001/internal/models"
	"github.com/rohittcodes/flashio-sub001/internal/sandbox"
	"github.com/rohittcodes/flashio-sub001/internal/utils"
	"go.uber.org/zap"
)

var (
	// ErrSessionNotFound means no running session matches the id, e.g. the
	// instance was recycled or the session already stopped.
	ErrSessionNotFound = errors.New("terminal session not found")
	// ErrOutputBusy means another consumer holds the session's output lease.
	ErrOutputBusy = errors.New("terminal output already has an active reader")
)

const (
	DefaultCols = 80
	DefaultRows = 24

	outputChunkSize   = 4096
	outputChanBacklog = 64
)

// SessionStore persists terminal session rows.
type SessionStore interface {
	Upsert(ctx context.Context, session *models.TerminalSession) error
	UpdateStatus(ctx context.Context, id string, status models.SessionStatus) error
}

// Session is one live terminal session. The pty output is pumped into an
// internal channel by a single goroutine; consumers attach through an
// exclusive lease.
type Session struct {
	ID         string
	InstanceID string
	ProjectID  uuid.UUID
	OwnerID    uuid.UUID
	// ProcessID is the opaque handle of the spawned process.
	ProcessID string

	proc sandbox.Process

	writeMu sync.Mutex // input is single-writer

	mu           sync.Mutex
	cols, rows   uint16
	status       models.SessionStatus
	lastActivity time.Time
	leased       bool

	out     chan []byte
	done    chan struct{}
	readErr error
}

// Size returns the recorded terminal geometry.
func (s *Session) Size() (cols, rows uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows
}

// Status returns the session lifecycle state.
func (s *Session) Status() models.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// AcquireOutput leases the session's output stream. Only one consumer may
// hold the lease; release it with the returned func. Err reports the read
// error, if any, once the channel closes.
func (s *Session) AcquireOutput() (<-chan []byte, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leased {
		return nil, nil, ErrOutputBusy
	}
	s.leased = true
	release := func() {
		s.mu.Lock()
		s.leased = false
		s.mu.Unlock()
	}
	return s.out, release, nil
}

// Err returns the pump's terminal read error, nil on clean EOF.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readErr
}

// pump drains the pty into the output channel. It is the only reader of the
// process output; it exits when the process output closes.
func (s *Session) pump() {
	defer close(s.out)
	src := s.proc.Output()
	for {
		buf := make([]byte, outputChunkSize)
		n, err := src.Read(buf)
		if n > 0 {
			s.mu.Lock()
			leased := s.leased
			s.mu.Unlock()
			if leased {
				// A consumer is attached; let its backpressure slow the pty
				// down rather than lose output mid-stream.
				select {
				case s.out <- buf[:n]:
				case <-s.done:
					return
				}
			} else {
				select {
				case s.out <- buf[:n]:
				default:
					// Nobody is listening; drop rather than stall the pump.
				}
			}
		}
		if err != nil {
			s.mu.Lock()
			// A closed pty reads as EIO on Linux; treat any error after
			// close as normal exit.
			if s.status == models.SessionRunning {
				s.readErr = err
				s.status = models.SessionError
			}
			s.mu.Unlock()
			return
		}
	}
}

// Manager tracks live sessions and owns their processes.
type Manager struct {
	runtime sandbox.Runtime
	store   SessionStore

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager builds a session manager over the runtime.
func NewManager(runtime sandbox.Runtime, store SessionStore) *Manager {
	return &Manager{
		runtime:  runtime,
		store:    store,
		sessions: make(map[string]*Session),
	}
}

// Start spawns an interactive process in the instance and registers the
// session. A caller-supplied sessionID is honored; otherwise one is
// generated. Size defaults to 80x24.
func (m *Manager) Start(ctx context.Context, instanceID string, projectID, ownerID uuid.UUID, sessionID string, cols, rows uint16) (*Session, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if cols == 0 {
		cols = DefaultCols
	}
	if rows == 0 {
		rows = DefaultRows
	}

	proc, err := m.runtime.Spawn(instanceID, sandbox.WinSize{Cols: cols, Rows: rows})
	if err != nil {
		return nil, err
	}

	procToken, err := utils.GenerateSecureToken(6)
	if err != nil {
		_ = proc.Close()
		return nil, err
	}

	sess := &Session{
		ID:           sessionID,
		InstanceID:   instanceID,
		ProcessID:    "proc-" + procToken,
		ProjectID:    projectID,
		OwnerID:      ownerID,
		proc:         proc,
		cols:         cols,
		rows:         rows,
		status:       models.SessionRunning,
		lastActivity: time.Now(),
		out:          make(chan []byte, outputChanBacklog),
		done:         make(chan struct{}),
	}
	go sess.pump()

	m.mu.Lock()
	m.sessions[sessionID] = sess
	count := len(m.sessions)
	m.mu.Unlock()
	metrics.SetTerminalSessionsActive(int64(count))

	m.persist(ctx, sess)
	logging.Info("terminal session started",
		zap.String("sessionId", sessionID),
		zap.String("instanceId", instanceID))
	return sess, nil
}

// Get returns a live session by id.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	return sess, ok
}

// Write forwards input bytes to the session's process. Writes on one session
// are serialized so concurrent callers never interleave mid-message.
func (m *Manager) Write(sessionID string, data []byte) error {
	sess, ok := m.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}

	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	if _, err := sess.proc.Write(data); err != nil {
		return err
	}
	sess.touch()
	return nil
}

// Resize records the new geometry and notifies the process.
func (m *Manager) Resize(sessionID string, cols, rows uint16) error {
	sess, ok := m.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}

	if err := sess.proc.Resize(sandbox.WinSize{Cols: cols, Rows: rows}); err != nil {
		return err
	}
	sess.mu.Lock()
	sess.cols, sess.rows = cols, rows
	sess.lastActivity = time.Now()
	sess.mu.Unlock()
	return nil
}

// Stop releases the session's process and unregisters it.
func (m *Manager) Stop(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	count := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	metrics.SetTerminalSessionsActive(int64(count))

	sess.mu.Lock()
	sess.status = models.SessionExited
	sess.mu.Unlock()
	close(sess.done)
	if err := sess.proc.Close(); err != nil {
		logging.Warn("terminal process close failed",
			zap.String("sessionId", sessionID), zap.Error(err))
	}

	if m.store != nil {
		if err := m.store.UpdateStatus(ctx, sessionID, models.SessionExited); err != nil {
			logging.Warn("failed to persist session status",
				zap.String("sessionId", sessionID), zap.Error(err))
		}
	}
	return nil
}

// StopInstanceSessions stops every session on an instance, used when the
// instance is released.
func (m *Manager) StopInstanceSessions(ctx context.Context, instanceID string) {
	m.mu.Lock()
	var ids []string
	for id, sess := range m.sessions {
		if sess.InstanceID == instanceID {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()
	for _, id := range ids {
		_ = m.Stop(ctx, id)
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (m *Manager) persist(ctx context.Context, sess *Session) {
	if m.store == nil {
		return
	}
	cols, rows := sess.Size()
	row := &models.TerminalSession{
		ID:                sess.ID,
		SandboxInstanceID: sess.InstanceID,
		ProcessID:         sess.ProcessID,
		ProjectID:         sess.ProjectID,
		OwnerUserID:       sess.OwnerID,
		Status:            sess.Status(),
		Cols:              cols,
		Rows:              rows,
		LastActivity:      time.Now(),
	}
	if err := m.store.Upsert(ctx, row); err != nil {
		logging.Warn("failed to persist terminal session row",
			zap.String("sessionId", sess.ID), zap.Error(err))
	}
}
