package sandbox

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"
	"github.com/rohittcodes/flashio-sub001/internal/utils"
)

// LocalRuntime runs sandbox instances as shell processes rooted in
// per-project workspace directories. Like the hosted runtime it emulates,
// it allows exactly one live instance at a time and offers no force-stop
// primitive beyond process exit.
type LocalRuntime struct {
	workdirRoot string
	shell       string
	portBase    int

	mu      sync.Mutex
	current *Instance
}

// NewLocalRuntime builds a runtime rooted at workdirRoot.
func NewLocalRuntime(workdirRoot, shell string, portBase int) *LocalRuntime {
	return &LocalRuntime{workdirRoot: workdirRoot, shell: shell, portBase: portBase}
}

// Boot claims the single instance slot and prepares the project workspace.
func (rt *LocalRuntime) Boot(ctx context.Context, projectID uuid.UUID, opts BootOptions) (*Instance, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.current != nil {
		return nil, ErrInstanceActive
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	workdir := filepath.Join(rt.workdirRoot, projectID.String())
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	token, err := utils.GenerateSecureToken(6)
	if err != nil {
		return nil, fmt.Errorf("generate instance id: %w", err)
	}

	port := rt.portBase
	inst := &Instance{
		ID:         "sbx-" + token,
		ProjectID:  projectID,
		Workdir:    workdir,
		Port:       port,
		PreviewURL: fmt.Sprintf("http://localhost:%d", port),
	}
	rt.current = inst
	return inst, nil
}

// Current returns the live instance, whoever booted it.
func (rt *LocalRuntime) Current() (*Instance, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.current == nil {
		return nil, false
	}
	inst := *rt.current
	return &inst, true
}

// Drop frees the instance slot once the environment has gone away. It exists
// for tests and teardown paths; a live shell keeps running until it exits.
func (rt *LocalRuntime) Drop(instanceID string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.current != nil && rt.current.ID == instanceID {
		rt.current = nil
	}
}

// Spawn starts an interactive shell inside the instance workspace on a pty.
func (rt *LocalRuntime) Spawn(instanceID string, size WinSize) (Process, error) {
	inst, err := rt.instance(instanceID)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(rt.shell)
	cmd.Dir = inst.Workdir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 5 * time.Second

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: size.Cols, Rows: size.Rows})
	if err != nil {
		return nil, fmt.Errorf("start pty: %w", err)
	}

	return &ptyProcess{ptmx: ptmx, cmd: cmd}, nil
}

// ReadFile reads a path inside the instance workspace.
func (rt *LocalRuntime) ReadFile(instanceID, path string) ([]byte, error) {
	full, err := rt.resolve(instanceID, path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// WriteFile writes a path inside the instance workspace.
func (rt *LocalRuntime) WriteFile(instanceID, path string, content []byte) error {
	full, err := rt.resolve(instanceID, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, content, 0o644)
}

// RemoveFile removes a path inside the instance workspace.
func (rt *LocalRuntime) RemoveFile(instanceID, path string) error {
	full, err := rt.resolve(instanceID, path)
	if err != nil {
		return err
	}
	return os.RemoveAll(full)
}

func (rt *LocalRuntime) instance(instanceID string) (*Instance, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.current == nil || rt.current.ID != instanceID {
		return nil, ErrInstanceNotFound
	}
	inst := *rt.current
	return &inst, nil
}

// resolve maps an instance-relative path onto the workspace, rejecting
// absolute paths and traversal outside the workspace root.
func (rt *LocalRuntime) resolve(instanceID, path string) (string, error) {
	inst, err := rt.instance(instanceID)
	if err != nil {
		return "", err
	}
	clean := filepath.Clean("/" + path)
	full := filepath.Join(inst.Workdir, clean)
	if !strings.HasPrefix(full, inst.Workdir+string(filepath.Separator)) && full != inst.Workdir {
		return "", fmt.Errorf("path %q escapes the workspace", path)
	}
	return full, nil
}

// ptyProcess wraps a pty-backed shell.
type ptyProcess struct {
	ptmx *os.File
	cmd  *exec.Cmd
}

func (p *ptyProcess) Write(b []byte) (int, error) {
	return p.ptmx.Write(b)
}

func (p *ptyProcess) Resize(size WinSize) error {
	return pty.Setsize(p.ptmx, &pty.Winsize{Cols: size.Cols, Rows: size.Rows})
}

func (p *ptyProcess) Output() io.Reader {
	return p.ptmx
}

func (p *ptyProcess) Close() error {
	err := p.ptmx.Close()
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Signal(syscall.SIGTERM)
	}
	go func() { _ = p.cmd.Wait() }()
	return err
}
