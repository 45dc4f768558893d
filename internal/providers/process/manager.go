//go:build linux || darwin

// Package process is the local Process Manager: it spawns shells as session
// leaders on their terminal and delivers signals to them and to their process
// groups.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/bridge"
)

// process is a spawned child and its reaper state
type process struct {
	pid       bridge.ProcessID
	path      string
	startedAt time.Time
	done      chan struct{}

	mu       sync.Mutex
	terminal bridge.TerminalID
	exitCode int
}

// DefaultRetention is how long an exited process stays known to Wait and
// SetProcessTerminalID
const DefaultRetention = time.Minute

// Manager spawns and signals local processes
type Manager struct {
	procs     sync.Map // map[bridge.ProcessID]*process
	wg        sync.WaitGroup
	retention time.Duration
	logger    *zap.Logger
}

var _ bridge.ProcessManager = (*Manager)(nil)

// NewManager creates a process manager
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{retention: DefaultRetention, logger: logger}
}

// Exec starts opts.Path in a new session. When stdin is a terminal it becomes
// the child's controlling terminal.
func (m *Manager) Exec(ctx context.Context, opts bridge.ExecOptions) (bridge.ProcessID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := checkExecutable(opts.Path); err != nil {
		return 0, err
	}

	cmd := &exec.Cmd{
		Path:        opts.Path,
		Args:        append([]string{opts.Path}, opts.Args...),
		Env:         opts.Env,
		Dir:         opts.Dir,
		Stdin:       reader(opts.Stdin),
		Stdout:      writer(opts.Stdout),
		Stderr:      writer(opts.Stderr),
		SysProcAttr: &syscall.SysProcAttr{Setsid: true},
	}
	if f, ok := opts.Stdin.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		cmd.SysProcAttr.Setctty = true
		cmd.SysProcAttr.Ctty = 0
	}

	if err := cmd.Start(); err != nil {
		return 0, classifyStartError(opts.Path, err)
	}

	p := &process{
		pid:       bridge.ProcessID(cmd.Process.Pid),
		path:      opts.Path,
		startedAt: time.Now(),
		done:      make(chan struct{}),
		exitCode:  -1,
	}
	m.procs.Store(p.pid, p)

	m.wg.Add(1)
	go m.reap(cmd, p)

	m.logger.Debug("Process started", zap.Int("pid", int(p.pid)), zap.String("path", opts.Path))
	return p.pid, nil
}

func (m *Manager) reap(cmd *exec.Cmd, p *process) {
	defer m.wg.Done()

	err := cmd.Wait()
	code := cmd.ProcessState.ExitCode()

	p.mu.Lock()
	p.exitCode = code
	p.mu.Unlock()
	close(p.done)
	time.AfterFunc(m.retention, func() { m.procs.CompareAndDelete(p.pid, p) })

	fields := []zap.Field{zap.Int("pid", int(p.pid)), zap.Int("exit_code", code)}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			fields = append(fields, zap.Error(err))
		}
	}
	m.logger.Debug("Process exited", fields...)
}

// SetProcessTerminalID records the terminal a process is attached to. A
// process that already exited is still recorded while it is retained.
func (m *Manager) SetProcessTerminalID(_ context.Context, pid bridge.ProcessID, id bridge.TerminalID) error {
	p, err := m.lookup(pid)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.terminal = id
	p.mu.Unlock()
	return nil
}

// SendSignal delivers sig to a single process
func (m *Manager) SendSignal(_ context.Context, pid bridge.ProcessID, sig bridge.Signal) error {
	if pid <= 0 {
		return fmt.Errorf("pid %d: %w", pid, ErrProcessNotFound)
	}
	return m.kill(int(pid), sig, "process")
}

// SendGroupSignal delivers sig to every process in a group
func (m *Manager) SendGroupSignal(_ context.Context, gid bridge.GroupID, sig bridge.Signal) error {
	if gid <= 0 {
		return fmt.Errorf("group %d: %w", gid, ErrProcessNotFound)
	}
	return m.kill(-int(gid), sig, "group")
}

func (m *Manager) kill(target int, sig bridge.Signal, kind string) error {
	s, err := hostSignal(sig)
	if err != nil {
		return err
	}
	if err := unix.Kill(target, s); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return fmt.Errorf("signal %s to %s %d: %w", sig, kind, abs(target), ErrProcessNotFound)
		}
		return fmt.Errorf("signal %s to %s %d: %w", sig, kind, abs(target), err)
	}
	return nil
}

// Wait blocks until the process exits and returns its exit code. Exited
// processes report their code until the retention period ends.
func (m *Manager) Wait(ctx context.Context, pid bridge.ProcessID) (int, error) {
	p, err := m.lookup(pid)
	if err != nil {
		return 0, err
	}

	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.exitCode, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// List returns the running processes ordered by pid
func (m *Manager) List() []Info {
	var out []Info
	m.procs.Range(func(_, value any) bool {
		p := value.(*process)
		if p.exited() {
			return true
		}
		p.mu.Lock()
		out = append(out, Info{PID: int(p.pid), Path: p.path, Terminal: int32(p.terminal), StartedAt: p.startedAt})
		p.mu.Unlock()
		return true
	})
	slices.SortFunc(out, func(a, b Info) int { return a.PID - b.PID })
	return out
}

// Shutdown waits for every reaper to finish or for ctx to end
func (m *Manager) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (m *Manager) lookup(pid bridge.ProcessID) (*process, error) {
	v, ok := m.procs.Load(pid)
	if !ok {
		return nil, fmt.Errorf("pid %d: %w", pid, ErrProcessNotFound)
	}
	return v.(*process), nil
}

// checkExecutable rejects paths that cannot be run before forking
func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, bridge.ErrExecutableNotFound)
		}
		return fmt.Errorf("%s: %w", path, err)
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%s: %w", path, bridge.ErrInvalidExecutable)
	}
	return nil
}

func classifyStartError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%s: %w", path, bridge.ErrExecutableNotFound)
	case errors.Is(err, unix.ENOEXEC), errors.Is(err, unix.EACCES):
		return fmt.Errorf("%s: %w: %v", path, bridge.ErrInvalidExecutable, err)
	default:
		return fmt.Errorf("start %s: %w", path, err)
	}
}

// reader and writer keep typed nils out of exec.Cmd
func reader(d bridge.Descriptor) io.Reader {
	if d == nil {
		return nil
	}
	return d
}

func writer(d bridge.Descriptor) io.Writer {
	if d == nil {
		return nil
	}
	return d
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
