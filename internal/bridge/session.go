package bridge

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/shared/id"
)

// Phase is a session lifecycle phase
type Phase int

const (
	PhaseInit Phase = iota
	PhaseTerminalAllocated
	PhaseProcessLaunched
	PhaseRunning
	PhaseTerminated
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseTerminalAllocated:
		return "terminal_allocated"
	case PhaseProcessLaunched:
		return "process_launched"
	case PhaseRunning:
		return "running"
	case PhaseTerminated:
		return "terminated"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Final reports whether no further transitions can happen
func (p Phase) Final() bool {
	return p == PhaseTerminated || p == PhaseFailed
}

// Config describes the shell a session runs
type Config struct {
	ShellPath string
	ShellArgs []string
	// BaseEnv is the environment every shell starts from
	BaseEnv map[string]string
}

// Deps are the services a session runs against
type Deps struct {
	Terminals TerminalService
	Processes ProcessManager
	Logger    *zap.Logger
	Metrics   *monitoring.Metrics
	// ResizeBreaker guards window-change calls; nil disables it
	ResizeBreaker *resilience.Breaker
}

// Info is a point-in-time view of a session
type Info struct {
	ID        id.SessionID `json:"id"`
	User      string       `json:"user,omitempty"`
	Phase     string       `json:"phase"`
	PID       int          `json:"pid,omitempty"`
	Terminal  int32        `json:"terminal_id,omitempty"`
	Cols      int          `json:"cols,omitempty"`
	Rows      int          `json:"rows,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	StartedAt *time.Time   `json:"started_at,omitempty"`
}

// Session bridges one remote terminal channel to one local shell.
type Session struct {
	id          id.SessionID
	cfg         Config
	deps        Deps
	provisioner *Provisioner
	launcher    *Launcher
	logger      *zap.Logger
	createdAt   time.Time

	in     io.Reader
	out    io.Writer
	errOut io.Writer
	onExit ExitCallback

	mu               sync.Mutex
	phase            Phase
	started          bool
	destroyRequested bool
	pid              ProcessID
	terminal         TerminalID
	master           Descriptor
	user             string
	size             Size
	startedAt        time.Time

	teardownOnce sync.Once
	hangupOnce   sync.Once
	doneOnce     sync.Once
	done         chan struct{}
}

// NewSession creates a session in the init phase
func NewSession(cfg Config, deps Deps) *Session {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	sid := id.NewSessionID()
	logger := deps.Logger.With(zap.String("session_id", sid.String()))

	return &Session{
		id:          sid,
		cfg:         cfg,
		deps:        deps,
		provisioner: NewProvisioner(deps.Terminals, logger),
		launcher:    NewLauncher(deps.Terminals, deps.Processes, logger),
		logger:      logger,
		createdAt:   time.Now(),
		phase:       PhaseInit,
		done:        make(chan struct{}),
	}
}

// SetInputStream sets the channel stream the shell reads from
func (s *Session) SetInputStream(in io.Reader) {
	s.mu.Lock()
	s.in = in
	s.mu.Unlock()
}

// SetOutputStream sets the channel stream terminal output is written to
func (s *Session) SetOutputStream(out io.Writer) {
	s.mu.Lock()
	s.out = out
	s.mu.Unlock()
}

// SetErrorStream sets the channel stream setup failures are reported on.
// Shell stderr shares the terminal with stdout.
func (s *Session) SetErrorStream(errOut io.Writer) {
	s.mu.Lock()
	s.errOut = errOut
	s.mu.Unlock()
}

// SetExitCallback sets the callback invoked once with the exit status
func (s *Session) SetExitCallback(cb ExitCallback) {
	s.mu.Lock()
	s.onExit = cb
	s.mu.Unlock()
}

// Start provisions a terminal, launches the shell and starts relaying. It
// returns once the relay goroutines are running; the exit callback fires when
// the shell goes away.
func (s *Session) Start(ctx context.Context, env Environment) error {
	s.mu.Lock()
	switch {
	case s.started:
		s.mu.Unlock()
		return ErrSessionStarted
	case s.destroyRequested:
		s.mu.Unlock()
		return ErrSessionDestroyed
	case s.in == nil || s.out == nil:
		s.mu.Unlock()
		return ErrNoStreams
	}
	s.started = true
	in, out := s.in, s.out
	s.mu.Unlock()

	vars := env.Env()
	size, err := SizeFromEnv(vars)
	if err != nil {
		return s.fail("provision", &ProvisioningError{Op: "parse size", Err: err})
	}

	handle, err := s.provisioner.Allocate(ctx, env.PtyModes(), size)
	if err != nil {
		return s.fail("provision", err)
	}

	s.mu.Lock()
	s.terminal = handle.Terminal
	s.phase = PhaseTerminalAllocated
	s.user = vars[EnvUser]
	s.size = size
	destroyed := s.destroyRequested
	s.mu.Unlock()

	if destroyed {
		s.discard(ctx, handle)
		s.setPhase(PhaseTerminated)
		s.closeDone()
		return ErrSessionDestroyed
	}

	pid, err := s.launcher.Launch(ctx, s.cfg.ShellPath, s.cfg.ShellArgs, buildShellEnv(s.cfg.BaseEnv, vars), handle)
	if err != nil {
		s.discard(ctx, handle)
		return s.fail("launch", err)
	}

	s.mu.Lock()
	s.pid = pid
	s.master = handle.Master
	s.phase = PhaseProcessLaunched
	s.mu.Unlock()

	resize := NewResizePropagator(handle.Terminal, env, s.deps.Terminals, s.deps.Processes, s.deps.ResizeBreaker, s.deps.Metrics,
		s.logger.With(zap.Int("pid", int(pid))))
	env.AddSignalListener(resize.Listener(context.WithoutCancel(ctx)), SignalWinch)

	relay := NewRelay(handle.Master, in, out, s.deps.Metrics, s.logger)

	s.mu.Lock()
	s.phase = PhaseRunning
	s.startedAt = time.Now()
	destroyed = s.destroyRequested
	s.mu.Unlock()
	s.deps.Metrics.SessionStarted()

	go relay.Outbound(s.finish)
	go relay.Inbound()

	s.logger.Info("Session started",
		zap.String("user", vars[EnvUser]),
		zap.String("term", vars[EnvTerm]),
		zap.Int("pid", int(pid)),
		zap.Int32("terminal_id", int32(handle.Terminal)),
	)

	if destroyed {
		s.hangup(context.WithoutCancel(ctx))
	}
	return nil
}

// Destroy asks the session to end. A launched shell receives one hangup and
// the session terminates when the relay observes the shell exit; a session
// whose shell has not been launched is terminated without any signal.
func (s *Session) Destroy(ctx context.Context) {
	s.mu.Lock()
	phase := s.phase
	switch phase {
	case PhaseInit, PhaseTerminalAllocated:
		s.destroyRequested = true
		if !s.started {
			s.phase = PhaseTerminated
			s.mu.Unlock()
			s.closeDone()
			s.logger.Debug("Session destroyed before start")
			return
		}
		s.mu.Unlock()
		return
	case PhaseProcessLaunched, PhaseRunning:
		s.destroyRequested = true
		s.mu.Unlock()
		s.hangup(ctx)
		return
	default:
		s.mu.Unlock()
	}
}

func (s *Session) hangup(ctx context.Context) {
	s.hangupOnce.Do(func() {
		pid := s.PID()
		if err := s.deps.Processes.SendSignal(ctx, pid, SignalHangup); err != nil {
			s.logger.Warn("Failed to hang up shell", zap.Int("pid", int(pid)), zap.Error(err))
			return
		}
		s.logger.Debug("Hangup sent", zap.Int("pid", int(pid)))
	})
}

// finish runs once when the outbound relay sees the terminal close
func (s *Session) finish(status int) {
	s.teardownOnce.Do(func() {
		s.mu.Lock()
		master, out, cb := s.master, s.out, s.onExit
		terminal, startedAt := s.terminal, s.startedAt
		wasRunning := s.phase == PhaseRunning
		s.phase = PhaseTerminated
		s.mu.Unlock()

		if master != nil {
			if err := master.Close(); err != nil {
				s.logger.Debug("Closing terminal master", zap.Error(err))
			}
		}
		if cw, ok := out.(interface{ CloseWrite() error }); ok {
			if err := cw.CloseWrite(); err != nil {
				s.logger.Debug("Closing channel output", zap.Error(err))
			}
		}
		if err := s.deps.Terminals.ReleaseTerminal(context.Background(), terminal); err != nil {
			s.logger.Debug("Releasing terminal", zap.Error(err))
		}

		if wasRunning {
			s.deps.Metrics.SessionEnded(time.Since(startedAt))
		}
		s.logger.Info("Session ended", zap.Int("status", status), zap.Duration("lifetime", time.Since(startedAt)))
		s.closeDone()

		if cb != nil {
			cb(status)
		}
	})
}

// discard closes and releases a terminal whose shell never ran
func (s *Session) discard(ctx context.Context, handle *PtyHandle) {
	for _, d := range []Descriptor{handle.Master, handle.Slave} {
		if d != nil {
			d.Close()
		}
	}
	if err := s.deps.Terminals.ReleaseTerminal(ctx, handle.Terminal); err != nil {
		s.logger.Warn("Failed to release terminal", zap.Int32("terminal_id", int32(handle.Terminal)), zap.Error(err))
	}
}

func (s *Session) fail(stage string, err error) error {
	s.setPhase(PhaseFailed)
	s.deps.Metrics.SessionFailed(stage)
	s.logger.Error("Session start failed", zap.String("stage", stage), zap.Error(err))

	s.mu.Lock()
	errOut := s.errOut
	s.mu.Unlock()
	if errOut != nil {
		fmt.Fprintf(errOut, "sshd: %v\r\n", err)
	}

	s.closeDone()
	return err
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

func (s *Session) closeDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

// ID returns the session identifier
func (s *Session) ID() id.SessionID {
	return s.id
}

// Phase returns the current lifecycle phase
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// PID returns the shell's process id, zero before launch
func (s *Session) PID() ProcessID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}

// TerminalID returns the allocated terminal, zero before provisioning
func (s *Session) TerminalID() TerminalID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal
}

// Done is closed once the session reaches a final phase
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Info returns a snapshot for the admin API
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{
		ID:        s.id,
		User:      s.user,
		Phase:     s.phase.String(),
		PID:       int(s.pid),
		Terminal:  int32(s.terminal),
		Cols:      s.size.Cols,
		Rows:      s.size.Rows,
		CreatedAt: s.createdAt,
	}
	if !s.startedAt.IsZero() {
		started := s.startedAt
		info.StartedAt = &started
	}
	return info
}

// buildShellEnv overlays the session's terminal metadata on base and returns
// a sorted KEY=VALUE list
func buildShellEnv(base, vars map[string]string) []string {
	env := maps.Clone(base)
	if env == nil {
		env = make(map[string]string)
	}
	for _, key := range []string{EnvTerm, EnvLines, EnvColumns} {
		if v, ok := vars[key]; ok {
			env[key] = v
		}
	}
	if user, ok := vars[EnvUser]; ok && user != "" {
		env["LOGNAME"] = user
		env[EnvUser] = user
	}

	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}
