//go:build linux || darwin

package terminal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/bridge"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/domain/termmode"
)

// Service allocates host pseudo-terminals
type Service struct {
	terminals sync.Map // map[bridge.TerminalID]*entry
	nextID    atomic.Int32
	logger    *zap.Logger
}

var _ bridge.TerminalService = (*Service)(nil)

// NewService creates an empty terminal service
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger}
}

// CreateTerminal opens a new pty pair
func (s *Service) CreateTerminal(ctx context.Context) (bridge.TerminalID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	master, slave, err := pty.Open()
	if err != nil {
		return 0, fmt.Errorf("open pty: %w", err)
	}

	e := &entry{
		id:        bridge.TerminalID(s.nextID.Add(1)),
		name:      slave.Name(),
		createdAt: time.Now(),
		master:    master,
		slave:     slave,
	}
	s.terminals.Store(e.id, e)

	s.logger.Debug("Terminal created", zap.Int32("terminal_id", int32(e.id)), zap.String("tty", e.name))
	return e.id, nil
}

// GetTerminalAttributes reads the terminal's current modes
func (s *Service) GetTerminalAttributes(_ context.Context, id bridge.TerminalID) (*termmode.Attributes, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	var attrs *termmode.Attributes
	err = control(e.master, func(fd int) error {
		var err error
		attrs, err = readAttributes(fd)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get attributes of terminal %d: %w", id, err)
	}
	return attrs, nil
}

// SetTerminalAttributes writes the modelled modes, leaving every other termios
// bit as it is
func (s *Service) SetTerminalAttributes(_ context.Context, id bridge.TerminalID, attrs *termmode.Attributes) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}

	if err := control(e.master, func(fd int) error { return writeAttributes(fd, attrs) }); err != nil {
		return fmt.Errorf("set attributes of terminal %d: %w", id, err)
	}
	return nil
}

// GetTerminalMaster returns the controlling side. The caller closes it when
// the session ends.
func (s *Service) GetTerminalMaster(_ context.Context, id bridge.TerminalID) (bridge.Descriptor, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.master, nil
}

// GetTerminalSlave hands out the subordinate side. It can be taken once; the
// service keeps no reference to it afterwards.
func (s *Service) GetTerminalSlave(_ context.Context, id bridge.TerminalID) (bridge.Descriptor, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.slave == nil {
		return nil, fmt.Errorf("terminal %d: %w", id, ErrSlaveUnavailable)
	}
	slave := e.slave
	e.slave = nil
	return slave, nil
}

// SetTerminalSize sets the window size in character cells
func (s *Service) SetTerminalSize(_ context.Context, id bridge.TerminalID, cols, rows int) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}

	if err := pty.Setsize(e.master, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)}); err != nil {
		return fmt.Errorf("resize terminal %d: %w", id, err)
	}

	e.mu.Lock()
	e.cols, e.rows = cols, rows
	e.mu.Unlock()
	return nil
}

// LinkProcessToTerminal records the session leader running on the terminal
func (s *Service) LinkProcessToTerminal(_ context.Context, id bridge.TerminalID, pid bridge.ProcessID) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pid != 0 && e.pid != pid {
		return fmt.Errorf("terminal %d linked to pid %d: %w", id, e.pid, ErrAlreadyLinked)
	}
	e.pid = pid
	return nil
}

// GetTerminalForegroundProcessGroup asks the kernel for the terminal's
// foreground process group
func (s *Service) GetTerminalForegroundProcessGroup(_ context.Context, id bridge.TerminalID) (bridge.GroupID, error) {
	e, err := s.lookup(id)
	if err != nil {
		return 0, err
	}

	var pgid int
	err = control(e.master, func(fd int) error {
		var err error
		pgid, err = foregroundGroup(fd)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("foreground group of terminal %d: %w", id, err)
	}
	if pgid <= 0 {
		return 0, fmt.Errorf("terminal %d has no foreground process group", id)
	}
	return bridge.GroupID(pgid), nil
}

// ReleaseTerminal closes whatever the service still holds and forgets the
// terminal
func (s *Service) ReleaseTerminal(_ context.Context, id bridge.TerminalID) error {
	v, ok := s.terminals.LoadAndDelete(id)
	if !ok {
		return fmt.Errorf("terminal %d: %w", id, ErrTerminalNotFound)
	}
	e := v.(*entry)

	e.mu.Lock()
	slave := e.slave
	e.slave = nil
	e.mu.Unlock()

	var errs []error
	if slave != nil {
		errs = append(errs, ignoreClosed(slave.Close()))
	}
	errs = append(errs, ignoreClosed(e.master.Close()))

	s.logger.Debug("Terminal released", zap.Int32("terminal_id", int32(id)))
	return errors.Join(errs...)
}

// List returns every allocated terminal ordered by id
func (s *Service) List() []Info {
	var out []Info
	s.terminals.Range(func(_, value any) bool {
		out = append(out, value.(*entry).info())
		return true
	})
	slices.SortFunc(out, func(a, b Info) int { return int(a.ID - b.ID) })
	return out
}

// Close releases every terminal
func (s *Service) Close() error {
	var errs []error
	s.terminals.Range(func(key, _ any) bool {
		if err := s.ReleaseTerminal(context.Background(), key.(bridge.TerminalID)); err != nil && !errors.Is(err, ErrTerminalNotFound) {
			errs = append(errs, err)
		}
		return true
	})
	return errors.Join(errs...)
}

func (s *Service) lookup(id bridge.TerminalID) (*entry, error) {
	v, ok := s.terminals.Load(id)
	if !ok {
		return nil, fmt.Errorf("terminal %d: %w", id, ErrTerminalNotFound)
	}
	return v.(*entry), nil
}

// control runs fn against the raw descriptor without switching the file to
// blocking mode
func control(f *os.File, fn func(fd int) error) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return err
	}
	var opErr error
	if err := rc.Control(func(fd uintptr) { opErr = fn(int(fd)) }); err != nil {
		return err
	}
	return opErr
}

func ignoreClosed(err error) error {
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}
