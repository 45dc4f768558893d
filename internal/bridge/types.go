package bridge

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/domain/termmode"
)

// TerminalID addresses a terminal in the Terminal Service
type TerminalID int32

// ProcessID identifies a process in the Process Manager
type ProcessID int

// GroupID identifies a process group
type GroupID int

// Signal is a process signal understood by the Process Manager
type Signal int

const (
	SignalHangup Signal = iota + 1
	SignalInterrupt
	SignalKill
	SignalTerminate
	SignalWinch
)

// String returns the conventional signal name
func (s Signal) String() string {
	switch s {
	case SignalHangup:
		return "HUP"
	case SignalInterrupt:
		return "INT"
	case SignalKill:
		return "KILL"
	case SignalTerminate:
		return "TERM"
	case SignalWinch:
		return "WINCH"
	default:
		return fmt.Sprintf("Signal(%d)", int(s))
	}
}

// Session environment keys published by the transport
const (
	EnvColumns = "COLUMNS"
	EnvLines   = "LINES"
	EnvTerm    = "TERM"
	EnvUser    = "USER"
)

// Descriptor is one side of a pseudo-terminal
type Descriptor interface {
	io.ReadWriteCloser
}

// PtyHandle is an allocated terminal together with both of its sides.
type PtyHandle struct {
	Terminal TerminalID
	Master   Descriptor
	Slave    Descriptor
}

// Size is a terminal size in character cells
type Size struct {
	Cols int
	Rows int
}

// SizeFromEnv reads the terminal size from session environment metadata.
func SizeFromEnv(env map[string]string) (Size, error) {
	cols, err := parseDimension(env, EnvColumns)
	if err != nil {
		return Size{}, err
	}
	rows, err := parseDimension(env, EnvLines)
	if err != nil {
		return Size{}, err
	}
	return Size{Cols: cols, Rows: rows}, nil
}

func parseDimension(env map[string]string, key string) (int, error) {
	raw, ok := env[key]
	if !ok || raw == "" {
		return 0, fmt.Errorf("%w: %s", ErrMissingSize, key)
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || v > 0xffff {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidSize, key, raw)
	}
	return v, nil
}

// ExecOptions describes a process to spawn
type ExecOptions struct {
	Path   string
	Args   []string
	Env    []string
	Dir    string
	Stdin  Descriptor
	Stdout Descriptor
	Stderr Descriptor
}

// TerminalService allocates terminals and stores their attributes.
type TerminalService interface {
	CreateTerminal(ctx context.Context) (TerminalID, error)
	GetTerminalAttributes(ctx context.Context, id TerminalID) (*termmode.Attributes, error)
	SetTerminalAttributes(ctx context.Context, id TerminalID, attrs *termmode.Attributes) error
	GetTerminalMaster(ctx context.Context, id TerminalID) (Descriptor, error)
	GetTerminalSlave(ctx context.Context, id TerminalID) (Descriptor, error)
	SetTerminalSize(ctx context.Context, id TerminalID, cols, rows int) error
	LinkProcessToTerminal(ctx context.Context, id TerminalID, pid ProcessID) error
	GetTerminalForegroundProcessGroup(ctx context.Context, id TerminalID) (GroupID, error)
	ReleaseTerminal(ctx context.Context, id TerminalID) error
}

// ProcessManager creates and signals processes.
type ProcessManager interface {
	Exec(ctx context.Context, opts ExecOptions) (ProcessID, error)
	SetProcessTerminalID(ctx context.Context, pid ProcessID, id TerminalID) error
	SendSignal(ctx context.Context, pid ProcessID, sig Signal) error
	SendGroupSignal(ctx context.Context, gid GroupID, sig Signal) error
}

// SignalListener receives signals relayed by the transport
type SignalListener func(sig Signal)

// Environment is the session metadata published by the transport.
type Environment interface {
	// Env returns a snapshot of the session environment variables.
	Env() map[string]string
	// PtyModes returns the negotiated terminal mode table.
	PtyModes() termmode.Table
	// AddSignalListener registers l for the given signals.
	AddSignalListener(l SignalListener, signals ...Signal)
}

// ExitCallback reports the session exit status to the transport
type ExitCallback func(status int)
