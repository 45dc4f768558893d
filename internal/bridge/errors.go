package bridge

import (
	"errors"
	"fmt"
)

var (
	ErrMissingSize        = errors.New("terminal size missing")
	ErrInvalidSize        = errors.New("terminal size invalid")
	ErrExecutableNotFound = errors.New("executable not found")
	ErrInvalidExecutable  = errors.New("invalid executable")
	ErrSessionStarted     = errors.New("session already started")
	ErrSessionDestroyed   = errors.New("session destroyed")
	ErrNoStreams          = errors.New("session streams not set")
)

// ProvisioningError is a terminal allocation, attribute or size failure.
// It is fatal to session start.
type ProvisioningError struct {
	Op       string
	Terminal TerminalID
	Err      error
}

func (e *ProvisioningError) Error() string {
	if e.Terminal != 0 {
		return fmt.Sprintf("provision terminal %d: %s: %v", e.Terminal, e.Op, e.Err)
	}
	return fmt.Sprintf("provision terminal: %s: %v", e.Op, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// LaunchError is a shell spawn or linking failure. It is fatal to session
// start and never retried.
type LaunchError struct {
	Op   string
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// RelayIOError is a read or write failure in one of the relay loops.
type RelayIOError struct {
	Direction string
	Op        string
	Err       error
}

func (e *RelayIOError) Error() string {
	return fmt.Sprintf("relay %s: %s: %v", e.Direction, e.Op, e.Err)
}

func (e *RelayIOError) Unwrap() error { return e.Err }

// ResizePropagationError is a failed window-change propagation. The session
// continues.
type ResizePropagationError struct {
	Op       string
	Terminal TerminalID
	Err      error
}

func (e *ResizePropagationError) Error() string {
	return fmt.Sprintf("resize terminal %d: %s: %v", e.Terminal, e.Op, e.Err)
}

func (e *ResizePropagationError) Unwrap() error { return e.Err }
