package terminal

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/bridge"
)

var (
	ErrTerminalNotFound = errors.New("terminal not found")
	ErrSlaveUnavailable = errors.New("terminal subordinate side already handed out")
	ErrAlreadyLinked    = errors.New("terminal already linked to a process")
)

// entry is one allocated pty pair
type entry struct {
	id        bridge.TerminalID
	name      string
	createdAt time.Time

	master *os.File

	mu    sync.Mutex
	slave *os.File
	pid   bridge.ProcessID
	cols  int
	rows  int
}

// Info is the public representation of a terminal
type Info struct {
	ID        int32     `json:"id"`
	Name      string    `json:"name"`
	PID       int       `json:"pid,omitempty"`
	Cols      int       `json:"cols"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"created_at"`
}

func (e *entry) info() Info {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Info{
		ID:        int32(e.id),
		Name:      e.name,
		PID:       int(e.pid),
		Cols:      e.cols,
		Rows:      e.rows,
		CreatedAt: e.createdAt,
	}
}
