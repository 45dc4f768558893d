package process

import (
	"errors"
	"time"
)

var (
	ErrProcessNotFound   = errors.New("process not found")
	ErrUnsupportedSignal = errors.New("unsupported signal")
)

// Info is the public representation of a running process
type Info struct {
	PID       int       `json:"pid"`
	Path      string    `json:"path"`
	Terminal  int32     `json:"terminal_id,omitempty"`
	StartedAt time.Time `json:"started_at"`
}
