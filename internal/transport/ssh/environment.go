package ssh

import (
	"maps"
	"slices"
	"strconv"
	"sync"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/bridge"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/domain/termmode"
)

// protectedEnv cannot be set by a client env request
var protectedEnv = map[string]struct{}{
	bridge.EnvUser:    {},
	bridge.EnvColumns: {},
	bridge.EnvLines:   {},
	"LOGNAME":         {},
}

// signalNames maps RFC 4254 signal names onto bridge signals
var signalNames = map[string]bridge.Signal{
	"HUP":   bridge.SignalHangup,
	"INT":   bridge.SignalInterrupt,
	"KILL":  bridge.SignalKill,
	"TERM":  bridge.SignalTerminate,
	"WINCH": bridge.SignalWinch,
}

type signalListener struct {
	fn      bridge.SignalListener
	signals []bridge.Signal
}

// Environment is the per-channel session metadata handed to a bridge.Session.
// It is safe for concurrent use.
type Environment struct {
	mu        sync.RWMutex
	vars      map[string]string
	modes     termmode.Table
	listeners []signalListener
}

var _ bridge.Environment = (*Environment)(nil)

// NewEnvironment creates an environment for user
func NewEnvironment(user string) *Environment {
	e := &Environment{
		vars:  make(map[string]string),
		modes: termmode.Table{},
	}
	if user != "" {
		e.vars[bridge.EnvUser] = user
	}
	return e
}

// Set stores a variable
func (e *Environment) Set(key, value string) {
	e.mu.Lock()
	e.vars[key] = value
	e.mu.Unlock()
}

// SetFromClient stores a variable sent by the client. It reports false for
// names the transport owns.
func (e *Environment) SetFromClient(key, value string) bool {
	if _, ok := protectedEnv[key]; ok || key == "" {
		return false
	}
	e.Set(key, value)
	return true
}

// SetSize publishes the terminal size in character cells
func (e *Environment) SetSize(cols, rows uint32) {
	e.mu.Lock()
	e.vars[bridge.EnvColumns] = strconv.FormatUint(uint64(cols), 10)
	e.vars[bridge.EnvLines] = strconv.FormatUint(uint64(rows), 10)
	e.mu.Unlock()
}

// SetModes replaces the negotiated mode table
func (e *Environment) SetModes(t termmode.Table) {
	e.mu.Lock()
	e.modes = t.Clone()
	e.mu.Unlock()
}

// Env returns a copy of the variables
func (e *Environment) Env() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return maps.Clone(e.vars)
}

// PtyModes returns a copy of the mode table
func (e *Environment) PtyModes() termmode.Table {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.modes.Clone()
}

// AddSignalListener registers l for signals. With no signals l receives all.
func (e *Environment) AddSignalListener(l bridge.SignalListener, signals ...bridge.Signal) {
	e.mu.Lock()
	e.listeners = append(e.listeners, signalListener{fn: l, signals: signals})
	e.mu.Unlock()
}

// Signal delivers sig to every interested listener on the caller's goroutine
func (e *Environment) Signal(sig bridge.Signal) {
	e.mu.RLock()
	listeners := slices.Clone(e.listeners)
	e.mu.RUnlock()

	for _, l := range listeners {
		if len(l.signals) == 0 || slices.Contains(l.signals, sig) {
			l.fn(sig)
		}
	}
}

// ParseSignal maps an RFC 4254 signal name, without the SIG prefix
func ParseSignal(name string) (bridge.Signal, bool) {
	sig, ok := signalNames[name]
	return sig, ok
}
