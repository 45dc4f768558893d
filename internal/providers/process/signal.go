//go:build linux || darwin

package process

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/bridge"
)

var signals = map[bridge.Signal]unix.Signal{
	bridge.SignalHangup:    unix.SIGHUP,
	bridge.SignalInterrupt: unix.SIGINT,
	bridge.SignalKill:      unix.SIGKILL,
	bridge.SignalTerminate: unix.SIGTERM,
	bridge.SignalWinch:     unix.SIGWINCH,
}

// hostSignal maps a bridge signal onto the host's numbering
func hostSignal(sig bridge.Signal) (unix.Signal, error) {
	s, ok := signals[sig]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedSignal, sig)
	}
	return s, nil
}
