package bridge

import (
	"context"

	"go.uber.org/zap"
)

// Launcher spawns the shell on a terminal's subordinate side
type Launcher struct {
	terminals TerminalService
	processes ProcessManager
	logger    *zap.Logger
}

// NewLauncher creates a launcher
func NewLauncher(terminals TerminalService, processes ProcessManager, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{terminals: terminals, processes: processes, logger: logger}
}

// Launch spawns path with stdin, stdout and stderr bound to the handle's
// subordinate side and links the new process to the terminal. The launcher's
// reference to the subordinate side is closed before returning, whatever the
// outcome; the child keeps its own copy.
func (l *Launcher) Launch(ctx context.Context, path string, args, env []string, handle *PtyHandle) (ProcessID, error) {
	pid, err := l.spawn(ctx, path, args, env, handle)
	if err != nil {
		return 0, err
	}

	if err := l.processes.SetProcessTerminalID(ctx, pid, handle.Terminal); err != nil {
		l.abandon(ctx, pid)
		return 0, &LaunchError{Op: "set process terminal", Path: path, Err: err}
	}
	if err := l.terminals.LinkProcessToTerminal(ctx, handle.Terminal, pid); err != nil {
		l.abandon(ctx, pid)
		return 0, &LaunchError{Op: "link terminal", Path: path, Err: err}
	}

	l.logger.Info("Shell launched",
		zap.String("path", path),
		zap.Int("pid", int(pid)),
		zap.Int32("terminal_id", int32(handle.Terminal)),
	)
	return pid, nil
}

func (l *Launcher) spawn(ctx context.Context, path string, args, env []string, handle *PtyHandle) (ProcessID, error) {
	slave := handle.Slave
	handle.Slave = nil
	if slave == nil {
		return 0, &LaunchError{Op: "exec", Path: path, Err: ErrNoStreams}
	}
	defer func() {
		if err := slave.Close(); err != nil {
			l.logger.Debug("Closing subordinate side", zap.Error(err))
		}
	}()

	pid, err := l.processes.Exec(ctx, ExecOptions{
		Path:   path,
		Args:   args,
		Env:    env,
		Stdin:  slave,
		Stdout: slave,
		Stderr: slave,
	})
	if err != nil {
		return 0, &LaunchError{Op: "exec", Path: path, Err: err}
	}
	return pid, nil
}

// abandon kills a process that could not be linked to its terminal
func (l *Launcher) abandon(ctx context.Context, pid ProcessID) {
	if err := l.processes.SendSignal(ctx, pid, SignalKill); err != nil {
		l.logger.Warn("Failed to kill unlinked shell", zap.Int("pid", int(pid)), zap.Error(err))
	}
}
