package bridge

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/infrastructure/resilience"
)

// ResizePropagator applies window-change notifications to a running session's
// terminal and forwards WINCH to the terminal's foreground process group.
type ResizePropagator struct {
	terminal  TerminalID
	env       Environment
	terminals TerminalService
	processes ProcessManager
	breaker   *resilience.Breaker
	metrics   *monitoring.Metrics
	logger    *zap.Logger
}

// NewResizePropagator creates a propagator for one terminal. A nil breaker
// lets every call through.
func NewResizePropagator(terminal TerminalID, env Environment, terminals TerminalService, processes ProcessManager, breaker *resilience.Breaker, metrics *monitoring.Metrics, logger *zap.Logger) *ResizePropagator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResizePropagator{
		terminal:  terminal,
		env:       env,
		terminals: terminals,
		processes: processes,
		breaker:   breaker,
		metrics:   metrics,
		logger:    logger,
	}
}

// Propagate re-reads the size from the environment, resizes the terminal and
// signals the foreground group. No signal is sent if the group lookup fails.
func (r *ResizePropagator) Propagate(ctx context.Context) error {
	size, err := SizeFromEnv(r.env.Env())
	if err != nil {
		return &ResizePropagationError{Op: "parse size", Terminal: r.terminal, Err: err}
	}

	if err := r.guard(ctx, func(ctx context.Context) error {
		return r.terminals.SetTerminalSize(ctx, r.terminal, size.Cols, size.Rows)
	}); err != nil {
		return &ResizePropagationError{Op: "set size", Terminal: r.terminal, Err: err}
	}

	var group GroupID
	if err := r.guard(ctx, func(ctx context.Context) error {
		var err error
		group, err = r.terminals.GetTerminalForegroundProcessGroup(ctx, r.terminal)
		return err
	}); err != nil {
		return &ResizePropagationError{Op: "foreground group", Terminal: r.terminal, Err: err}
	}

	if err := r.processes.SendGroupSignal(ctx, group, SignalWinch); err != nil {
		return &ResizePropagationError{Op: "signal group", Terminal: r.terminal, Err: err}
	}

	r.logger.Debug("Window size changed",
		zap.Int32("terminal_id", int32(r.terminal)),
		zap.Int("cols", size.Cols),
		zap.Int("rows", size.Rows),
		zap.Int("pgid", int(group)),
	)
	return nil
}

// Listener returns a signal listener that propagates WINCH and swallows
// failures after logging them.
func (r *ResizePropagator) Listener(ctx context.Context) SignalListener {
	return func(sig Signal) {
		if sig != SignalWinch {
			return
		}
		err := r.Propagate(ctx)
		r.metrics.RecordResize(resizeResult(err))
		if err != nil {
			r.logger.Warn("Window change not applied", zap.Error(err))
		}
	}
}

func (r *ResizePropagator) guard(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.breaker == nil {
		return fn(ctx)
	}
	return r.breaker.Do(ctx, fn)
}

func resizeResult(err error) string {
	switch {
	case err == nil:
		return "applied"
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		return "rejected"
	default:
		return "failed"
	}
}
