package bridge

import (
	"context"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/domain/termmode"
)

// Provisioner allocates terminals and applies negotiated modes and size
type Provisioner struct {
	terminals TerminalService
	logger    *zap.Logger
}

// NewProvisioner creates a provisioner backed by the given Terminal Service
func NewProvisioner(terminals TerminalService, logger *zap.Logger) *Provisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{terminals: terminals, logger: logger}
}

// Allocate creates a terminal, applies the mode table over its default
// attributes, sets its size and returns both of its sides. If any step after
// creation fails the terminal is released before returning.
func (p *Provisioner) Allocate(ctx context.Context, modes termmode.Table, size Size) (*PtyHandle, error) {
	id, err := p.terminals.CreateTerminal(ctx)
	if err != nil {
		return nil, &ProvisioningError{Op: "create terminal", Err: err}
	}

	handle, err := p.configure(ctx, id, modes, size)
	if err != nil {
		if relErr := p.terminals.ReleaseTerminal(ctx, id); relErr != nil {
			p.logger.Warn("Failed to release terminal after provisioning error",
				zap.Int32("terminal_id", int32(id)),
				zap.Error(relErr),
			)
		}
		return nil, err
	}

	applied := appliedModes(modes)
	p.logger.Debug("Terminal provisioned",
		zap.Int32("terminal_id", int32(id)),
		zap.Int("cols", size.Cols),
		zap.Int("rows", size.Rows),
		zap.Int("modes", applied),
		zap.Int("ignored_modes", len(modes)-applied),
	)
	return handle, nil
}

// appliedModes counts the opcodes Translate acts on
func appliedModes(modes termmode.Table) int {
	n := 0
	for mode := range modes {
		if termmode.Translated(mode) {
			n++
		}
	}
	return n
}

func (p *Provisioner) configure(ctx context.Context, id TerminalID, modes termmode.Table, size Size) (*PtyHandle, error) {
	attrs, err := p.terminals.GetTerminalAttributes(ctx, id)
	if err != nil {
		return nil, &ProvisioningError{Op: "get attributes", Terminal: id, Err: err}
	}

	termmode.Translate(modes, attrs)

	if err := p.terminals.SetTerminalAttributes(ctx, id, attrs); err != nil {
		return nil, &ProvisioningError{Op: "set attributes", Terminal: id, Err: err}
	}

	if err := p.terminals.SetTerminalSize(ctx, id, size.Cols, size.Rows); err != nil {
		return nil, &ProvisioningError{Op: "set size", Terminal: id, Err: err}
	}

	master, err := p.terminals.GetTerminalMaster(ctx, id)
	if err != nil {
		return nil, &ProvisioningError{Op: "get master", Terminal: id, Err: err}
	}

	slave, err := p.terminals.GetTerminalSlave(ctx, id)
	if err != nil {
		master.Close()
		return nil, &ProvisioningError{Op: "get slave", Terminal: id, Err: err}
	}

	return &PtyHandle{Terminal: id, Master: master, Slave: slave}, nil
}
