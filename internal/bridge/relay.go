package bridge

import (
	"errors"
	"io"
	"os"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/infrastructure/monitoring"
)

const relayChunkSize = 32 * 1024

// Relay directions, also used as metric labels
const (
	DirectionOut = "out"
	DirectionIn  = "in"
)

type flusher interface {
	Flush() error
}

// Relay copies bytes between a session's channel streams and the controlling
// side of its terminal.
type Relay struct {
	master  Descriptor
	in      io.Reader
	out     io.Writer
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewRelay creates a relay over master and the channel streams
func NewRelay(master Descriptor, in io.Reader, out io.Writer, metrics *monitoring.Metrics, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{master: master, in: in, out: out, metrics: metrics, logger: logger}
}

// Outbound copies terminal output to the channel until the terminal reports
// end of stream, then calls onEnd with the exit status. Output the channel
// rejects is dropped so the shell never blocks on a full terminal buffer; the
// first such failure is logged.
func (r *Relay) Outbound(onEnd func(status int)) {
	buf := make([]byte, relayChunkSize)
	writeFailed := false

	for {
		n, err := r.master.Read(buf)
		if n > 0 {
			if werr := r.forward(buf[:n]); werr != nil {
				if !writeFailed {
					writeFailed = true
					r.logger.Warn("Channel rejected terminal output, dropping",
						zap.Error(&RelayIOError{Direction: DirectionOut, Op: "write channel", Err: werr}))
				}
				r.metrics.RecordDropped(n)
			} else {
				r.metrics.RecordRelay(DirectionOut, n)
			}
		}

		if err != nil {
			if endOfStream(err) {
				onEnd(0)
				return
			}
			r.logger.Error("Terminal read failed",
				zap.Error(&RelayIOError{Direction: DirectionOut, Op: "read terminal", Err: err}))
			onEnd(1)
			return
		}
	}
}

func (r *Relay) forward(p []byte) error {
	if _, err := r.out.Write(p); err != nil {
		return err
	}
	if f, ok := r.out.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// Inbound copies channel input to the terminal until the channel reaches end
// of stream or the terminal stops accepting writes.
func (r *Relay) Inbound() {
	buf := make([]byte, relayChunkSize)

	for {
		n, err := r.in.Read(buf)
		if n > 0 {
			if _, werr := r.master.Write(buf[:n]); werr != nil {
				r.logTerminated(&RelayIOError{Direction: DirectionIn, Op: "write terminal", Err: werr})
				return
			}
			r.metrics.RecordRelay(DirectionIn, n)
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.logTerminated(&RelayIOError{Direction: DirectionIn, Op: "read channel", Err: err})
			}
			return
		}
	}
}

// logTerminated reports an inbound failure; writes racing teardown are expected
func (r *Relay) logTerminated(err *RelayIOError) {
	if endOfStream(err.Err) {
		r.logger.Debug("Inbound relay stopped", zap.Error(err))
		return
	}
	r.logger.Warn("Inbound relay failed", zap.Error(err))
}

// endOfStream reports whether err means the terminal or channel has gone away.
// Linux returns EIO from the controlling side once the last subordinate
// descriptor is closed.
func endOfStream(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.EIO) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe)
}
