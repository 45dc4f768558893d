package bridge

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/domain/termmode"
)

// MockTerminalService is a mock implementation of TerminalService.
type MockTerminalService struct {
	mock.Mock
}

func (m *MockTerminalService) CreateTerminal(ctx context.Context) (TerminalID, error) {
	args := m.Called(ctx)
	return args.Get(0).(TerminalID), args.Error(1)
}

func (m *MockTerminalService) GetTerminalAttributes(ctx context.Context, id TerminalID) (*termmode.Attributes, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*termmode.Attributes), args.Error(1)
}

func (m *MockTerminalService) SetTerminalAttributes(ctx context.Context, id TerminalID, attrs *termmode.Attributes) error {
	return m.Called(ctx, id, attrs).Error(0)
}

func (m *MockTerminalService) GetTerminalMaster(ctx context.Context, id TerminalID) (Descriptor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Descriptor), args.Error(1)
}

func (m *MockTerminalService) GetTerminalSlave(ctx context.Context, id TerminalID) (Descriptor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Descriptor), args.Error(1)
}

func (m *MockTerminalService) SetTerminalSize(ctx context.Context, id TerminalID, cols, rows int) error {
	return m.Called(ctx, id, cols, rows).Error(0)
}

func (m *MockTerminalService) LinkProcessToTerminal(ctx context.Context, id TerminalID, pid ProcessID) error {
	return m.Called(ctx, id, pid).Error(0)
}

func (m *MockTerminalService) GetTerminalForegroundProcessGroup(ctx context.Context, id TerminalID) (GroupID, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(GroupID), args.Error(1)
}

func (m *MockTerminalService) ReleaseTerminal(ctx context.Context, id TerminalID) error {
	return m.Called(ctx, id).Error(0)
}

// MockProcessManager is a mock implementation of ProcessManager.
type MockProcessManager struct {
	mock.Mock
}

func (m *MockProcessManager) Exec(ctx context.Context, opts ExecOptions) (ProcessID, error) {
	args := m.Called(ctx, opts)
	return args.Get(0).(ProcessID), args.Error(1)
}

func (m *MockProcessManager) SetProcessTerminalID(ctx context.Context, pid ProcessID, id TerminalID) error {
	return m.Called(ctx, pid, id).Error(0)
}

func (m *MockProcessManager) SendSignal(ctx context.Context, pid ProcessID, sig Signal) error {
	return m.Called(ctx, pid, sig).Error(0)
}

func (m *MockProcessManager) SendGroupSignal(ctx context.Context, gid GroupID, sig Signal) error {
	return m.Called(ctx, gid, sig).Error(0)
}

// fakeEnv is an in-memory Environment
type fakeEnv struct {
	mu        sync.Mutex
	vars      map[string]string
	modes     termmode.Table
	listeners map[Signal][]SignalListener
}

func newFakeEnv(vars map[string]string) *fakeEnv {
	return &fakeEnv{vars: vars, modes: termmode.Table{}, listeners: make(map[Signal][]SignalListener)}
}

func (e *fakeEnv) Env() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.vars))
	for k, v := range e.vars {
		out[k] = v
	}
	return out
}

func (e *fakeEnv) PtyModes() termmode.Table {
	return e.modes.Clone()
}

func (e *fakeEnv) AddSignalListener(l SignalListener, signals ...Signal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, sig := range signals {
		e.listeners[sig] = append(e.listeners[sig], l)
	}
}

func (e *fakeEnv) set(key, value string) {
	e.mu.Lock()
	e.vars[key] = value
	e.mu.Unlock()
}

func (e *fakeEnv) fire(sig Signal) {
	e.mu.Lock()
	ls := append([]SignalListener(nil), e.listeners[sig]...)
	e.mu.Unlock()
	for _, l := range ls {
		l(sig)
	}
}

func (e *fakeEnv) listenerCount(sig Signal) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[sig])
}

// fakeMaster is the controlling side of an in-memory terminal. The test plays
// the shell through shellOut (what the shell prints) and shellIn (what the
// shell reads).
type fakeMaster struct {
	fromShell *io.PipeReader
	toShell   *io.PipeWriter
	closes    atomic.Int32
}

type fakeShell struct {
	out *io.PipeWriter
	in  *io.PipeReader
}

func newFakeTerminal() (*fakeMaster, *fakeShell) {
	outR, outW := io.Pipe()
	inR, inW := io.Pipe()
	return &fakeMaster{fromShell: outR, toShell: inW}, &fakeShell{out: outW, in: inR}
}

func (m *fakeMaster) Read(p []byte) (int, error)  { return m.fromShell.Read(p) }
func (m *fakeMaster) Write(p []byte) (int, error) { return m.toShell.Write(p) }

func (m *fakeMaster) Close() error {
	m.closes.Add(1)
	m.fromShell.Close()
	m.toShell.Close()
	return nil
}

// exit simulates the shell going away
func (s *fakeShell) exit() {
	s.out.Close()
	s.in.Close()
}

// fakeSlave is the subordinate side handed to the launcher
type fakeSlave struct {
	closes atomic.Int32
}

func (s *fakeSlave) Read([]byte) (int, error)    { return 0, io.EOF }
func (s *fakeSlave) Write(p []byte) (int, error) { return len(p), nil }
func (s *fakeSlave) Close() error {
	s.closes.Add(1)
	return nil
}

// channelOut collects relayed output
type channelOut struct {
	mu       sync.Mutex
	buf      []byte
	flushes  int
	writeErr error
	closed   bool
}

func (c *channelOut) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.buf = append(c.buf, p...)
	return len(p), nil
}

func (c *channelOut) Flush() error {
	c.mu.Lock()
	c.flushes++
	c.mu.Unlock()
	return nil
}

func (c *channelOut) CloseWrite() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *channelOut) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.buf)
}

func (c *channelOut) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
