// Package session tracks the live terminal sessions of the daemon so they can
// be listed by the admin API and hung up on shutdown.
package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/bridge"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/shared/id"
)

// Manager holds every session that has not reached a final phase
type Manager struct {
	sessions sync.Map // map[id.SessionID]*bridge.Session
	wg       sync.WaitGroup
	logger   *zap.Logger
}

// NewManager creates an empty session manager
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{logger: logger}
}

// Track registers s and forgets it once it is done
func (m *Manager) Track(s *bridge.Session) {
	m.sessions.Store(s.ID(), s)
	m.wg.Add(1)

	go func() {
		defer m.wg.Done()
		<-s.Done()
		m.sessions.Delete(s.ID())
	}()
}

// Get looks up a live session
func (m *Manager) Get(sid id.SessionID) (*bridge.Session, bool) {
	v, ok := m.sessions.Load(sid)
	if !ok {
		return nil, false
	}
	return v.(*bridge.Session), true
}

// List returns live sessions, oldest first
func (m *Manager) List() []bridge.Info {
	var out []bridge.Info
	m.sessions.Range(func(_, value any) bool {
		out = append(out, value.(*bridge.Session).Info())
		return true
	})
	slices.SortFunc(out, func(a, b bridge.Info) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	n := 0
	m.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Destroy hangs up one session
func (m *Manager) Destroy(ctx context.Context, sid id.SessionID) bool {
	s, ok := m.Get(sid)
	if !ok {
		return false
	}
	s.Destroy(ctx)
	return true
}

// DestroyAll hangs up every live session and returns how many were asked to
// end
func (m *Manager) DestroyAll(ctx context.Context) int {
	n := 0
	m.sessions.Range(func(_, value any) bool {
		value.(*bridge.Session).Destroy(ctx)
		n++
		return true
	})
	if n > 0 {
		m.logger.Info("Hung up sessions", zap.Int("count", n))
	}
	return n
}

// Wait blocks until every tracked session is done or ctx ends
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		m.logger.Warn("Sessions still running at shutdown", zap.Int("count", m.Count()))
		return ctx.Err()
	}
}

// Shutdown hangs up every session and waits up to timeout for them to end
func (m *Manager) Shutdown(ctx context.Context, timeout time.Duration) error {
	m.DestroyAll(ctx)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return m.Wait(ctx)
}
