package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	gossh "golang.org/x/crypto/ssh"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/bridge"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/session"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/shared/id"
)

// DefaultServerVersion is the identification string sent to clients
const DefaultServerVersion = "SSH-2.0-AgentOS_sshd"

const handshakeTimeout = 30 * time.Second

// ErrServerClosed is returned by Serve after Close
var ErrServerClosed = errors.New("ssh: server closed")

// Config holds SSH server settings
type Config struct {
	HostKey       gossh.Signer
	Auth          *Authenticator
	Shell         bridge.Config
	ServerVersion string
}

// Server accepts SSH connections and runs a terminal session per shell
// request
type Server struct {
	cfg       Config
	sshConfig *gossh.ServerConfig
	deps      bridge.Deps
	sessions  *session.Manager
	logger    *zap.Logger

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	conns     map[*gossh.ServerConn]struct{}
	closed    bool
	wg        sync.WaitGroup
}

// NewServer creates an SSH server. deps are handed to every session.
func NewServer(cfg Config, deps bridge.Deps, sessions *session.Manager) (*Server, error) {
	if cfg.HostKey == nil {
		return nil, errors.New("ssh: host key required")
	}
	if cfg.Auth == nil {
		return nil, errors.New("ssh: authenticator required")
	}
	if deps.Terminals == nil || deps.Processes == nil {
		return nil, errors.New("ssh: terminal service and process manager required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if sessions == nil {
		sessions = session.NewManager(deps.Logger)
	}
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = DefaultServerVersion
	}

	sshConfig := &gossh.ServerConfig{
		PasswordCallback: cfg.Auth.PasswordCallback,
		ServerVersion:    cfg.ServerVersion,
	}
	sshConfig.AddHostKey(cfg.HostKey)

	return &Server{
		cfg:       cfg,
		sshConfig: sshConfig,
		deps:      deps,
		sessions:  sessions,
		logger:    deps.Logger,
		listeners: make(map[net.Listener]struct{}),
		conns:     make(map[*gossh.ServerConn]struct{}),
	}, nil
}

// ListenAndServe listens on addr and serves until ctx ends or Close is called
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln. It always closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if !s.trackListener(ln) {
		ln.Close()
		return ErrServerClosed
	}
	defer s.untrackListener(ln)

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	s.logger.Info("SSH server listening", zap.String("addr", ln.Addr().String()))

	for {
		nc, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.logger.Warn("Accept timeout", zap.Error(err))
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, nc)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, nc net.Conn) {
	metrics := s.deps.Metrics
	metrics.ConnectionOpened()
	defer metrics.ConnectionClosed()

	connID := id.NewConnectionID()
	logger := s.logger.With(
		zap.String("connection_id", connID.String()),
		zap.String("remote_addr", nc.RemoteAddr().String()),
	)

	nc.SetDeadline(time.Now().Add(handshakeTimeout))
	sconn, chans, reqs, err := gossh.NewServerConn(nc, s.sshConfig)
	if err != nil {
		logger.Debug("Handshake failed", zap.Error(err))
		nc.Close()
		return
	}
	nc.SetDeadline(time.Time{})
	if !s.trackConn(sconn) {
		sconn.Close()
		return
	}
	defer s.untrackConn(sconn)

	logger = logger.With(zap.String("user", sconn.User()))
	logger.Info("Connection established", zap.String("client_version", string(sconn.ClientVersion())))

	go gossh.DiscardRequests(reqs)

	var channels sync.WaitGroup
	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			newCh.Reject(gossh.UnknownChannelType, "unsupported channel type")
			logger.Debug("Rejected channel", zap.String("type", newCh.ChannelType()))
			continue
		}

		ch, requests, err := newCh.Accept()
		if err != nil {
			logger.Warn("Failed to accept channel", zap.Error(err))
			continue
		}

		c := newChannel(s, sconn, ch, logger)
		channels.Add(1)
		go func() {
			defer channels.Done()
			c.serve(ctx, requests)
		}()
	}

	channels.Wait()
	logger.Info("Connection closed")
}

// Close stops every listener and drops every connection. Sessions are hung up
// by their channels closing.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	var errs []error
	for ln := range s.listeners {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return errors.Join(errs...)
}

// Sessions returns the session registry the server reports to
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) trackListener(ln net.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.listeners[ln] = struct{}{}
	return true
}

func (s *Server) untrackListener(ln net.Listener) {
	s.mu.Lock()
	delete(s.listeners, ln)
	s.mu.Unlock()
	ln.Close()
}

func (s *Server) trackConn(c *gossh.ServerConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrackConn(c *gossh.ServerConn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	c.Close()
}
