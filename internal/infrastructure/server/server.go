//go:build linux || darwin

// Package server wires the daemon together: terminal and process services,
// the session registry, the SSH transport and the optional admin endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	adminhttp "github.com/GriffinCanCode/AgentOS/sshd/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/bridge"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/providers/process"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/providers/terminal"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/session"
	sshtransport "github.com/GriffinCanCode/AgentOS/sshd/internal/transport/ssh"
)

// Version is reported by the admin endpoint
const Version = "0.3.0"

// Server owns every long-lived component of the daemon
type Server struct {
	config    *config.Config
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	terminals *terminal.Service
	processes *process.Manager
	sessions  *session.Manager
	ssh       *sshtransport.Server
	admin     *http.Server
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	log := logger.Logger

	log.Info("Initializing sshd",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("shell", cfg.Shell.Path),
		zap.Int("users", len(cfg.Auth.Users)),
	)

	metrics := monitoring.NewMetrics()

	shellArgs, err := cfg.Shell.ArgList()
	if err != nil {
		return nil, err
	}
	baseEnv, err := config.LoadEnvironment(cfg.Shell.EnvironmentFile)
	if err != nil {
		return nil, err
	}

	hostKey, err := sshtransport.LoadHostKey(cfg.Server.HostKeyFile, log)
	if err != nil {
		return nil, err
	}

	terminals := terminal.NewService(log.Named("terminal"))
	processes := process.NewManager(log.Named("process"))
	sessions := session.NewManager(log.Named("session"))

	deps := bridge.Deps{
		Terminals:     terminals,
		Processes:     processes,
		Logger:        log.Named("bridge"),
		Metrics:       metrics,
		ResizeBreaker: newResizeBreaker(cfg.Resize, log),
	}

	auth := sshtransport.NewAuthenticator(sshtransport.AuthConfig{
		Users:             cfg.Auth.Users,
		AttemptsPerSecond: cfg.Auth.AttemptsPerSecond,
		Burst:             cfg.Auth.Burst,
	}, metrics, log.Named("auth"))

	sshServer, err := sshtransport.NewServer(sshtransport.Config{
		HostKey:       hostKey,
		Auth:          auth,
		ServerVersion: cfg.Server.Version,
		Shell: bridge.Config{
			ShellPath: cfg.Shell.Path,
			ShellArgs: shellArgs,
			BaseEnv:   baseEnv,
		},
	}, deps, sessions)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:    cfg,
		logger:    logger,
		metrics:   metrics,
		terminals: terminals,
		processes: processes,
		sessions:  sessions,
		ssh:       sshServer,
	}

	if cfg.Admin.Address != "" {
		handlers := adminhttp.NewHandlers(sessions, terminals, processes, metrics, logger, log.Named("admin"), Version)
		router := adminhttp.NewRouter(adminhttp.RouterConfig{
			Development: cfg.Logging.Development,
			RateLimit: middleware.RateLimitConfig{
				RequestsPerSecond: cfg.Admin.RequestsPerSecond,
				Burst:             cfg.Admin.Burst,
			},
			CORS: middleware.CORSConfig{AllowOrigins: cfg.Admin.AllowOrigins, MaxAge: 12 * time.Hour},
		}, handlers, metrics)
		s.admin = &http.Server{
			Addr:              cfg.Admin.Address,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	log.Info("Server initialized successfully")
	return s, nil
}

func newResizeBreaker(cfg config.BreakerConfig, log *zap.Logger) *resilience.Breaker {
	if !cfg.Enabled {
		return nil
	}
	maxFailures := cfg.MaxFailures
	return resilience.New("resize", resilience.Settings{
		Timeout: cfg.Timeout,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// Run serves SSH on the configured address until ctx ends
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Server.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the SSH server on ln and the admin endpoint, if configured,
// until ctx ends or either fails
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- s.ssh.Serve(ctx, ln)
	}()

	if s.admin != nil {
		go func() {
			s.logger.Info("Starting admin endpoint", zap.String("addr", s.admin.Addr))
			if err := s.admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("admin endpoint: %w", err)
				return
			}
			errCh <- nil
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if errors.Is(err, sshtransport.ErrServerClosed) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}

// Shutdown stops accepting connections, hangs up every session and waits for
// them to end within the configured grace period
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	var errs []error

	if s.admin != nil {
		if err := s.admin.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("admin endpoint: %w", err))
		}
	}

	if err := s.ssh.Close(); err != nil {
		errs = append(errs, fmt.Errorf("ssh server: %w", err))
	}
	if err := s.sessions.Shutdown(ctx, s.config.Shutdown.Timeout); err != nil {
		s.logger.Warn("Sessions did not end in time", zap.Error(err))
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.config.Shutdown.Timeout)
	defer cancel()
	if err := s.processes.Shutdown(waitCtx); err != nil {
		s.logger.Warn("Shells still running at exit", zap.Int("count", len(s.processes.List())))
	}
	if err := s.terminals.Close(); err != nil {
		errs = append(errs, fmt.Errorf("terminals: %w", err))
	}

	s.logger.Info("Server stopped")
	return errors.Join(errs...)
}

// Sessions returns the session registry
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}
