package ssh

import (
	"errors"
	"net"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	gossh "golang.org/x/crypto/ssh"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/shared/ratelimit"
)

var (
	ErrAuthFailed    = errors.New("authentication failed")
	ErrAuthThrottled = errors.New("too many authentication attempts")
)

// AuthConfig controls password authentication
type AuthConfig struct {
	// Users maps a login name to a bcrypt hash. Empty accepts any password.
	Users map[string]string
	// AttemptsPerSecond and Burst bound password checks per remote host
	AttemptsPerSecond float64
	Burst             int
}

// Authenticator checks passwords for the SSH server
type Authenticator struct {
	users    map[string][]byte
	limiters *ratelimit.Clients
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewAuthenticator creates an authenticator
func NewAuthenticator(cfg AuthConfig, metrics *monitoring.Metrics, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	users := make(map[string][]byte, len(cfg.Users))
	for name, hash := range cfg.Users {
		users[name] = []byte(hash)
	}
	if len(users) == 0 {
		logger.Warn("No users configured, accepting any password")
	}

	limit := rate.Inf
	if cfg.AttemptsPerSecond > 0 {
		limit = rate.Limit(cfg.AttemptsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Authenticator{
		users:    users,
		limiters: ratelimit.New(limit, burst, ratelimit.DefaultIdle),
		metrics:  metrics,
		logger:   logger,
	}
}

// PasswordCallback implements gossh.ServerConfig.PasswordCallback
func (a *Authenticator) PasswordCallback(conn gossh.ConnMetadata, password []byte) (*gossh.Permissions, error) {
	if !a.limiters.Allow(remoteHost(conn.RemoteAddr())) {
		a.reject(conn, "throttled")
		return nil, ErrAuthThrottled
	}
	if err := a.check(conn.User(), password); err != nil {
		a.reject(conn, "password")
		return nil, err
	}

	a.logger.Info("User authenticated",
		zap.String("user", conn.User()),
		zap.String("remote_addr", conn.RemoteAddr().String()),
		zap.String("client_version", string(conn.ClientVersion())),
	)
	return &gossh.Permissions{}, nil
}

func (a *Authenticator) check(user string, password []byte) error {
	if len(a.users) == 0 {
		return nil
	}
	hash, ok := a.users[user]
	if !ok {
		return ErrAuthFailed
	}
	if err := bcrypt.CompareHashAndPassword(hash, password); err != nil {
		return ErrAuthFailed
	}
	return nil
}

func (a *Authenticator) reject(conn gossh.ConnMetadata, reason string) {
	a.metrics.AuthFailed(reason)
	a.logger.Warn("Authentication rejected",
		zap.String("user", conn.User()),
		zap.String("remote_addr", conn.RemoteAddr().String()),
		zap.String("reason", reason),
	)
}

// remoteHost drops the port so every connection from a host shares a limiter
func remoteHost(addr net.Addr) string {
	host := addr.String()
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host
}
