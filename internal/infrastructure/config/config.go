package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kballard/go-shellquote"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/crypto/bcrypt"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/infrastructure/logging"
)

// DefaultPath is read when no config file is given
const DefaultPath = "/config/ssh/sshd.yaml"

// EnvPrefix prefixes every environment override, e.g. SSHD_SERVER_PORT
const EnvPrefix = "SSHD"

// Config holds all daemon configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Shell    ShellConfig    `yaml:"shell"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LogConfig      `yaml:"logging"`
	Daemon   DaemonConfig   `yaml:"daemon"`
	Admin    AdminConfig    `yaml:"admin"`
	Resize   BreakerConfig  `yaml:"resize"`
	Shutdown ShutdownConfig `yaml:"shutdown"`
}

// ServerConfig holds SSH listener configuration.
type ServerConfig struct {
	Host        string `yaml:"host" split_words:"true"`
	Port        int    `yaml:"port" split_words:"true"`
	HostKeyFile string `yaml:"host_key_file" split_words:"true"`
	Version     string `yaml:"version" split_words:"true"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ShellConfig describes the program every session runs.
type ShellConfig struct {
	Path string `yaml:"path" split_words:"true"`
	// Args is a shell-quoted argument string, e.g. `-l -c "exec bash"`
	Args string `yaml:"args" split_words:"true"`
	// EnvironmentFile is a TOML table of variables every shell starts with
	EnvironmentFile string `yaml:"environment_file" split_words:"true"`
}

// ArgList splits Args into words
func (s ShellConfig) ArgList() ([]string, error) {
	args, err := shellquote.Split(s.Args)
	if err != nil {
		return nil, fmt.Errorf("shell args %q: %w", s.Args, err)
	}
	return args, nil
}

// AuthConfig holds password authentication settings.
type AuthConfig struct {
	// Users maps login names to bcrypt hashes; empty accepts any password
	Users             map[string]string `yaml:"users" split_words:"true"`
	AttemptsPerSecond float64           `yaml:"attempts_per_second" split_words:"true"`
	Burst             int               `yaml:"burst" split_words:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `yaml:"level" split_words:"true"`
	Development bool   `yaml:"development" split_words:"true"`
	// File receives the log when the daemon runs in the background
	File       string `yaml:"file" split_words:"true"`
	MaxSizeMB  int    `yaml:"max_size_mb" split_words:"true"`
	MaxBackups int    `yaml:"max_backups" split_words:"true"`
	MaxAgeDays int    `yaml:"max_age_days" split_words:"true"`
}

// DaemonConfig holds process-level settings.
type DaemonConfig struct {
	PidFile string `yaml:"pid_file" split_words:"true"`
}

// AdminConfig holds the admin HTTP endpoint configuration.
type AdminConfig struct {
	// Address is empty to disable the endpoint
	Address           string   `yaml:"address" split_words:"true"`
	RequestsPerSecond int      `yaml:"requests_per_second" split_words:"true"`
	Burst             int      `yaml:"burst" split_words:"true"`
	AllowOrigins      []string `yaml:"allow_origins" split_words:"true"`
}

// BreakerConfig guards window-change propagation.
type BreakerConfig struct {
	Enabled     bool          `yaml:"enabled" split_words:"true"`
	MaxFailures uint32        `yaml:"max_failures" split_words:"true"`
	Timeout     time.Duration `yaml:"timeout" split_words:"true"`
}

// ShutdownConfig bounds graceful shutdown.
type ShutdownConfig struct {
	Timeout time.Duration `yaml:"timeout" split_words:"true"`
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8000,
			HostKeyFile: "/config/ssh/ssh_host_ed25519_key",
			Version:     "SSH-2.0-AgentOS_sshd",
		},
		Shell: ShellConfig{
			Path:            "/bin/sh",
			EnvironmentFile: "/config/environment.toml",
		},
		Auth: AuthConfig{
			AttemptsPerSecond: 1,
			Burst:             5,
		},
		Logging: LogConfig{
			Level:      "info",
			File:       "/var/log/sshd.log",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Daemon: DaemonConfig{
			PidFile: "/var/run/sshd.pid",
		},
		Admin: AdminConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			AllowOrigins:      []string{"*"},
		},
		Resize: BreakerConfig{
			Enabled:     true,
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Shutdown: ShutdownConfig{
			Timeout: 10 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path and
// SSHD_* environment variables, in that order. An empty path reads
// DefaultPath and tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks settings that would otherwise fail late
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if !filepath.IsAbs(c.Shell.Path) {
		errs = append(errs, fmt.Errorf("shell.path %q must be absolute", c.Shell.Path))
	}
	if _, err := c.Shell.ArgList(); err != nil {
		errs = append(errs, err)
	}
	if !logging.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level %q is not a level", c.Logging.Level))
	}
	for name, hash := range c.Auth.Users {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			errs = append(errs, fmt.Errorf("auth.users[%s]: not a bcrypt hash: %w", name, err))
		}
	}
	if c.Resize.Enabled && c.Resize.MaxFailures == 0 {
		errs = append(errs, errors.New("resize.max_failures must be positive"))
	}

	return errors.Join(errs...)
}
