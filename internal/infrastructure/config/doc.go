// Package config loads the daemon configuration.
//
// Values are layered: Default() first, then the YAML file (DefaultPath unless
// -f names another), then environment variables prefixed with SSHD.
//
// Configuration Sections:
//   - Server: SSH listen address, host key file, version string
//   - Shell: program, shell-quoted arguments, TOML environment file
//   - Auth: bcrypt password hashes per user and attempt throttling
//   - Logging: level, encoding, rotated log file
//   - Daemon: pid file
//   - Admin: optional HTTP endpoint for health, metrics and sessions
//   - Resize: circuit breaker around window-change propagation
//   - Shutdown: grace period for sessions on SIGTERM
//
// Environment Variables (examples):
//   - SSHD_SERVER_PORT, SSHD_SERVER_HOST_KEY_FILE
//   - SSHD_SHELL_PATH, SSHD_SHELL_ARGS
//   - SSHD_AUTH_USERS=alice:$2a$10$...,bob:$2a$10$...
//   - SSHD_LOGGING_LEVEL, SSHD_LOGGING_FILE
//   - SSHD_ADMIN_ADDRESS
package config
