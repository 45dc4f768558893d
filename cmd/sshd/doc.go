// Package main is the entry point for the sshd daemon.
//
// Usage:
//
//	# Detach and print the background pid
//	sshd -f /config/ssh/sshd.yaml
//
//	# Stay in the foreground with debug logs on stderr
//	sshd -D -d
//
// Configuration is read from the YAML file, then overridden by SSHD_*
// environment variables, e.g. SSHD_SERVER_PORT=2222.
//
// Signals:
//   - SIGINT, SIGTERM: hang up every session and exit
package main
