// Package logging provides structured logging using uber/zap.
//
// Two encodings are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Output goes to the configured zap output paths and, when Config.File is
// set, to a size-rotated file written through lumberjack. The daemon uses the
// file when it runs detached from its terminal.
//
// Example Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info", File: "/var/log/sshd.log"})
//	logger.Info("Server starting", zap.Int("port", 8000))
//	defer logger.Close()
package logging
