//go:build linux || darwin

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/infrastructure/server"
)

type options struct {
	foreground bool
	debug      bool
	configPath string
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "sshd",
		Short: "SSH daemon that attaches each session to a shell on a pseudo-terminal",
		Long: `sshd accepts SSH connections, authenticates users by password and runs
the configured shell on a fresh pseudo-terminal for every shell request.

Without -D the daemon detaches from the controlling terminal and prints the
pid of the background process.`,
		Version:       server.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !opts.foreground {
				pid, err := detach(os.Args[1:])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), pid)
				return nil
			}
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.foreground, "no-daemon", "D", false, "stay in the foreground")
	cmd.Flags().BoolVarP(&opts.debug, "debug", "d", false, "debug logging to stderr")
	cmd.Flags().StringVarP(&opts.configPath, "config", "f", "", "config file (default "+config.DefaultPath+")")
	return cmd
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(logConfig(cfg.Logging, opts.debug, isatty.IsTerminal(os.Stderr.Fd())))
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Close()

	if err := writePidFile(cfg.Daemon.PidFile); err != nil {
		logger.Error("Failed to write pid file", zap.Error(err))
		return err
	}
	defer removePidFile(cfg.Daemon.PidFile, logger.Logger)

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		logger.Error("Failed to create server", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting sshd",
		zap.String("addr", cfg.Server.Addr()),
		zap.Int("pid", os.Getpid()),
		zap.String("version", server.Version),
	)
	runErr := srv.Run(ctx)
	if runErr != nil {
		logger.Error("Server error", zap.Error(runErr))
	} else {
		logger.Info("Shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	return runErr
}

// logConfig maps daemon settings to the logger. Debug mode logs only to
// stderr; otherwise the log goes to the rotating file, and to stderr as well
// when stderr is a terminal.
func logConfig(cfg config.LogConfig, debug, tty bool) logging.Config {
	if debug {
		return logging.DevelopmentConfig()
	}

	out := logging.DefaultConfig()
	out.Level = cfg.Level
	out.Development = cfg.Development
	out.MaxSizeMB = cfg.MaxSizeMB
	out.MaxBackups = cfg.MaxBackups
	out.MaxAgeDays = cfg.MaxAgeDays
	out.File = cfg.File
	if !tty && out.File != "" {
		out.OutputPaths = nil
	}
	return out
}
