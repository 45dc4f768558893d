//go:build linux || darwin

package process

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/bridge"
)

const shell = "/bin/sh"

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(shell); err != nil {
		t.Skipf("%s not available", shell)
	}
}

func waitExit(t *testing.T, m *Manager, pid bridge.ProcessID) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	code, err := m.Wait(ctx, pid)
	require.NoError(t, err)
	return code
}

func TestExecExitCode(t *testing.T) {
	requireShell(t)
	m := NewManager(nil)

	pid, err := m.Exec(context.Background(), bridge.ExecOptions{Path: shell, Args: []string{"-c", "exit 3"}})
	require.NoError(t, err)
	assert.Positive(t, int(pid))

	assert.Equal(t, 3, waitExit(t, m, pid))
	require.NoError(t, m.Shutdown(context.Background()))
	assert.Empty(t, m.List())
}

func TestExecRejectsBadExecutables(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(plain, []byte("hello"), 0o644))

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"missing", filepath.Join(dir, "nope"), bridge.ErrExecutableNotFound},
		{"not executable", plain, bridge.ErrInvalidExecutable},
		{"directory", dir, bridge.ErrInvalidExecutable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager(nil).Exec(context.Background(), bridge.ExecOptions{Path: tt.path})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExecEnvironment(t *testing.T) {
	requireShell(t)
	m := NewManager(nil)
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	pid, err := m.Exec(context.Background(), bridge.ExecOptions{
		Path:   shell,
		Args:   []string{"-c", `printf '%s %s' "$TERM" "$LOGNAME"`},
		Env:    []string{"TERM=vt100", "LOGNAME=alice"},
		Stdout: w,
	})
	require.NoError(t, err)
	w.Close()

	out, err := bufio.NewReader(r).ReadString('\n')
	assert.Equal(t, "vt100 alice", out)
	assert.Error(t, err)
	assert.Equal(t, 0, waitExit(t, m, pid))
}

func TestSendSignal(t *testing.T) {
	requireShell(t)

	tests := []struct {
		name string
		send func(m *Manager, pid bridge.ProcessID) error
	}{
		{"process", func(m *Manager, pid bridge.ProcessID) error {
			return m.SendSignal(context.Background(), pid, bridge.SignalTerminate)
		}},
		{"group", func(m *Manager, pid bridge.ProcessID) error {
			return m.SendGroupSignal(context.Background(), bridge.GroupID(pid), bridge.SignalHangup)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(nil)
			pid, err := m.Exec(context.Background(), bridge.ExecOptions{Path: shell, Args: []string{"-c", "sleep 30"}})
			require.NoError(t, err)

			require.NoError(t, tt.send(m, pid))
			assert.Equal(t, -1, waitExit(t, m, pid), "killed by signal")
		})
	}
}

func TestSignalErrors(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	assert.ErrorIs(t, m.SendSignal(ctx, 0, bridge.SignalHangup), ErrProcessNotFound)
	assert.ErrorIs(t, m.SendGroupSignal(ctx, -5, bridge.SignalWinch), ErrProcessNotFound)
	assert.ErrorIs(t, m.SendSignal(ctx, bridge.ProcessID(os.Getpid()), bridge.Signal(99)), ErrUnsupportedSignal)
	assert.ErrorIs(t, m.SetProcessTerminalID(ctx, 999999, 1), ErrProcessNotFound)
	_, err := m.Wait(ctx, 999999)
	assert.ErrorIs(t, err, ErrProcessNotFound)
}

func TestSetProcessTerminalID(t *testing.T) {
	requireShell(t)
	m := NewManager(nil)
	pid, err := m.Exec(context.Background(), bridge.ExecOptions{Path: shell, Args: []string{"-c", "sleep 30"}})
	require.NoError(t, err)
	defer func() {
		_ = m.SendSignal(context.Background(), pid, bridge.SignalKill)
		waitExit(t, m, pid)
	}()

	require.NoError(t, m.SetProcessTerminalID(context.Background(), pid, 12))
	list := m.List()
	require.Len(t, list, 1)
	assert.Equal(t, int32(12), list[0].Terminal)
	assert.Equal(t, shell, list[0].Path)
}

func TestExitedProcessIsRetained(t *testing.T) {
	requireShell(t)
	m := NewManager(nil)
	m.retention = 200 * time.Millisecond

	pid, err := m.Exec(context.Background(), bridge.ExecOptions{Path: shell, Args: []string{"-c", "exit 4"}})
	require.NoError(t, err)
	require.NoError(t, m.Shutdown(context.Background()))

	assert.NoError(t, m.SetProcessTerminalID(context.Background(), pid, 7), "linking a shell that already exited succeeds")
	assert.Equal(t, 4, waitExit(t, m, pid))
	assert.Empty(t, m.List(), "exited processes are not listed")

	assert.Eventually(t, func() bool {
		_, err := m.Wait(context.Background(), pid)
		return errors.Is(err, ErrProcessNotFound)
	}, 5*time.Second, 20*time.Millisecond)
}

func TestExecOnTerminalBecomesForeground(t *testing.T) {
	requireShell(t)
	master, slave, err := pty.Open()
	if err != nil {
		t.Skipf("pty not available: %v", err)
	}
	defer master.Close()

	m := NewManager(nil)
	pid, err := m.Exec(context.Background(), bridge.ExecOptions{
		Path:   shell,
		Args:   []string{"-c", "tty; sleep 30"},
		Stdin:  slave,
		Stdout: slave,
		Stderr: slave,
	})
	slave.Close()
	require.NoError(t, err)
	defer func() {
		_ = m.SendGroupSignal(context.Background(), bridge.GroupID(pid), bridge.SignalHangup)
		waitExit(t, m, pid)
	}()

	line, err := bufio.NewReader(master).ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(line), "/dev/"), "shell should own a terminal, got %q", line)

	pgid, err := unix.IoctlGetInt(int(master.Fd()), unix.TIOCGPGRP)
	require.NoError(t, err)
	assert.Equal(t, int(pid), pgid)
}
