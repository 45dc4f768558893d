// Package terminal is the local Terminal Service: it allocates host
// pseudo-terminals and exposes them to the session bridge by numeric id.
//
// Each terminal is a pty pair opened with creack/pty. The service keeps the
// controlling side for attribute, size and foreground-group queries and hands
// the subordinate side out exactly once, to the process launcher, so the
// controlling side reports end of stream as soon as the shell and its children
// are gone.
//
// Terminal attributes are read and written through termios. Only the flags
// modelled in package termmode are touched; every other termios bit keeps the
// value the kernel gave the new pty.
//
// Example Usage:
//
//	svc := terminal.NewService(logger)
//	id, _ := svc.CreateTerminal(ctx)
//	attrs, _ := svc.GetTerminalAttributes(ctx, id)
//	attrs.Local.Remove(termmode.LocalECHO)
//	_ = svc.SetTerminalAttributes(ctx, id, attrs)
//	_ = svc.SetTerminalSize(ctx, id, 132, 50)
//	defer svc.ReleaseTerminal(ctx, id)
package terminal
