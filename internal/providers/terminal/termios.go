//go:build linux || darwin

package terminal

import (
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/domain/termmode"
)

func readAttributes(fd int) (*termmode.Attributes, error) {
	t, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return nil, err
	}

	attrs := termmode.NewAttributes()
	collect(attrs.Input, inputFlags, t.Iflag)
	collect(attrs.Output, outputFlags, t.Oflag)
	collect(attrs.Local, localFlags, t.Lflag)
	for c, idx := range charIndex {
		attrs.Chars[c] = t.Cc[idx]
	}
	return attrs, nil
}

func writeAttributes(fd int, attrs *termmode.Attributes) error {
	t, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return err
	}

	t.Iflag = apply(attrs.Input, inputFlags, t.Iflag)
	t.Oflag = apply(attrs.Output, outputFlags, t.Oflag)
	t.Lflag = apply(attrs.Local, localFlags, t.Lflag)
	for c, v := range attrs.Chars {
		if idx, ok := charIndex[c]; ok {
			t.Cc[idx] = v
		}
	}

	return unix.IoctlSetTermios(fd, ioctlSetTermios, t)
}

func foregroundGroup(fd int) (int, error) {
	return unix.IoctlGetInt(fd, unix.TIOCGPGRP)
}

func collect[T comparable](set termmode.Set[T], table map[T]tcflag, flags tcflag) {
	for mode, bit := range table {
		if flags&bit != 0 {
			set.Add(mode)
		}
	}
}

// apply sets the bits of the modes in set and clears the other modelled bits
func apply[T comparable](set termmode.Set[T], table map[T]tcflag, flags tcflag) tcflag {
	for mode, bit := range table {
		if set.Has(mode) {
			flags |= bit
		} else {
			flags &^= bit
		}
	}
	return flags
}
