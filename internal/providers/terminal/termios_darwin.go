package terminal

import (
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/domain/termmode"
)

type tcflag = uint64

const (
	ioctlGetTermios = unix.TIOCGETA
	ioctlSetTermios = unix.TIOCSETA
)

// Darwin has no IUCLC, OLCUC or XCASE; those modes are accepted and ignored.

var inputFlags = map[termmode.InputMode]tcflag{
	termmode.InputINLCR:   unix.INLCR,
	termmode.InputIGNCR:   unix.IGNCR,
	termmode.InputICRNL:   unix.ICRNL,
	termmode.InputIXON:    unix.IXON,
	termmode.InputIXANY:   unix.IXANY,
	termmode.InputIXOFF:   unix.IXOFF,
	termmode.InputIMAXBEL: unix.IMAXBEL,
}

var outputFlags = map[termmode.OutputMode]tcflag{
	termmode.OutputOPOST:  unix.OPOST,
	termmode.OutputONLCR:  unix.ONLCR,
	termmode.OutputOCRNL:  unix.OCRNL,
	termmode.OutputONOCR:  unix.ONOCR,
	termmode.OutputONLRET: unix.ONLRET,
}

var localFlags = map[termmode.LocalMode]tcflag{
	termmode.LocalISIG:   unix.ISIG,
	termmode.LocalICANON: unix.ICANON,
	termmode.LocalECHO:   unix.ECHO,
	termmode.LocalTOSTOP: unix.TOSTOP,
}

var charIndex = map[termmode.SpecialChar]int{
	termmode.CharINTR:  unix.VINTR,
	termmode.CharQUIT:  unix.VQUIT,
	termmode.CharERASE: unix.VERASE,
	termmode.CharKILL:  unix.VKILL,
	termmode.CharEOF:   unix.VEOF,
	termmode.CharEOL:   unix.VEOL,
	termmode.CharSUSP:  unix.VSUSP,
	termmode.CharSTOP:  unix.VSTOP,
	termmode.CharSTART: unix.VSTART,
}
