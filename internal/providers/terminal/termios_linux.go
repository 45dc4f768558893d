package terminal

import (
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/domain/termmode"
)

type tcflag = uint32

const (
	ioctlGetTermios = unix.TCGETS
	ioctlSetTermios = unix.TCSETS
)

var inputFlags = map[termmode.InputMode]tcflag{
	termmode.InputINLCR:   unix.INLCR,
	termmode.InputIGNCR:   unix.IGNCR,
	termmode.InputICRNL:   unix.ICRNL,
	termmode.InputIUCLC:   unix.IUCLC,
	termmode.InputIXON:    unix.IXON,
	termmode.InputIXANY:   unix.IXANY,
	termmode.InputIXOFF:   unix.IXOFF,
	termmode.InputIMAXBEL: unix.IMAXBEL,
}

var outputFlags = map[termmode.OutputMode]tcflag{
	termmode.OutputOPOST:  unix.OPOST,
	termmode.OutputOLCUC:  unix.OLCUC,
	termmode.OutputONLCR:  unix.ONLCR,
	termmode.OutputOCRNL:  unix.OCRNL,
	termmode.OutputONOCR:  unix.ONOCR,
	termmode.OutputONLRET: unix.ONLRET,
}

var localFlags = map[termmode.LocalMode]tcflag{
	termmode.LocalISIG:   unix.ISIG,
	termmode.LocalICANON: unix.ICANON,
	termmode.LocalXCASE:  unix.XCASE,
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
