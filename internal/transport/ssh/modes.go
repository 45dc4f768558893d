package ssh

import (
	"encoding/binary"
	"strings"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/domain/termmode"
)

// firstInvalidOpcode is the lowest opcode whose argument encoding is undefined
const firstInvalidOpcode = 160

// DecodeModes parses the encoded terminal modes of a pty-req. Parsing stops at
// TTY_OP_END, at an opcode it cannot size, or at a truncated argument.
func DecodeModes(b []byte) termmode.Table {
	table := termmode.Table{}
	for len(b) > 0 {
		op := termmode.Mode(b[0])
		if op == termmode.TTY_OP_END || op >= firstInvalidOpcode || len(b) < 5 {
			break
		}
		table[op] = binary.BigEndian.Uint32(b[1:5])
		b = b[5:]
	}
	return table
}

// puttyDefaults is the line discipline PuTTY expects from the server. It
// takes precedence over whatever PuTTY sends for the same modes.
var puttyDefaults = termmode.Table{
	termmode.ECHO:  1,
	termmode.ICRNL: 1,
	termmode.ONLCR: 1,
}

// ResolveModes returns the table a session is provisioned with. Clients
// identifying as PuTTY always get puttyDefaults; their other modes are kept.
func ResolveModes(clientVersion string, requested termmode.Table) termmode.Table {
	if !isPutty(clientVersion) {
		return requested
	}

	out := puttyDefaults.Clone()
	for k, v := range requested {
		if _, forced := out[k]; !forced {
			out[k] = v
		}
	}
	return out
}

func isPutty(clientVersion string) bool {
	return strings.Contains(strings.ToLower(clientVersion), "putty")
}
