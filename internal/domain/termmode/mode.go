package termmode

import "fmt"

// Mode is a vendor-neutral terminal mode opcode.
//
// Values match the encoded terminal modes of RFC 4254 section 8 so a
// transport can hand its decoded table over without remapping.
type Mode uint8

// Special character opcodes
const (
	VINTR    Mode = 1
	VQUIT    Mode = 2
	VERASE   Mode = 3
	VKILL    Mode = 4
	VEOF     Mode = 5
	VEOL     Mode = 6
	VEOL2    Mode = 7
	VSTART   Mode = 8
	VSTOP    Mode = 9
	VSUSP    Mode = 10
	VDSUSP   Mode = 11
	VREPRINT Mode = 12
	VWERASE  Mode = 13
	VLNEXT   Mode = 14
	VFLUSH   Mode = 15
	VSWTCH   Mode = 16
	VSTATUS  Mode = 17
	VDISCARD Mode = 18
)

// Input mode opcodes
const (
	IGNPAR  Mode = 30
	PARMRK  Mode = 31
	INPCK   Mode = 32
	ISTRIP  Mode = 33
	INLCR   Mode = 34
	IGNCR   Mode = 35
	ICRNL   Mode = 36
	IUCLC   Mode = 37
	IXON    Mode = 38
	IXANY   Mode = 39
	IXOFF   Mode = 40
	IMAXBEL Mode = 41
)

// Local mode opcodes
const (
	ISIG    Mode = 50
	ICANON  Mode = 51
	XCASE   Mode = 52
	ECHO    Mode = 53
	ECHOE   Mode = 54
	ECHOK   Mode = 55
	ECHONL  Mode = 56
	NOFLSH  Mode = 57
	TOSTOP  Mode = 58
	IEXTEN  Mode = 59
	ECHOCTL Mode = 60
	ECHOKE  Mode = 61
	PENDIN  Mode = 62
)

// Output mode opcodes
const (
	OPOST  Mode = 70
	OLCUC  Mode = 71
	ONLCR  Mode = 72
	OCRNL  Mode = 73
	ONOCR  Mode = 74
	ONLRET Mode = 75
)

// Control mode and speed opcodes
const (
	CS7           Mode = 90
	CS8           Mode = 91
	PARENB        Mode = 92
	PARODD        Mode = 93
	TTY_OP_ISPEED Mode = 128
	TTY_OP_OSPEED Mode = 129
)

// TTY_OP_END terminates an encoded mode list.
const TTY_OP_END Mode = 0

var modeNames = map[Mode]string{
	VINTR: "VINTR", VQUIT: "VQUIT", VERASE: "VERASE", VKILL: "VKILL",
	VEOF: "VEOF", VEOL: "VEOL", VEOL2: "VEOL2", VSTART: "VSTART",
	VSTOP: "VSTOP", VSUSP: "VSUSP", VDSUSP: "VDSUSP", VREPRINT: "VREPRINT",
	VWERASE: "VWERASE", VLNEXT: "VLNEXT", VFLUSH: "VFLUSH", VSWTCH: "VSWTCH",
	VSTATUS: "VSTATUS", VDISCARD: "VDISCARD",
	IGNPAR: "IGNPAR", PARMRK: "PARMRK", INPCK: "INPCK", ISTRIP: "ISTRIP",
	INLCR: "INLCR", IGNCR: "IGNCR", ICRNL: "ICRNL", IUCLC: "IUCLC",
	IXON: "IXON", IXANY: "IXANY", IXOFF: "IXOFF", IMAXBEL: "IMAXBEL",
	ISIG: "ISIG", ICANON: "ICANON", XCASE: "XCASE", ECHO: "ECHO",
	ECHOE: "ECHOE", ECHOK: "ECHOK", ECHONL: "ECHONL", NOFLSH: "NOFLSH",
	TOSTOP: "TOSTOP", IEXTEN: "IEXTEN", ECHOCTL: "ECHOCTL", ECHOKE: "ECHOKE",
	PENDIN: "PENDIN",
	OPOST: "OPOST", OLCUC: "OLCUC", ONLCR: "ONLCR", OCRNL: "OCRNL",
	ONOCR: "ONOCR", ONLRET: "ONLRET",
	CS7: "CS7", CS8: "CS8", PARENB: "PARENB", PARODD: "PARODD",
	TTY_OP_ISPEED: "TTY_OP_ISPEED", TTY_OP_OSPEED: "TTY_OP_OSPEED",
}

// String returns the opcode name
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// Table is a negotiated terminal mode table. It is treated as immutable once
// received from the transport.
type Table map[Mode]uint32

// Enabled reports whether the mode is present with a non-zero value.
func (t Table) Enabled(m Mode) bool {
	v, ok := t[m]
	return ok && v != 0
}

// Clone returns a copy of the table
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
