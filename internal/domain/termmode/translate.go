package termmode

// Each opcode appears in exactly one of the tables below.

var inputModes = map[Mode]InputMode{
	INLCR:   InputINLCR,
	IGNCR:   InputIGNCR,
	ICRNL:   InputICRNL,
	IUCLC:   InputIUCLC,
	IXON:    InputIXON,
	IXANY:   InputIXANY,
	IXOFF:   InputIXOFF,
	IMAXBEL: InputIMAXBEL,
}

var outputModes = map[Mode]OutputMode{
	OPOST:  OutputOPOST,
	OLCUC:  OutputOLCUC,
	ONLCR:  OutputONLCR,
	OCRNL:  OutputOCRNL,
	ONOCR:  OutputONOCR,
	ONLRET: OutputONLRET,
}

var localModes = map[Mode]LocalMode{
	ISIG:   LocalISIG,
	ICANON: LocalICANON,
	XCASE:  LocalXCASE,
	ECHO:   LocalECHO,
	TOSTOP: LocalTOSTOP,
}

var specialChars = map[Mode]SpecialChar{
	VINTR:  CharINTR,
	VQUIT:  CharQUIT,
	VERASE: CharERASE,
	VKILL:  CharKILL,
	VEOF:   CharEOF,
	VEOL:   CharEOL,
	VSUSP:  CharSUSP,
	VSTOP:  CharSTOP,
	VSTART: CharSTART,
}

// Translate applies the mode table onto attrs, which must already hold the
// device defaults. Flags with a non-zero value are enabled and flags with a
// zero value are disabled. Special characters keep the low 8 bits of their
// value. Opcodes absent from the table, and opcodes without a target
// container, leave attrs untouched.
func Translate(table Table, attrs *Attributes) {
	attrs.ensure()

	for mode, value := range table {
		if m, ok := inputModes[mode]; ok {
			toggle(attrs.Input, m, value)
			continue
		}
		if m, ok := outputModes[mode]; ok {
			toggle(attrs.Output, m, value)
			continue
		}
		if m, ok := localModes[mode]; ok {
			toggle(attrs.Local, m, value)
			continue
		}
		if c, ok := specialChars[mode]; ok {
			attrs.Chars[c] = byte(value & 0xff)
		}
	}
}

func toggle[T comparable](set Set[T], v T, value uint32) {
	if value != 0 {
		set.Add(v)
	} else {
		set.Remove(v)
	}
}

// Translated reports whether the opcode targets one of the attribute containers.
func Translated(mode Mode) bool {
	if _, ok := inputModes[mode]; ok {
		return true
	}
	if _, ok := outputModes[mode]; ok {
		return true
	}
	if _, ok := localModes[mode]; ok {
		return true
	}
	_, ok := specialChars[mode]
	return ok
}
