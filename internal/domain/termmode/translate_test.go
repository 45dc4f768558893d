package termmode

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deviceDefaults() *Attributes {
	return &Attributes{
		Input:  NewSet(InputICRNL, InputIXON, InputIMAXBEL),
		Output: NewSet(OutputOPOST, OutputONLCR),
		Local:  NewSet(LocalISIG, LocalICANON, LocalECHO),
		Chars: map[SpecialChar]byte{
			CharINTR:  0x03,
			CharQUIT:  0x1c,
			CharERASE: 0x7f,
			CharKILL:  0x15,
			CharEOF:   0x04,
		},
	}
}

func TestTranslateFlags(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		check func(t *testing.T, a *Attributes)
	}{
		{
			name:  "non-zero enables input flag",
			table: Table{INLCR: 1},
			check: func(t *testing.T, a *Attributes) {
				assert.True(t, a.Input.Has(InputINLCR))
			},
		},
		{
			name:  "zero disables input flag",
			table: Table{ICRNL: 0},
			check: func(t *testing.T, a *Attributes) {
				assert.False(t, a.Input.Has(InputICRNL))
			},
		},
		{
			name:  "any non-zero value counts as enabled",
			table: Table{OLCUC: 255},
			check: func(t *testing.T, a *Attributes) {
				assert.True(t, a.Output.Has(OutputOLCUC))
			},
		},
		{
			name:  "zero disables output flag",
			table: Table{ONLCR: 0},
			check: func(t *testing.T, a *Attributes) {
				assert.False(t, a.Output.Has(OutputONLCR))
				assert.True(t, a.Output.Has(OutputOPOST))
			},
		},
		{
			name:  "echo off",
			table: Table{ECHO: 0},
			check: func(t *testing.T, a *Attributes) {
				assert.False(t, a.Local.Has(LocalECHO))
				assert.True(t, a.Local.Has(LocalICANON))
			},
		},
		{
			name:  "tostop on",
			table: Table{TOSTOP: 1},
			check: func(t *testing.T, a *Attributes) {
				assert.True(t, a.Local.Has(LocalTOSTOP))
			},
		},
		{
			name:  "unmapped opcodes are ignored",
			table: Table{IEXTEN: 1, CS8: 1, TTY_OP_ISPEED: 38400, Mode(200): 1},
			check: func(t *testing.T, a *Attributes) {
				assert.True(t, a.Equal(deviceDefaults()))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := deviceDefaults()
			Translate(tt.table, attrs)
			tt.check(t, attrs)
		})
	}
}

func TestTranslateSpecialCharacterMasking(t *testing.T) {
	tests := []struct {
		name  string
		value uint32
		want  byte
	}{
		{name: "in range", value: 3, want: 0x03},
		{name: "out of byte range keeps low bits", value: 259, want: 0x03},
		{name: "high bits only", value: 0x100, want: 0x00},
		{name: "full byte", value: 0xff, want: 0xff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := NewAttributes()
			Translate(Table{VINTR: tt.value}, attrs)
			require.Contains(t, attrs.Chars, CharINTR)
			assert.Equal(t, tt.want, attrs.Chars[CharINTR])
		})
	}
}

func TestTranslateAbsentKeysUnchanged(t *testing.T) {
	attrs := deviceDefaults()
	Translate(Table{VSUSP: 0x1a, IXANY: 1}, attrs)

	want := deviceDefaults()
	want.Chars[CharSUSP] = 0x1a
	want.Input.Add(InputIXANY)
	assert.True(t, attrs.Equal(want))

	// No character slot is invented from the table
	_, ok := attrs.Chars[CharSTART]
	assert.False(t, ok)
}

func TestTranslateNilContainers(t *testing.T) {
	attrs := &Attributes{}
	Translate(Table{ECHO: 1, VEOF: 4, OPOST: 1, IXON: 1}, attrs)

	assert.True(t, attrs.Local.Has(LocalECHO))
	assert.True(t, attrs.Output.Has(OutputOPOST))
	assert.True(t, attrs.Input.Has(InputIXON))
	assert.Equal(t, byte(4), attrs.Chars[CharEOF])
}

func TestOpcodeTargetsSingleContainer(t *testing.T) {
	for i := 0; i < 256; i++ {
		mode := Mode(i)
		hits := 0
		if _, ok := inputModes[mode]; ok {
			hits++
		}
		if _, ok := outputModes[mode]; ok {
			hits++
		}
		if _, ok := localModes[mode]; ok {
			hits++
		}
		if _, ok := specialChars[mode]; ok {
			hits++
		}
		assert.LessOrEqual(t, hits, 1, "opcode %s targets %d containers", mode, hits)
		assert.Equal(t, hits == 1, Translated(mode), "opcode %s", mode)
	}

	assert.Len(t, inputModes, 8)
	assert.Len(t, outputModes, 6)
	assert.Len(t, localModes, 5)
	assert.Len(t, specialChars, 9)
}

var flagModes = []Mode{
	INLCR, IGNCR, ICRNL, IUCLC, IXON, IXANY, IXOFF, IMAXBEL,
	OPOST, OLCUC, ONLCR, OCRNL, ONOCR, ONLRET,
	ISIG, ICANON, XCASE, ECHO, TOSTOP,
}

func randomFlagTable(r *rand.Rand) Table {
	table := Table{}
	for _, m := range flagModes {
		switch r.Intn(3) {
		case 0:
			table[m] = 0
		case 1:
			table[m] = uint32(r.Intn(1000) + 1)
		}
	}
	return table
}

func negate(table Table) Table {
	out := make(Table, len(table))
	for k, v := range table {
		if v == 0 {
			out[k] = 1
		} else {
			out[k] = 0
		}
	}
	return out
}

func TestTranslateToggleProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		table := randomFlagTable(r)

		once := deviceDefaults()
		Translate(table, once)

		twice := once.Clone()
		Translate(table, twice)
		assert.True(t, once.Equal(twice), "translation must be idempotent")

		negated := once.Clone()
		Translate(negate(table), negated)
		for mode := range table {
			assert.NotEqual(t, hasFlag(once, mode), hasFlag(negated, mode), "opcode %s must flip", mode)
		}
		for _, mode := range flagModes {
			if _, ok := table[mode]; !ok {
				assert.Equal(t, hasFlag(deviceDefaults(), mode), hasFlag(negated, mode), "opcode %s must be untouched", mode)
			}
		}

		restored := negated.Clone()
		Translate(table, restored)
		assert.True(t, once.Equal(restored))
	}
}

func hasFlag(a *Attributes, mode Mode) bool {
	if m, ok := inputModes[mode]; ok {
		return a.Input.Has(m)
	}
	if m, ok := outputModes[mode]; ok {
		return a.Output.Has(m)
	}
	if m, ok := localModes[mode]; ok {
		return a.Local.Has(m)
	}
	return false
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "VINTR", VINTR.String())
	assert.Equal(t, "ECHO", ECHO.String())
	assert.Equal(t, "Mode(200)", Mode(200).String())
}

func TestTableEnabled(t *testing.T) {
	table := Table{ECHO: 1, ICANON: 0}
	assert.True(t, table.Enabled(ECHO))
	assert.False(t, table.Enabled(ICANON))
	assert.False(t, table.Enabled(ISIG))

	clone := table.Clone()
	clone[ISIG] = 1
	assert.NotContains(t, table, ISIG)
}
