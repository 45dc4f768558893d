// Package termmode models terminal modes as negotiated by a remote client and
// as stored by the local terminal subsystem.
//
// Two representations are involved:
//   - Table: the transport-side mode table, keyed by vendor-neutral opcodes
//     (the RFC 4254 encoded terminal mode numbers). A key that is present is an
//     explicit client request; a key that is absent means "keep the default".
//   - Attributes: the device-side record made of four independent containers:
//     input modes, output modes, local modes and special characters.
//
// Translate applies a Table onto an Attributes record that already holds the
// device defaults. Every opcode targets at most one container; the mapping is
// fixed at compile time by the lookup tables in translate.go.
//
// Example Usage:
//
//	attrs := termmode.NewAttributes()
//	termmode.Translate(termmode.Table{termmode.ECHO: 0, termmode.VINTR: 3}, attrs)
//	// attrs.Local no longer holds LocalECHO, attrs.Chars[CharINTR] == 0x03
package termmode
