package termmode

// InputMode is a device input flag
type InputMode uint8

const (
	InputINLCR InputMode = iota + 1
	InputIGNCR
	InputICRNL
	InputIUCLC
	InputIXON
	InputIXANY
	InputIXOFF
	InputIMAXBEL
)

// OutputMode is a device output flag
type OutputMode uint8

const (
	OutputOPOST OutputMode = iota + 1
	OutputOLCUC
	OutputONLCR
	OutputOCRNL
	OutputONOCR
	OutputONLRET
)

// LocalMode is a device local flag
type LocalMode uint8

const (
	LocalISIG LocalMode = iota + 1
	LocalICANON
	LocalXCASE
	LocalECHO
	LocalTOSTOP
)

// SpecialChar is a special character slot
type SpecialChar uint8

const (
	CharINTR SpecialChar = iota + 1
	CharQUIT
	CharERASE
	CharKILL
	CharEOF
	CharEOL
	CharSUSP
	CharSTOP
	CharSTART
)

// Set is an unordered set of enum values
type Set[T comparable] map[T]struct{}

// NewSet builds a set holding the given values
func NewSet[T comparable](values ...T) Set[T] {
	s := make(Set[T], len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Add inserts v
func (s Set[T]) Add(v T) { s[v] = struct{}{} }

// Remove deletes v
func (s Set[T]) Remove(v T) { delete(s, v) }

// Has reports whether v is a member
func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Clone returns a copy of the set
func (s Set[T]) Clone() Set[T] {
	out := make(Set[T], len(s))
	for v := range s {
		out[v] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same members
func (s Set[T]) Equal(other Set[T]) bool {
	if len(s) != len(other) {
		return false
	}
	for v := range s {
		if !other.Has(v) {
			return false
		}
	}
	return true
}

// Attributes is the mutable attribute record of a terminal device.
type Attributes struct {
	Input  Set[InputMode]
	Output Set[OutputMode]
	Local  Set[LocalMode]
	Chars  map[SpecialChar]byte
}

// NewAttributes returns an empty attribute record with all containers allocated
func NewAttributes() *Attributes {
	return &Attributes{
		Input:  NewSet[InputMode](),
		Output: NewSet[OutputMode](),
		Local:  NewSet[LocalMode](),
		Chars:  make(map[SpecialChar]byte),
	}
}

// Clone returns a deep copy of the record
func (a *Attributes) Clone() *Attributes {
	chars := make(map[SpecialChar]byte, len(a.Chars))
	for k, v := range a.Chars {
		chars[k] = v
	}
	return &Attributes{
		Input:  a.Input.Clone(),
		Output: a.Output.Clone(),
		Local:  a.Local.Clone(),
		Chars:  chars,
	}
}

// Equal reports whether two records hold the same flags and characters
func (a *Attributes) Equal(other *Attributes) bool {
	if !a.Input.Equal(other.Input) || !a.Output.Equal(other.Output) || !a.Local.Equal(other.Local) {
		return false
	}
	if len(a.Chars) != len(other.Chars) {
		return false
	}
	for k, v := range a.Chars {
		if ov, ok := other.Chars[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// ensure allocates any nil container so callers can mutate safely
func (a *Attributes) ensure() {
	if a.Input == nil {
		a.Input = NewSet[InputMode]()
	}
	if a.Output == nil {
		a.Output = NewSet[OutputMode]()
	}
	if a.Local == nil {
		a.Local = NewSet[LocalMode]()
	}
	if a.Chars == nil {
		a.Chars = make(map[SpecialChar]byte)
	}
}
