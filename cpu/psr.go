package cpu

// Psr is the packed program status register.
type Psr uint16

// PSR flag bits.
const (
	PSR_C = Psr(1 << 0) // Overflow trap enable.
	PSR_V = Psr(1 << 1) // Overflow.
	PSR_E = Psr(1 << 2) // Error.
	PSR_H = Psr(1 << 3) // Halt.
	PSR_M = Psr(1 << 4) // Reserved.
	PSR_R = Psr(1 << 5) // Reserved.
	PSR_I = Psr(1 << 6) // Reserved.

	PSR_MASK = PSR_C | PSR_V | PSR_E | PSR_H | PSR_M | PSR_R | PSR_I
)

// MakePsr packs a register word. Bits outside the seven flags are dropped.
func MakePsr(word uint16) Psr {
	return Psr(word) & PSR_MASK
}

var psrFlags = [...]struct {
	flag Psr
	name byte
}{
	{PSR_C, 'C'},
	{PSR_V, 'V'},
	{PSR_E, 'E'},
	{PSR_H, 'H'},
	{PSR_M, 'M'},
	{PSR_R, 'R'},
	{PSR_I, 'I'},
}

// Has returns true if all bits of flag are set.
func (psr Psr) Has(flag Psr) bool {
	return psr&flag == flag
}

// With returns the PSR with flag set or cleared.
func (psr Psr) With(flag Psr, value bool) Psr {
	if value {
		return psr | flag
	}
	return psr &^ flag
}

// String returns the flags as "CVEHMRI", with '-' for each clear flag.
func (psr Psr) String() string {
	var text [len(psrFlags)]byte
	for n, f := range psrFlags {
		text[n] = '-'
		if psr.Has(f.flag) {
			text[n] = f.name
		}
	}
	return string(text[:])
}
