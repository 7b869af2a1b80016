package cpu

import (
	"iter"
)

// Line is one assembled source line.
type Line struct {
	LineNo int      // Source line number.
	Addr   uint16   // Address of the first instruction word.
	Words  []string // Source words: address, mnemonic, operands.
	Code   Code     // Assembled instruction.
}

// Program is an assembled listing.
type Program struct {
	Lines []Line
}

type Debug struct {
	*Line
	Index int // Word index within the instruction.
}

// Debug returns the line that assembled the word at addr.
// The Line is nil if no line did.
func (prog *Program) Debug(addr uint16) (dbg Debug) {
	// Later lines overwrite earlier ones in memory.
	for n := len(prog.Lines) - 1; n >= 0; n-- {
		line := &prog.Lines[n]
		if addr == line.Addr || addr == line.Addr+1 {
			dbg = Debug{
				Line:  line,
				Index: int(addr - line.Addr),
			}
			break
		}
	}

	return
}

// Codes yields each assembled instruction and its address, in source order.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(addr uint16, code Code) bool) {
		for _, line := range prog.Lines {
			if !yield(line.Addr, line.Code) {
				return
			}
		}
	}
}

// Load writes the program's instructions into memory.
func (prog *Program) Load(mem *Memory) {
	for addr, code := range prog.Codes() {
		word0, word1 := code.Encode()
		mem.Load(addr, word0, word1)
	}
}

// Append adds the lines of another program. They load after, and so
// overwrite, the existing lines.
func (prog *Program) Append(other *Program) {
	prog.Lines = append(prog.Lines, other.Lines...)
}
