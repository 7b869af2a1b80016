package cpu

import (
	"iter"
)

const (
	MEMORY_WORDS = 1 << 16 // Size of the address space in words.
)

// Memory is the flat word addressed store. Every uint16 is a valid
// address, so address arithmetic wraps and indexing never faults.
type Memory [MEMORY_WORDS]uint16

// Read returns the word at addr.
func (mem *Memory) Read(addr uint16) uint16 {
	return mem[addr]
}

// Write stores value at addr.
func (mem *Memory) Write(addr uint16, value uint16) {
	mem[addr] = value
}

// Copy copies count words from src to dst, lowest address first.
// An overlapping destination above the source sees already copied words.
func (mem *Memory) Copy(src, dst, count uint16) {
	for ; count != 0; count-- {
		mem[dst] = mem[src]
		dst++
		src++
	}
}

// Load stores words at consecutive addresses starting at base.
func (mem *Memory) Load(base uint16, words ...uint16) {
	for n, word := range words {
		mem[base+uint16(n)] = word
	}
}

// Reset zeros the memory.
func (mem *Memory) Reset() {
	clear(mem[:])
}

// Search yields every address holding value, highest address first.
// Address 0 is not searched.
func (mem *Memory) Search(value uint16) iter.Seq[uint16] {
	return func(yield func(addr uint16) bool) {
		for addr := len(mem) - 1; addr != 0; addr-- {
			if mem[addr] == value {
				if !yield(uint16(addr)) {
					return
				}
			}
		}
	}
}
