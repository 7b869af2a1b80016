package cpu

// The stack lives in memory at SP and grows upward. Neither push nor pop
// is checked; SP wraps around the address space.

// Push writes value at SP, then increments SP.
func (cpu *Cpu) Push(value uint16) {
	cpu.Memory.Write(cpu.Sp, value)
	cpu.Sp++
}

// Pop decrements SP, then reads the value at SP.
func (cpu *Cpu) Pop() (value uint16) {
	cpu.Sp--
	return cpu.Memory.Read(cpu.Sp)
}

// Peek returns the value depth words below the top of the stack,
// without popping it.
func (cpu *Cpu) Peek(depth uint16) (value uint16) {
	return cpu.Memory.Read(cpu.Sp - 1 - depth)
}
