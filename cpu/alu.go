package cpu

import (
	"math"
)

// The arithmetic operations pop signed 16-bit operands and compute the
// result in 32 bits. A result outside the 16-bit range sets V, copies C
// into H, and pushes the operands back in their original order instead
// of the result. A result in range is pushed and clears V.

// result pushes value, or handles the overflow of value.
func (cpu *Cpu) result(value int32, operands ...int16) {
	if value >= math.MinInt16 && value <= math.MaxInt16 {
		cpu.Push(uint16(int16(value)))
		cpu.SetFlag(PSR_V, false)
		return
	}

	cpu.SetFlag(PSR_V, true)
	cpu.SetFlag(PSR_H, cpu.Flag(PSR_C))

	for _, operand := range operands {
		cpu.Push(uint16(operand))
	}
}

// binary pops b, then a, and pushes op(a, b).
func (cpu *Cpu) binary(op func(a, b int32) int32) {
	b := int16(cpu.Pop())
	a := int16(cpu.Pop())

	cpu.result(op(int32(a), int32(b)), a, b)
}

// divide is binary, failing on a zero divisor. The operands are consumed.
func (cpu *Cpu) divide(op func(a, b int32) int32) (err error) {
	b := int16(cpu.Pop())
	a := int16(cpu.Pop())

	if b == 0 {
		err = ErrDivideByZero
		return
	}

	cpu.result(op(int32(a), int32(b)), a, b)
	return
}

// Add pops b and a, and pushes a + b.
func (cpu *Cpu) Add() {
	cpu.binary(func(a, b int32) int32 { return a + b })
}

// Sub pops b and a, and pushes a - b.
func (cpu *Cpu) Sub() {
	cpu.binary(func(a, b int32) int32 { return a - b })
}

// Mul pops b and a, and pushes a * b.
func (cpu *Cpu) Mul() {
	cpu.binary(func(a, b int32) int32 { return a * b })
}

// Div pops b and a, and pushes a / b, truncated toward zero.
func (cpu *Cpu) Div() error {
	return cpu.divide(func(a, b int32) int32 { return a / b })
}

// Mod pops b and a, and pushes the remainder of a / b.
func (cpu *Cpu) Mod() error {
	return cpu.divide(func(a, b int32) int32 { return a % b })
}

// Neg pops a, and pushes -a.
func (cpu *Cpu) Neg() {
	a := int16(cpu.Pop())
	cpu.result(-int32(a), a)
}

// Incr pops a, and pushes a + amount.
func (cpu *Cpu) Incr(amount int16) {
	a := int16(cpu.Pop())
	cpu.result(int32(a)+int32(amount), a)
}

// Or pops b and a, and pushes a | b.
func (cpu *Cpu) Or() {
	b := cpu.Pop()
	a := cpu.Pop()
	cpu.Push(a | b)
}

// Xor pops b and a, and pushes a ^ b.
func (cpu *Cpu) Xor() {
	b := cpu.Pop()
	a := cpu.Pop()
	cpu.Push(a ^ b)
}

// Not pops a, and pushes its one's complement.
func (cpu *Cpu) Not() {
	cpu.Push(^cpu.Pop())
}

// Shl pops a, and pushes a shifted left by amount mod 16.
func (cpu *Cpu) Shl(amount uint16) {
	cpu.Push(cpu.Pop() << (amount % 16))
}

// Shr pops a, and pushes a shifted right by amount mod 16.
func (cpu *Cpu) Shr(amount uint16) {
	cpu.Push(cpu.Pop() >> (amount % 16))
}
