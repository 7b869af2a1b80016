package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/targetvm/io"
)

// Console is the character and integer I/O attached to the CPU.
type Console io.Console

// System routine call targets. Calls to these addresses perform the
// I/O directly and never link a frame.
const (
	SYS_READ_INT  = uint16(50)  // Read an integer, push it.
	SYS_WRITE_INT = uint16(100) // Pop an integer, write it.
)

var _cpu_defines = map[string]string{
	"SYS_READ_INT":  fmt.Sprintf("%d", SYS_READ_INT),
	"SYS_WRITE_INT": fmt.Sprintf("%d", SYS_WRITE_INT),
	"PSR_C":         fmt.Sprintf("%d", PSR_C),
	"PSR_V":         fmt.Sprintf("%d", PSR_V),
	"PSR_E":         fmt.Sprintf("%d", PSR_E),
	"PSR_H":         fmt.Sprintf("%d", PSR_H),
}

// Registers is a snapshot of the register file.
type Registers struct {
	Pc  uint16
	Sp  uint16
	Bp  uint16
	Fp  uint16
	Mp  uint16
	Psr Psr
}

// Tracer observes each instruction before it executes.
type Tracer interface {
	Trace(addr uint16, regs Registers, code Code)
}

// Cpu is the simulation context for the Target machine.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Memory Memory // Address space.

	Pc  uint16 // Address of the next instruction to fetch.
	Sp  uint16 // Stack pointer, grows upward.
	Bp  uint16 // Base pointer.
	Fp  uint16 // Frame pointer.
	Mp  uint16 // Mark pointer.
	Psr Psr    // Program status register.

	Code Code // Most recently fetched instruction.

	Ticks    int // Instructions executed.
	Compares int // Comparison instructions executed.

	Console Console // Character and integer I/O.
	Tracer  Tracer  // Optional instruction tracer.
}

// NewCpu creates a new CPU with zeroed memory and registers.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{}

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset the CPU state.
// - Zeros memory, registers and the PSR.
// - Zeros statistics counters.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	cpu.Memory.Reset()
	cpu.Pc, cpu.Sp, cpu.Bp, cpu.Fp, cpu.Mp = 0, 0, 0, 0, 0
	cpu.Psr = 0
	cpu.Code = Code{}
	cpu.Ticks = 0
	cpu.Compares = 0
}

// Registers returns a snapshot of the register file.
func (cpu *Cpu) Registers() Registers {
	return Registers{
		Pc:  cpu.Pc,
		Sp:  cpu.Sp,
		Bp:  cpu.Bp,
		Fp:  cpu.Fp,
		Mp:  cpu.Mp,
		Psr: cpu.Psr,
	}
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	regs := cpu.Registers()
	for _, reg := range []string{"pc", "sp", "bp", "mp", "fp", "psr"} {
		var strval string
		switch reg {
		case "pc":
			strval = fmt.Sprintf("%d", regs.Pc)
		case "sp":
			strval = fmt.Sprintf("%d", regs.Sp)
		case "bp":
			strval = fmt.Sprintf("%d", regs.Bp)
		case "mp":
			strval = fmt.Sprintf("%d", regs.Mp)
		case "fp":
			strval = fmt.Sprintf("%d", regs.Fp)
		case "psr":
			strval = fmt.Sprintf("%d %v", uint16(regs.Psr), regs.Psr)
		}
		text += fmt.Sprintf("% 5s: %v\n", reg, strval)
	}

	return
}

// register returns a reference to the register named by reg.
func (cpu *Cpu) register(reg Register) (ref *uint16, err error) {
	switch reg {
	case REG_BP:
		ref = &cpu.Bp
	case REG_FP:
		ref = &cpu.Fp
	case REG_MP:
		ref = &cpu.Mp
	case REG_SP:
		ref = &cpu.Sp
	default:
		err = ErrRegister(reg)
	}
	return
}

// Register returns the value of a register.
func (cpu *Cpu) Register(reg Register) (value uint16, err error) {
	ref, err := cpu.register(reg)
	if err != nil {
		return
	}
	value = *ref
	return
}

// SetRegister sets the value of a register.
func (cpu *Cpu) SetRegister(reg Register, value uint16) (err error) {
	ref, err := cpu.register(reg)
	if err != nil {
		return
	}
	*ref = value
	return
}

// IncrementRegister adds amount to a register, wrapping.
func (cpu *Cpu) IncrementRegister(reg Register, amount uint16) (err error) {
	ref, err := cpu.register(reg)
	if err != nil {
		return
	}
	*ref += amount
	return
}

// Flag returns the state of a PSR flag.
func (cpu *Cpu) Flag(flag Psr) bool {
	return cpu.Psr.Has(flag)
}

// SetFlag sets or clears a PSR flag.
func (cpu *Cpu) SetFlag(flag Psr, value bool) {
	cpu.Psr = cpu.Psr.With(flag, value)
}

// Halted returns true once the halt flag is set.
func (cpu *Cpu) Halted() bool {
	return cpu.Flag(PSR_H)
}

// Here returns the address of the most recently fetched instruction.
func (cpu *Cpu) Here() uint16 {
	return cpu.Pc - 2
}

// Fetch reads and decodes the instruction at PC, and advances PC past it.
func (cpu *Cpu) Fetch() Code {
	word0 := cpu.Memory.Read(cpu.Pc)
	word1 := cpu.Memory.Read(cpu.Pc + 1)
	cpu.Pc += 2

	cpu.Code = Decode(word0, word1)

	return cpu.Code
}

// Refetch decodes the current instruction again, after memory was patched.
func (cpu *Cpu) Refetch() Code {
	cpu.Pc -= 2
	return cpu.Fetch()
}

// Jump moves PC to addr and fetches the instruction there.
func (cpu *Cpu) Jump(addr uint16) Code {
	cpu.Pc = addr
	return cpu.Fetch()
}

// EffectiveAddress resolves the operand address of an instruction: the
// register is dereferenced through memory once per indirection, and the
// operand is added to the result.
func (cpu *Cpu) EffectiveAddress(code Code) (addr uint16, err error) {
	addr, err = cpu.Register(code.Register)
	if err != nil {
		return
	}

	for n := code.Indirections; n != 0; n-- {
		addr = cpu.Memory.Read(addr)
	}

	addr += code.Operand
	return
}

// Tick executes a single CPU instruction cycle.
func (cpu *Cpu) Tick() (err error) {
	if cpu.Halted() {
		err = ErrHalted
		return
	}

	err = cpu.Execute(cpu.Fetch())

	return
}

// Execute executes a single decoded instruction. PC must already
// address the following instruction.
func (cpu *Cpu) Execute(code Code) (err error) {
	addr := cpu.Here()

	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode{Addr: addr, Code: code}, err)
		}
	}()

	cpu.Ticks++

	if cpu.Tracer != nil {
		cpu.Tracer.Trace(addr, cpu.Registers(), code)
	}

	if cpu.Verbose {
		log.Printf("%05d: %v", addr, code)
	}

	switch code.Opcode {
	case OP_NOOP, OP_BLANK:
		// pass

	// Arithmetic
	case OP_ADD:
		cpu.Add()
	case OP_SUB:
		cpu.Sub()
	case OP_MUL:
		cpu.Mul()
	case OP_DVD:
		err = cpu.Div()
	case OP_DREM:
		err = cpu.Mod()
	case OP_NEG:
		cpu.Neg()
	case OP_INCR:
		cpu.Incr(int16(code.Operand))

	// Logic
	case OP_LAND, OP_LOR:
		// LAND performs OR, the same as LOR.
		cpu.Or()
	case OP_INV:
		cpu.Not()
	case OP_SLL:
		cpu.Shl(code.Operand)
	case OP_SRL:
		cpu.Shr(code.Operand)

	// Comparisons
	case OP_CLT:
		cpu.compare(func(a, b int16) bool { return a < b })
	case OP_CLE:
		cpu.compare(func(a, b int16) bool { return a <= b })
	case OP_CEQ:
		cpu.compare(func(a, b int16) bool { return a == b })
	case OP_CNE:
		cpu.compare(func(a, b int16) bool { return a != b })

	// Branches
	case OP_BRN:
		err = cpu.branch(code, true)
	case OP_BIDX:
		cpu.Pc += cpu.Pop() * code.Operand
	case OP_BZE:
		err = cpu.branch(code, cpu.Pop() == 0)
	case OP_BNZ:
		err = cpu.branch(code, cpu.Pop() != 0)
	case OP_BNG:
		err = cpu.branch(code, int16(cpu.Pop()) < 0)
	case OP_BPZ:
		err = cpu.branch(code, int16(cpu.Pop()) >= 0)
	case OP_BVS:
		err = cpu.branch(code, cpu.testAndClear(PSR_V))
	case OP_BES:
		err = cpu.branch(code, cpu.testAndClear(PSR_E))

	// Subroutines
	case OP_MARK:
		cpu.Mp = cpu.Sp
		cpu.Sp += code.Operand
	case OP_CALL:
		err = cpu.call(code)
	case OP_EXIT:
		cpu.Sp = cpu.Fp
		cpu.Fp = cpu.Memory.Read(cpu.Sp + 1)
		cpu.Pc = cpu.Memory.Read(cpu.Sp + 2)

	// Loads
	case OP_LOADL:
		cpu.Push(code.Operand)
	case OP_LOADR:
		var value uint16
		value, err = cpu.Register(code.Register)
		if err != nil {
			return
		}
		cpu.Push(value)
	case OP_LOAD:
		var ea uint16
		ea, err = cpu.EffectiveAddress(code)
		if err != nil {
			return
		}
		cpu.Push(cpu.Memory.Read(ea))
	case OP_LOADA:
		var ea uint16
		ea, err = cpu.EffectiveAddress(code)
		if err != nil {
			return
		}
		cpu.Push(ea)
	case OP_LOADI:
		src := cpu.Pop()
		for n := range code.Operand {
			cpu.Push(cpu.Memory.Read(src + n))
		}

	// Stores
	case OP_STORER:
		err = cpu.SetRegister(code.Register, cpu.Pop())
	case OP_STORE:
		var ea uint16
		ea, err = cpu.EffectiveAddress(code)
		if err != nil {
			return
		}
		cpu.Memory.Write(ea, cpu.Pop())
	case OP_STOREI:
		dst := cpu.Pop()
		for n := range code.Operand {
			cpu.Memory.Write(dst+n, cpu.Pop())
		}
	case OP_STZ:
		var ea uint16
		ea, err = cpu.EffectiveAddress(code)
		if err != nil {
			return
		}
		cpu.Memory.Write(ea, 0)
	case OP_INCREG:
		err = cpu.IncrementRegister(code.Register, code.Operand)
	case OP_MOVE:
		dst := cpu.Pop()
		src := cpu.Pop()
		cpu.Memory.Copy(src, dst, code.Operand)

	// Machine state
	case OP_SETSP:
		var ea uint16
		ea, err = cpu.EffectiveAddress(code)
		if err != nil {
			return
		}
		cpu.Sp = ea
	case OP_SETPSR:
		cpu.Psr = MakePsr(code.Operand)
	case OP_HALT:
		cpu.SetFlag(PSR_H, true)
	case OP_CHECK:
		err = ErrNotImplemented

	// Character I/O
	case OP_CHIN:
		err = cpu.readChar()
	case OP_CHOUT:
		err = cpu.writeChar()

	default:
		err = ErrOpcodeInvalid
	}

	return
}

// compare pops b then a, and pushes 1 if cmp(a, b) holds, else 0.
func (cpu *Cpu) compare(cmp func(a, b int16) bool) {
	cpu.Compares++

	b := int16(cpu.Pop())
	a := int16(cpu.Pop())

	if cmp(a, b) {
		cpu.Push(1)
	} else {
		cpu.Push(0)
	}
}

// testAndClear returns the state of a flag, clearing it.
func (cpu *Cpu) testAndClear(flag Psr) (set bool) {
	set = cpu.Flag(flag)
	if set {
		cpu.SetFlag(flag, false)
	}
	return
}

// branch moves PC to the effective address when taken.
func (cpu *Cpu) branch(code Code, taken bool) (err error) {
	if !taken {
		return
	}

	ea, err := cpu.EffectiveAddress(code)
	if err != nil {
		return
	}
	cpu.Pc = ea
	return
}

// call links a new frame at MP and jumps to the effective address,
// unless the target is a system routine.
func (cpu *Cpu) call(code Code) (err error) {
	target, err := cpu.EffectiveAddress(code)
	if err != nil {
		return
	}

	switch target {
	case SYS_READ_INT:
		err = cpu.readInt()
	case SYS_WRITE_INT:
		err = cpu.writeInt()
	default:
		cpu.Memory.Write(cpu.Mp+1, cpu.Fp)
		cpu.Memory.Write(cpu.Mp+2, cpu.Pc)
		cpu.Fp = cpu.Mp
		cpu.Pc = target
	}

	return
}

func (cpu *Cpu) readChar() (err error) {
	if cpu.Console == nil {
		return ErrConsoleMissing
	}

	value, err := cpu.Console.ReadChar()
	if err != nil {
		return
	}
	cpu.Push(value)
	return
}

func (cpu *Cpu) writeChar() (err error) {
	if cpu.Console == nil {
		return ErrConsoleMissing
	}

	return cpu.Console.WriteChar(cpu.Pop())
}

func (cpu *Cpu) readInt() (err error) {
	if cpu.Console == nil {
		return ErrConsoleMissing
	}

	value, err := cpu.Console.ReadInt()
	if err != nil {
		return
	}
	cpu.Push(uint16(value))
	return
}

func (cpu *Cpu) writeInt() (err error) {
	if cpu.Console == nil {
		return ErrConsoleMissing
	}

	return cpu.Console.WriteInt(int16(cpu.Pop()))
}
