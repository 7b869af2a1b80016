package cpu

import (
	"fmt"
)

// Opcode is the instruction opcode, the high byte of the first word.
type Opcode uint8

//go:generate go tool stringer -linecomment -type=Opcode
const (
	OP_NOOP   = Opcode(0)  // NOOP
	OP_LOADL  = Opcode(1)  // LOADL
	OP_LOADR  = Opcode(2)  // LOADR
	OP_LOAD   = Opcode(3)  // LOAD
	OP_LOADA  = Opcode(4)  // LOADA
	OP_LOADI  = Opcode(5)  // LOADI
	OP_STORER = Opcode(6)  // STORER
	OP_STORE  = Opcode(7)  // STORE
	OP_STOREI = Opcode(8)  // STOREI
	OP_INCR   = Opcode(9)  // INCR
	OP_STZ    = Opcode(10) // STZ
	OP_INCREG = Opcode(11) // INCREG
	OP_MOVE   = Opcode(12) // MOVE
	OP_SLL    = Opcode(13) // SLL
	OP_SRL    = Opcode(14) // SRL
	OP_ADD    = Opcode(15) // ADD
	OP_SUB    = Opcode(16) // SUB
	OP_MUL    = Opcode(17) // MUL
	OP_DVD    = Opcode(18) // DVD
	OP_DREM   = Opcode(19) // DREM
	OP_LAND   = Opcode(20) // LAND
	OP_LOR    = Opcode(21) // LOR
	OP_INV    = Opcode(22) // INV
	OP_NEG    = Opcode(23) // NEG
	OP_CLT    = Opcode(24) // CLT
	OP_CLE    = Opcode(25) // CLE
	OP_CEQ    = Opcode(26) // CEQ
	OP_CNE    = Opcode(27) // CNE
	OP_BRN    = Opcode(28) // BRN
	OP_BIDX   = Opcode(29) // BIDX
	OP_BZE    = Opcode(30) // BZE
	OP_BNZ    = Opcode(31) // BNZ
	OP_BNG    = Opcode(32) // BNG
	OP_BPZ    = Opcode(33) // BPZ
	OP_BVS    = Opcode(34) // BVS
	OP_BES    = Opcode(35) // BES
	OP_MARK   = Opcode(36) // MARK
	OP_CALL   = Opcode(37) // CALL
	OP_EXIT   = Opcode(38) // EXIT
	OP_SETSP  = Opcode(39) // SETSP
	OP_SETPSR = Opcode(40) // SETPSR
	OP_HALT   = Opcode(41) // HALT
	OP_CHECK  = Opcode(42) // CHECK
	OP_CHIN   = Opcode(43) // CHIN
	OP_CHOUT  = Opcode(44) // CHOUT
	OP_BLANK  = Opcode(47) // BLANK
)

// CodeShape is the set of fields an opcode shows in its disassembly.
type CodeShape int

const (
	SHAPE_ILLEGAL      = CodeShape(iota) // Undefined opcode.
	SHAPE_NONE                           // Mnemonic only.
	SHAPE_OPERAND                        // Operand.
	SHAPE_REGISTER                       // Register.
	SHAPE_REG_OPERAND                    // Register and operand.
	SHAPE_OFFSET_OPERAND                 // Operand, register and indirections.
)

var shapeMap = map[Opcode]CodeShape{
	OP_NOOP:   SHAPE_NONE,
	OP_ADD:    SHAPE_NONE,
	OP_SUB:    SHAPE_NONE,
	OP_MUL:    SHAPE_NONE,
	OP_DVD:    SHAPE_NONE,
	OP_DREM:   SHAPE_NONE,
	OP_LAND:   SHAPE_NONE,
	OP_LOR:    SHAPE_NONE,
	OP_INV:    SHAPE_NONE,
	OP_NEG:    SHAPE_NONE,
	OP_CLT:    SHAPE_NONE,
	OP_CLE:    SHAPE_NONE,
	OP_CEQ:    SHAPE_NONE,
	OP_CNE:    SHAPE_NONE,
	OP_EXIT:   SHAPE_NONE,
	OP_HALT:   SHAPE_NONE,
	OP_CHECK:  SHAPE_NONE,
	OP_CHIN:   SHAPE_NONE,
	OP_CHOUT:  SHAPE_NONE,
	OP_BLANK:  SHAPE_NONE,
	OP_LOADL:  SHAPE_OPERAND,
	OP_LOADI:  SHAPE_OPERAND,
	OP_STOREI: SHAPE_OPERAND,
	OP_INCR:   SHAPE_OPERAND,
	OP_MOVE:   SHAPE_OPERAND,
	OP_SLL:    SHAPE_OPERAND,
	OP_SRL:    SHAPE_OPERAND,
	OP_BIDX:   SHAPE_OPERAND,
	OP_MARK:   SHAPE_OPERAND,
	OP_SETPSR: SHAPE_OPERAND,
	OP_LOADR:  SHAPE_REGISTER,
	OP_STORER: SHAPE_REGISTER,
	OP_INCREG: SHAPE_REG_OPERAND,
	OP_LOAD:   SHAPE_OFFSET_OPERAND,
	OP_LOADA:  SHAPE_OFFSET_OPERAND,
	OP_STORE:  SHAPE_OFFSET_OPERAND,
	OP_STZ:    SHAPE_OFFSET_OPERAND,
	OP_BRN:    SHAPE_OFFSET_OPERAND,
	OP_BZE:    SHAPE_OFFSET_OPERAND,
	OP_BNZ:    SHAPE_OFFSET_OPERAND,
	OP_BNG:    SHAPE_OFFSET_OPERAND,
	OP_BPZ:    SHAPE_OFFSET_OPERAND,
	OP_BVS:    SHAPE_OFFSET_OPERAND,
	OP_BES:    SHAPE_OFFSET_OPERAND,
	OP_CALL:   SHAPE_OFFSET_OPERAND,
	OP_SETSP:  SHAPE_OFFSET_OPERAND,
}

// Shape returns the disassembly shape of the opcode.
func (op Opcode) Shape() CodeShape {
	return shapeMap[op]
}

// Valid returns true if the opcode is defined.
func (op Opcode) Valid() bool {
	return op.Shape() != SHAPE_ILLEGAL
}

// Register is a 2-bit register id.
type Register uint8

const (
	REG_BP = Register(0) // Base pointer.
	REG_FP = Register(1) // Frame pointer.
	REG_MP = Register(2) // Mark pointer.
	REG_SP = Register(3) // Stack pointer.
)

var registerNames = [...]string{"BP", "FP", "MP", "SP"}

// Valid returns true if the register id names a register.
func (reg Register) Valid() bool {
	return int(reg) < len(registerNames)
}

// String returns the register name, or INVALID.
func (reg Register) String() string {
	if !reg.Valid() {
		return "INVALID"
	}
	return registerNames[reg]
}

const (
	INDIRECTIONS_MAX = 0x3f // Largest encodable indirection count.
)

// Code is a decoded two word instruction.
type Code struct {
	Opcode       Opcode
	Register     Register
	Indirections uint8
	Operand      uint16
}

// MakeCode creates an instruction.
func MakeCode(op Opcode, reg Register, indirections uint8, operand uint16) Code {
	return Code{
		Opcode:       op,
		Register:     reg,
		Indirections: indirections,
		Operand:      operand,
	}
}

// Decode decodes the two words of an instruction.
func Decode(word0, word1 uint16) (code Code) {
	code.Opcode = Opcode(word0 >> 8)
	code.Register = Register((word0 >> 6) & 0x3)
	code.Indirections = uint8(word0 & INDIRECTIONS_MAX)
	code.Operand = word1
	return
}

// Encode returns the two instruction words.
// Out of range register ids and indirections are truncated.
func (code Code) Encode() (word0, word1 uint16) {
	word0 = (uint16(code.Opcode) << 8) |
		((uint16(code.Register) & 0x3) << 6) |
		(uint16(code.Indirections) & INDIRECTIONS_MAX)
	word1 = code.Operand
	return
}

// String returns the disassembly of the instruction.
func (code Code) String() (out string) {
	op := code.Opcode

	switch op.Shape() {
	case SHAPE_NONE:
		out = fmt.Sprintf("%v\t\t", op)
	case SHAPE_OPERAND:
		out = fmt.Sprintf("%v\t%d\t", op, code.Operand)
	case SHAPE_REGISTER:
		out = fmt.Sprintf("%v\t%v\t", op, code.Register)
	case SHAPE_REG_OPERAND:
		out = fmt.Sprintf("%v\t%v, %d\t", op, code.Register, code.Operand)
	case SHAPE_OFFSET_OPERAND:
		out = fmt.Sprintf("%v\t%d,[%v, %d]", op, code.Operand, code.Register, code.Indirections)
	default:
		out = "[ILLEGAL OPCODE]"
	}

	return
}
