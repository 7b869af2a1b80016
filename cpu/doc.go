// Package cpu implements the processor and assembler for the Target machine.
//
// The machine is a 16-bit stack computer with 65536 words of memory and
// four pointer registers (BP, FP, MP, SP) beside the program counter and
// the program status register (PSR). The stack grows upward from SP.
//
// Every instruction is two words. The first word packs the opcode in its
// high byte, a register id in the next two bits, and an indirection count
// in the low six bits. The second word is the operand. Memory operands are
// addressed as the register, dereferenced through memory once per
// indirection, plus the operand.
//
// The assembler reads the line-oriented 'ADDR OPCODE OPERANDS' object code
// format, with equates and compile-time expression evaluation.
package cpu
