package cpu

import (
	"errors"

	"github.com/ezrec/targetvm/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrHalted          = errors.New(f("cpu halted"))
	ErrOpcodeInvalid   = errors.New(f("opcode invalid"))
	ErrRegisterInvalid = errors.New(f("register invalid"))
	ErrDivideByZero    = errors.New(f("divide by zero"))
	ErrNotImplemented  = errors.New(f("not implemented"))
	ErrConsoleMissing  = errors.New(f("console missing"))

	// Assembler errors
	ErrEquateSyntax    = errors.New(f(".equ syntax"))
	ErrEquateDuplicate = errors.New(f(".equ duplicated"))
	ErrAddressMissing  = errors.New(f("address missing"))
	ErrOpcodeMissing   = errors.New(f("opcode missing"))
	ErrOperandInvalid  = errors.New(f("operand invalid"))
)

// ErrOpcode reports the instruction that failed, and where it was fetched.
type ErrOpcode struct {
	Addr uint16
	Code Code
}

func (eo ErrOpcode) Error() string {
	return f("bad opcode %v at %d: %v", eo.Code.Opcode, eo.Addr, eo.Code.String())
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}

// ErrRegister reports an invalid register id.
type ErrRegister Register

func (er ErrRegister) Error() string {
	return f("invalid register %d", uint8(er))
}

func (er ErrRegister) Unwrap() error {
	return ErrRegisterInvalid
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseRegister string

func (err ErrParseRegister) Error() string {
	return f("unknown register: %v", string(err))
}

type ErrParseOpcode string

func (err ErrParseOpcode) Error() string {
	return f("unknown opcode: %v", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
