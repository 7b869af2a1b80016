package emulator

import (
	"fmt"
	"io"
	"time"

	"github.com/ezrec/targetvm/cpu"
	vmio "github.com/ezrec/targetvm/io"
)

// Trace records the registers and disassembly of every executed
// instruction.
type Trace struct {
	io.WriteCloser
}

var _ cpu.Tracer = (*Trace)(nil)

// NewTrace starts a trace on wc, writing the begin banner.
func NewTrace(wc io.WriteCloser, now time.Time) (trace *Trace, err error) {
	trace = &Trace{WriteCloser: wc}

	_, err = fmt.Fprintf(wc, "-- TRACE BEGINS %s --\nInitial register values", vmio.Timestamp(now))
	if err != nil {
		trace = nil
	}

	return
}

func (trace *Trace) registers(regs cpu.Registers) {
	fmt.Fprintf(trace, "\t\tPSR=%d, FP=%d, SP=%d, MP=%d\n", uint16(regs.Psr), regs.Fp, regs.Sp, regs.Mp)
}

// Trace writes the registers as they were before the instruction, and
// the instruction.
func (trace *Trace) Trace(addr uint16, regs cpu.Registers, code cpu.Code) {
	trace.registers(regs)
	fmt.Fprintf(trace, "%d\t%v", addr, code)
}

// Finish writes the final registers and the end banner, and closes the trace.
func (trace *Trace) Finish(regs cpu.Registers) (err error) {
	trace.registers(regs)
	_, err = fmt.Fprintf(trace, "-- TRACE ENDS   --\n")
	cerr := trace.Close()
	if err == nil {
		err = cerr
	}
	return
}
