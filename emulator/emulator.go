// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"strings"

	"github.com/ezrec/targetvm/cpu"
	"github.com/ezrec/targetvm/internal"
	"github.com/ezrec/targetvm/io"
)

const (
	SYS_INITIALISE_IO = uint16(10) // Prepares a frame for I/O.
	SYS_FINALISE_IO   = uint16(30) // Returns from an I/O frame.
)

var _emulator_defines = map[string]string{
	"SYS_INITIALISE_IO": fmt.Sprintf("%d", SYS_INITIALISE_IO),
	"SYS_FINALISE_IO":   fmt.Sprintf("%d", SYS_FINALISE_IO),
}

// System routines, loaded before every program.
var systemRoutines = []string{
	"10 LOADR FP",
	"12 STORE 0,[FP, 0]",
	"14 LOAD 2,[FP, 0]",
	"16 STORE 2,[FP, 0]",
	"18 BRN 0,[SP, 1]",
	"30 EXIT",
}

// Monitor is an interactive debugger. The emulator enters it between the
// fetch and the execution of an instruction, and after a halt.
type Monitor interface {
	Monitor(emu *Emulator) error
}

// Emulator state. CPU + console + monitor hooks.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Initial  cpu.Registers // Register values after a reset.
	Terminal io.Terminal   // Console.

	Trace *Trace    // Active trace, if any.
	IoLog *io.IoLog // Active IO log, if any.

	Monitor   Monitor // Optional debugger.
	Debug     bool    // Enter the monitor before the next instruction.
	NoopBreak bool    // Enter the monitor after each NOOP.
	HaltBreak bool    // Enter the monitor after a HALT.
	AddrBreak int     // If not -1, hold the monitor until this address.
	SkipCount int     // If not 0, hold the monitor for this many entries.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:       cpu.NewCpu(),
		Program:   &cpu.Program{},
		Debug:     true,
		NoopBreak: true,
		HaltBreak: true,
		AddrBreak: -1,
	}

	emu.Cpu.Console = &emu.Terminal

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.Concat2(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Assembler returns an assembler with the emulator defines predefined.
func (emu *Emulator) Assembler() (asm *cpu.Assembler) {
	asm = &cpu.Assembler{Verbose: emu.Verbose}
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}
	return
}

// Close the emulator, finishing any trace or IO log.
func (emu *Emulator) Close() (err error) {
	return emu.closeLogs()
}

// Reset clears the machine, then loads the system routines and the program.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	emu.Cpu.Reset()

	sys, err := emu.Assembler().Parse(strings.NewReader(strings.Join(systemRoutines, "\n")))
	if err != nil {
		return
	}
	sys.Load(&emu.Cpu.Memory)
	emu.Program.Load(&emu.Cpu.Memory)

	regs := emu.Initial
	emu.Cpu.Pc = regs.Pc
	emu.Cpu.Sp = regs.Sp
	emu.Cpu.Bp = regs.Bp
	emu.Cpu.Fp = regs.Fp
	emu.Cpu.Mp = regs.Mp
	emu.Cpu.Psr = cpu.MakePsr(uint16(regs.Psr))

	emu.Cpu.Console = &emu.Terminal

	return
}

// StartTrace replaces the active trace.
func (emu *Emulator) StartTrace(trace *Trace) (err error) {
	if emu.Trace != nil {
		err = emu.Trace.Finish(emu.Cpu.Registers())
	}

	emu.Trace = trace
	if trace == nil {
		emu.Cpu.Tracer = nil
	} else {
		emu.Cpu.Tracer = trace
	}

	return
}

// StartIoLog replaces the active IO log.
func (emu *Emulator) StartIoLog(iolog *io.IoLog) (err error) {
	if emu.IoLog != nil {
		err = emu.IoLog.Close()
	}

	emu.IoLog = iolog
	if iolog == nil {
		emu.Terminal.Log = nil
	} else {
		emu.Terminal.Log = iolog
	}

	return
}

func (emu *Emulator) closeLogs() (err error) {
	err = errors.Join(emu.StartTrace(nil), emu.StartIoLog(nil))
	return
}

// message writes an emulator message to the console.
func (emu *Emulator) message(format string, args ...any) {
	if emu.Terminal.Output != nil {
		fmt.Fprintf(emu.Terminal.Output, format, args...)
	}
}

// LineNo returns the source line of the current instruction, or 0.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Here())
	if dbg.Line == nil {
		return 0
	}

	return dbg.LineNo
}

// enterMonitor runs the monitor, unless a breakpoint or skip count holds it.
func (emu *Emulator) enterMonitor() (err error) {
	if emu.Monitor == nil {
		return
	}

	if emu.AddrBreak != -1 {
		if int(emu.Cpu.Here()) != emu.AddrBreak {
			return
		}
		emu.AddrBreak = -1
	} else if emu.SkipCount != 0 {
		emu.SkipCount--
		if emu.SkipCount > 0 {
			return
		}
	}

	// Start the monitor on a fresh line after program output.
	if emu.Terminal.Touched {
		emu.message("\n")
		emu.Terminal.Touched = false
	}

	return emu.Monitor.Monitor(emu)
}

// Tick performs a single tick of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	if emu.Cpu.Halted() {
		done = true
		return
	}

	emu.Cpu.Fetch()

	defer func() {
		if err != nil && !errors.Is(err, ErrMonitorQuit) {
			err = &ErrRuntime{Addr: emu.Cpu.Here(), LineNo: emu.LineNo(), Err: err}
		}
	}()

	if emu.Debug {
		err = emu.enterMonitor()
		if err != nil {
			return
		}
	}

	// The monitor may have moved PC or patched memory.
	code := emu.Cpu.Code

	err = emu.Cpu.Execute(code)
	if err != nil {
		return
	}

	if code.Opcode == cpu.OP_NOOP && emu.NoopBreak {
		emu.Debug = true
	}

	if emu.Cpu.Halted() {
		done = true

		err = emu.closeLogs()
		if err != nil {
			return
		}

		emu.message("\n%s\n", f(">VM: CPU HALTED"))
		if emu.Verbose {
			log.Printf("emulator: halted after %d instructions", emu.Cpu.Ticks)
		}

		if emu.HaltBreak && emu.Monitor != nil {
			emu.message("%s\n", f("<ENTERING MONITOR>"))
			err = emu.enterMonitor()
		}
	}

	return
}

// Run ticks the emulator until it halts or fails.
func (emu *Emulator) Run() (err error) {
	for done := false; !done; {
		done, err = emu.Tick()
		if err != nil {
			return
		}
	}

	return
}
