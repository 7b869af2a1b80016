// Package monitor implements the interactive debugging console of the
// Target VM.
//
// The emulator enters the monitor between the fetch and the execution of
// an instruction. Each command line is read from a LineReader; commands
// either inspect or patch the machine and prompt again, or resume
// execution.
package monitor

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/k0kubun/pp/v3"

	"github.com/ezrec/targetvm/cpu"
	"github.com/ezrec/targetvm/emulator"
	vmio "github.com/ezrec/targetvm/io"
)

// Monitor is a debugging console for an emulator.
type Monitor struct {
	Reader     LineReader      // Command input.
	Output     io.Writer       // Command output.
	FS         vmio.FileSystem // Files for asm, trace and logio.
	AutoDecode bool            // Show the current instruction on entry.
	Signed     bool            // Show memory as signed values.

	Now func() time.Time // Clock for trace banners. Defaults to time.Now.

	emu *emulator.Emulator
}

var _ emulator.Monitor = (*Monitor)(nil)

// command handlers return true to resume execution.
type command struct {
	names   []string
	handler func(mon *Monitor, args []string) (resume bool, err error)
}

var commands []command

var commandNames []string

func init() {
	commands = []command{
		{[]string{"c", "continue"}, func(mon *Monitor, args []string) (bool, error) { return true, nil }},
		{[]string{"n", "next"}, (*Monitor).cmdNext},
		{[]string{"r", "run"}, (*Monitor).cmdRun},
		{[]string{"k", "skip"}, (*Monitor).cmdSkip},
		{[]string{"b", "break"}, (*Monitor).cmdBreak},
		{[]string{"q", "quit", "s", "halt", "stop", "exit"}, (*Monitor).cmdQuit},
		{[]string{"search"}, (*Monitor).cmdSearch},
		{[]string{"hb", "haltbreak"}, (*Monitor).cmdHaltBreak},
		{[]string{"nb", "noopbreak"}, (*Monitor).cmdNoopBreak},
		{[]string{"setsp"}, (*Monitor).cmdSetSp},
		{[]string{"setfp"}, (*Monitor).cmdSetFp},
		{[]string{"setmp"}, (*Monitor).cmdSetMp},
		{[]string{"store"}, (*Monitor).cmdStore},
		{[]string{"push"}, (*Monitor).cmdPush},
		{[]string{"pop"}, (*Monitor).cmdPop},
		{[]string{"j", "jump"}, (*Monitor).cmdJump},
		{[]string{"d", "decode"}, (*Monitor).cmdDecode},
		{[]string{"i", "inspect"}, (*Monitor).cmdInspect},
		{[]string{"p", "peek"}, (*Monitor).cmdPeek},
		{[]string{"g", "reg", "register", "registers", "calc"}, (*Monitor).cmdRegisters},
		{[]string{"dump"}, (*Monitor).cmdDump},
		{[]string{"asm", "assemble"}, (*Monitor).cmdAssemble},
		{[]string{"t", "trace", "savetrace"}, (*Monitor).cmdTrace},
		{[]string{"l", "logio", "lio", "io"}, (*Monitor).cmdLogIo},
		{[]string{"signed"}, (*Monitor).cmdSigned},
		{[]string{"unsigned"}, (*Monitor).cmdUnsigned},
		{[]string{"?", "help"}, (*Monitor).cmdHelp},
	}

	for _, cmd := range commands {
		commandNames = append(commandNames, cmd.names...)
	}
}

func lookup(name string) (handler func(mon *Monitor, args []string) (bool, error), ok bool) {
	name = strings.ToLower(name)
	for _, cmd := range commands {
		for _, cmdName := range cmd.names {
			if cmdName == name {
				return cmd.handler, true
			}
		}
	}
	return
}

func (mon *Monitor) printf(format string, args ...any) {
	fmt.Fprintf(mon.Output, format, args...)
}

func (mon *Monitor) now() time.Time {
	if mon.Now == nil {
		return time.Now()
	}
	return mon.Now()
}

// Monitor runs commands until one resumes execution.
// An empty command line continues. The end of the command input runs
// the emulator without the monitor.
func (mon *Monitor) Monitor(emu *emulator.Emulator) (err error) {
	mon.emu = emu
	defer func() { mon.emu = nil }()

	if mon.AutoDecode {
		mon.printf("\t%v\n", emu.Cpu.Code)
	}

	for {
		var line string
		line, err = mon.Reader.Prompt(fmt.Sprintf("[%d] Monitor> ", emu.Cpu.Here()))
		if err == io.EOF {
			emu.Debug = false
			err = nil
			return
		}
		if err != nil {
			return
		}

		args := splitArgs(line)
		if len(args) == 0 {
			return
		}

		handler, ok := lookup(args[0])
		if !ok {
			mon.printf("Monitor: Unknown command\n")
			continue
		}

		var resume bool
		resume, err = handler(mon, args[1:])
		if err != nil || resume {
			return
		}
	}
}

func (mon *Monitor) cmdNext(args []string) (bool, error) {
	mon.emu.Debug = true
	return true, nil
}

func (mon *Monitor) cmdRun(args []string) (bool, error) {
	mon.emu.Debug = false
	return true, nil
}

func (mon *Monitor) cmdSkip(args []string) (bool, error) {
	if len(args) != 1 {
		mon.printf("Target Monitor: skip requires an argument. Example: skip 5\n")
		return false, nil
	}

	mon.emu.SkipCount = int(mon.parseAddr(args[0]))
	mon.printf("Skipping monitor for next %d instruction(s).\n", mon.emu.SkipCount)
	return true, nil
}

func (mon *Monitor) cmdBreak(args []string) (bool, error) {
	if len(args) != 1 {
		mon.printf("Target Monitor: break requires an argument. Example: break 210\n")
		return false, nil
	}

	mon.emu.AddrBreak = int(mon.parseAddr(args[0]))
	mon.printf("Setting breakpoint at address %d.\n", mon.emu.AddrBreak)
	return true, nil
}

func (mon *Monitor) cmdQuit(args []string) (bool, error) {
	err := mon.emu.Close()
	mon.printf("Target Monitor: goodbye.\n")
	if err != nil {
		return true, err
	}
	return true, emulator.ErrMonitorQuit
}

func (mon *Monitor) cmdSearch(args []string) (bool, error) {
	if len(args) != 1 {
		mon.printf("Target Monitor: search requires one argument.\n")
		return false, nil
	}

	value := mon.parseValue(args[0])
	mon.printf("Searching memory...\n")
	for addr := range mon.emu.Cpu.Memory.Search(value) {
		mon.printf("%d: %d\t('%c')\n", addr, value, rune(value))
	}
	mon.printf("Complete.\n")

	return false, nil
}

func (mon *Monitor) cmdFlag(name string, flag *bool, args []string) (bool, error) {
	mon.printf("%s=%v\n", name, *flag)
	if len(args) == 1 {
		*flag = parseBool(args[0])
		mon.printf("%s=%v\tCHANGED\n", name, *flag)
	}
	return false, nil
}

func (mon *Monitor) cmdHaltBreak(args []string) (bool, error) {
	return mon.cmdFlag("haltBreak", &mon.emu.HaltBreak, args)
}

func (mon *Monitor) cmdNoopBreak(args []string) (bool, error) {
	return mon.cmdFlag("noopBreak", &mon.emu.NoopBreak, args)
}

func (mon *Monitor) cmdSetRegister(name string, reg cpu.Register, args []string) (bool, error) {
	if len(args) != 1 {
		mon.printf("Target Monitor: set%s requires an argument.\n", strings.ToLower(name))
		return false, nil
	}

	value := mon.parseAddr(args[0])
	err := mon.emu.Cpu.SetRegister(reg, value)
	if err != nil {
		return false, err
	}

	mon.printf("%s=%d\tCHANGED\n", name, value)
	return false, nil
}

func (mon *Monitor) cmdSetSp(args []string) (bool, error) {
	return mon.cmdSetRegister("SP", cpu.REG_SP, args)
}

func (mon *Monitor) cmdSetFp(args []string) (bool, error) {
	return mon.cmdSetRegister("FP", cpu.REG_FP, args)
}

func (mon *Monitor) cmdSetMp(args []string) (bool, error) {
	return mon.cmdSetRegister("MP", cpu.REG_MP, args)
}

func (mon *Monitor) cmdStore(args []string) (bool, error) {
	if len(args) != 2 {
		mon.printf("Target Monitor: store takes 2 arguments (address, value)\n")
		return false, nil
	}

	addr := mon.parseAddr(args[0])
	value := mon.parseValue(args[1])
	mon.emu.Cpu.Memory.Write(addr, value)
	mon.printf("%d:\t%d\n", addr, value)

	return false, nil
}

func (mon *Monitor) cmdPush(args []string) (bool, error) {
	if len(args) != 1 {
		mon.printf("Target Monitor: push requires an argument.\n")
		return false, nil
	}

	value := mon.parseAddr(args[0])
	mon.emu.Cpu.Push(value)
	mon.printf("Pushed %d onto the stack.\n", value)

	return false, nil
}

func (mon *Monitor) cmdPop(args []string) (bool, error) {
	if mon.emu.Cpu.Sp == 0 {
		mon.printf("Stack at top of address space. Cannot pop.\n")
		return false, nil
	}

	mon.printf("Popped %d from the stack.\n", mon.emu.Cpu.Pop())
	return false, nil
}

func (mon *Monitor) cmdJump(args []string) (bool, error) {
	if len(args) != 1 {
		mon.printf("Target Monitor: jump requires an argument. Example: jump 50\n")
		return false, nil
	}

	addr := mon.parseAddr(args[0])
	mon.printf("Jumping to %d\n", addr)
	mon.emu.Cpu.Jump(addr)

	return false, nil
}

func (mon *Monitor) cmdDecode(args []string) (bool, error) {
	mem := &mon.emu.Cpu.Memory

	if len(args) == 0 {
		mon.printf("%d\t%v\n", mon.emu.Cpu.Here(), mon.emu.Cpu.Code)
		return false, nil
	}

	for _, arg := range args {
		addr := mon.parseAddr(arg)
		code := cpu.Decode(mem.Read(addr), mem.Read(addr+1))
		mon.printf("%d:\t%v\n", addr, code)
	}

	return false, nil
}

// word shows a memory word per the signed setting.
func (mon *Monitor) word(addr uint16) {
	value := mon.emu.Cpu.Memory.Read(addr)
	if mon.Signed {
		mon.printf("%d:\t0x%04X == %ds\n", addr, value, int16(value))
	} else {
		mon.printf("%d:\t0x%04X == %du\n", addr, value, value)
	}
}

func (mon *Monitor) cmdInspect(args []string) (bool, error) {
	for _, arg := range args {
		mon.word(mon.parseAddr(arg))
	}

	return false, nil
}

func (mon *Monitor) cmdPeek(args []string) (bool, error) {
	items := uint16(1)
	if len(args) == 1 {
		items = mon.parseAddr(args[0])
	}

	sp := mon.emu.Cpu.Sp
	if sp < items {
		plural := "s"
		if items == 1 {
			plural = ""
		}
		mon.printf("Target Monitor: %d word%s back from SP (%d) is an illegal address.\n", items, plural, sp)
		return false, nil
	}

	for offset := uint16(1); offset <= items && offset != 0; offset++ {
		mon.word(sp - offset)
	}

	return false, nil
}

func (mon *Monitor) cmdRegisters(args []string) (bool, error) {
	if len(args) == 0 {
		regs := mon.emu.Cpu.Registers()
		mon.printf("reg.PC\t= %d\n", regs.Pc)
		mon.printf("reg.SP\t= %d\n", regs.Sp)
		mon.printf("reg.BP\t= %d\n", regs.Bp)
		mon.printf("reg.MP\t= %d\n", regs.Mp)
		mon.printf("reg.FP\t= %d\n", regs.Fp)
		mon.printf("reg.PSR\t= %d %v\n", uint16(regs.Psr), regs.Psr)
		return false, nil
	}

	for _, arg := range args {
		mon.printf("%s = %d\n", strings.ToUpper(arg), mon.parseAddr(arg))
	}

	return false, nil
}

// Snapshot is the machine state shown by the dump command.
type Snapshot struct {
	Registers cpu.Registers
	Code      string
	Line      []string
	LineNo    int
	Ticks     int
	Compares  int
	Stack     []uint16
}

func (mon *Monitor) snapshot() (snap Snapshot) {
	cp := mon.emu.Cpu

	snap = Snapshot{
		Registers: cp.Registers(),
		Code:      strings.TrimSpace(cp.Code.String()),
		LineNo:    mon.emu.LineNo(),
		Ticks:     cp.Ticks,
		Compares:  cp.Compares,
	}

	if dbg := mon.emu.Program.Debug(cp.Here()); dbg.Line != nil {
		snap.Line = dbg.Words
	}

	for depth := range min(cp.Sp, 8) {
		snap.Stack = append(snap.Stack, cp.Peek(depth))
	}

	return
}

func (mon *Monitor) cmdDump(args []string) (bool, error) {
	printer := pp.New()
	printer.SetColoringEnabled(false)
	printer.SetOutput(mon.Output)
	printer.Println(mon.snapshot())

	return false, nil
}

func (mon *Monitor) cmdAssemble(args []string) (bool, error) {
	if len(args) == 0 {
		mon.printf("Monitor: assemble requires a parameter. Please quote paths with spaces in them.\n")
		return false, nil
	}

	for n, name := range args {
		file, err := mon.FS.Open(name)
		if err != nil {
			mon.printf("Arg #%d Non-existant file %s\n", n+1, name)
			continue
		}

		prog, err := mon.emu.Assembler().Parse(file)
		file.Close()
		if err != nil {
			mon.printf("%s: %v\n", name, err)
			continue
		}

		prog.Load(&mon.emu.Cpu.Memory)
		mon.emu.Program.Append(prog)

		// The current instruction may have been replaced.
		mon.emu.Cpu.Refetch()
	}

	return false, nil
}

func (mon *Monitor) cmdTrace(args []string) (bool, error) {
	if len(args) != 1 {
		mon.printf("Monitor: trace requires one parameter\n")
		return false, nil
	}

	mon.printf("Monitor: Tracing Enabled\n")

	wc, err := mon.FS.Create(args[0])
	if err != nil {
		mon.printf("%s: %v\n", args[0], err)
		return false, nil
	}

	trace, err := emulator.NewTrace(wc, mon.now())
	if err != nil {
		wc.Close()
		return false, err
	}

	return false, mon.emu.StartTrace(trace)
}

func (mon *Monitor) cmdLogIo(args []string) (bool, error) {
	if len(args) != 1 {
		mon.printf("Monitor: logio requires one parameter. Please quote paths with spaces in them.\n")
		return false, nil
	}

	mon.printf("Monitor: IO Logging Enabled\n")

	// Underscores stand in for spaces.
	name := strings.ReplaceAll(args[0], "_", " ")

	wc, err := mon.FS.Create(name)
	if err != nil {
		mon.printf("%s: %v\n", name, err)
		return false, nil
	}

	iolog, err := vmio.NewIoLog(wc)
	if err != nil {
		wc.Close()
		return false, err
	}

	return false, mon.emu.StartIoLog(iolog)
}

func (mon *Monitor) cmdSigned(args []string) (bool, error) {
	mon.Signed = true
	mon.printf("Monitor: memory display set to signed\n")
	return false, nil
}

func (mon *Monitor) cmdUnsigned(args []string) (bool, error) {
	mon.Signed = false
	mon.printf("Monitor: memory display set to unsigned\n")
	return false, nil
}

var helpText = []string{
	"TARGET MONITOR - QUICK HELP",
	"Commands that take n can understand 'sp', '0,[fp,1]', etc.",
	"d {n}      - Displays a decode of the instruction[s] at n.",
	"             Current instruction displayed if none are",
	"             specified (decode)",
	"p [n]      - Displays the top n items on the stack. (peek)",
	"i {n}      - Displays values stored in memory location[s] n.",
	"j addr     - Branches immediately to ADDR. (jump)",
	"q          - Terminates the VM immediately",
	"c          - Resumes execution; monitor state unchanged",
	"             (continue, <ENTER>)",
	"r          - Resumes execution; monitor disabled",
	"n          - Resumes execution; monitor enabled",
	"k n        - Hides monitor for another n operations. (skip)",
	"b n        - Hides monitor until operation at n. (break)",
	"g          - Displays all registers (registers)",
	"g {n}      - Displays specific register values",
	"calc {n}   - Calculates the address n",
	"search v   - Lists the addresses holding v",
	"store n v  - Stores v at n",
	"push v     - Pushes v onto the stack",
	"pop        - Pops the top of the stack",
	"setsp n    - Sets SP (also setfp, setmp)",
	"hb [bool]  - Displays or sets break on HALT (haltbreak)",
	"nb [bool]  - Displays or sets break on NOOP (noopbreak)",
	"dump       - Displays a snapshot of the machine",
	"asm f      - Assembles file f",
	"t f        - Starts saving trace data to file f",
	"l f        - Logs all IO to file f",
	"signed     - Changes memory display to signed mode",
	"unsigned   - Changes memory display to unsigned mode",
}

func (mon *Monitor) cmdHelp(args []string) (bool, error) {
	for _, line := range helpText {
		mon.printf("%s\n", line)
	}
	return false, nil
}
