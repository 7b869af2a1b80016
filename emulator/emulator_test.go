package emulator

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/targetvm/cpu"
	"github.com/ezrec/targetvm/io"
)

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (bc *bufferCloser) Close() error {
	bc.closed = true
	return nil
}

type fakeMonitor struct {
	addrs  []uint16
	action func(emu *Emulator, call int) error
}

func (fm *fakeMonitor) Monitor(emu *Emulator) error {
	fm.addrs = append(fm.addrs, emu.Cpu.Here())
	if fm.action != nil {
		return fm.action(emu, len(fm.addrs))
	}
	return nil
}

// newTestEmulator assembles the program, and readies it to run at
// address 100 with the stack at 1000.
func newTestEmulator(t *testing.T, program []string, input string) (emu *Emulator, output *bytes.Buffer) {
	assert := assert.New(t)

	emu = NewEmulator()
	emu.Debug = false
	emu.Initial.Pc = 100
	emu.Initial.Sp = 1000

	prog, err := emu.Assembler().Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}
	emu.Program = prog

	output = &bytes.Buffer{}
	emu.Terminal.Input = strings.NewReader(input)
	emu.Terminal.Output = output

	err = emu.Reset()
	assert.NoError(err)

	return
}

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	assert.False(emu.Verbose)
	assert.True(emu.Debug)
	assert.True(emu.NoopBreak)
	assert.True(emu.HaltBreak)
	assert.Equal(-1, emu.AddrBreak)
	assert.NotNil(emu.Cpu)

	defines := map[string]string{}
	for key, value := range emu.Defines() {
		defines[key] = value
	}
	assert.Equal("10", defines["SYS_INITIALISE_IO"])
	assert.Equal("30", defines["SYS_FINALISE_IO"])
	assert.Equal("50", defines["SYS_READ_INT"])
}

func TestEmulatorReset(t *testing.T) {
	assert := assert.New(t)

	emu, _ := newTestEmulator(t, []string{"100 HALT"}, "")

	mem := &emu.Cpu.Memory
	assert.Equal(cpu.MakeCode(cpu.OP_LOADR, cpu.REG_FP, 0, 0), cpu.Decode(mem.Read(10), mem.Read(11)))
	assert.Equal(cpu.MakeCode(cpu.OP_BRN, cpu.REG_SP, 1, 0), cpu.Decode(mem.Read(18), mem.Read(19)))
	assert.Equal(cpu.MakeCode(cpu.OP_EXIT, cpu.REG_BP, 0, 0), cpu.Decode(mem.Read(30), mem.Read(31)))
	assert.Equal(cpu.MakeCode(cpu.OP_HALT, cpu.REG_BP, 0, 0), cpu.Decode(mem.Read(100), mem.Read(101)))

	assert.Equal(uint16(100), emu.Cpu.Pc)
	assert.Equal(uint16(1000), emu.Cpu.Sp)

	emu.Initial.Psr = cpu.Psr(0xff04)
	assert.NoError(emu.Reset())
	assert.Equal(cpu.PSR_E, emu.Cpu.Psr)
}

func TestEmulatorFactorial(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"* Iterative factorial",
		".equ ACC 500",
		".equ N 501",
		"100 LOADL 1",
		"102 STORE ACC,[BP, 0]",
		"104 CALL SYS_READ_INT,[BP, 0]",
		"106 STORE N,[BP, 0]",
		"108 LOAD N,[BP, 0]  * loop",
		"110 BZE 130,[BP, 0]",
		"112 LOAD ACC,[BP, 0]",
		"114 LOAD N,[BP, 0]",
		"116 MUL",
		"118 STORE ACC,[BP, 0]",
		"120 LOAD N,[BP, 0]",
		"122 INCR -1",
		"124 STORE N,[BP, 0]",
		"126 BRN 108,[BP, 0]",
		"128 NOOP",
		"130 LOAD ACC,[BP, 0]",
		"132 CALL SYS_WRITE_INT,[BP, 0]",
		"134 HALT",
	}

	emu, output := newTestEmulator(t, program, "5\n")

	err := emu.Run()
	assert.NoError(err)

	assert.Equal("120\n>VM: CPU HALTED\n", output.String())
	assert.Equal(uint16(1000), emu.Cpu.Sp)

	done, err := emu.Tick()
	assert.NoError(err)
	assert.True(done)
}

func TestEmulatorSubroutine(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"100 LOADL 7",
		"102 MARK 3",
		"104 CALL 200,[BP, 0]",
		"106 CALL SYS_WRITE_INT,[BP, 0]",
		"108 HALT",
		"200 LOADL 5",
		"202 CALL SYS_WRITE_INT,[BP, 0]",
		"204 EXIT",
	}

	emu, output := newTestEmulator(t, program, "")
	emu.Initial.Fp = 900
	assert.NoError(emu.Reset())

	assert.NoError(emu.Run())
	assert.Equal("57\n>VM: CPU HALTED\n", output.String())
	assert.Equal(uint16(900), emu.Cpu.Fp)
	assert.Equal(uint16(1000), emu.Cpu.Sp)
}

func TestEmulatorRuntimeError(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"100 LOADL 1",
		"102 LOADL 0",
		"104 DVD",
		"106 HALT",
	}

	emu, _ := newTestEmulator(t, program, "")

	err := emu.Run()
	assert.ErrorIs(err, cpu.ErrDivideByZero)

	var rt *ErrRuntime
	if assert.True(errors.As(err, &rt)) {
		assert.Equal(uint16(104), rt.Addr)
		assert.Equal(3, rt.LineNo)
	}
}

func TestEmulatorMonitorNoop(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"100 NOOP",
		"102 LOADL 1",
		"104 HALT",
	}

	emu, output := newTestEmulator(t, program, "")
	mon := &fakeMonitor{action: func(emu *Emulator, call int) error {
		emu.Debug = false
		return nil
	}}
	emu.Monitor = mon
	emu.Debug = true

	assert.NoError(emu.Run())
	assert.Equal([]uint16{100, 102, 104}, mon.addrs)
	assert.Equal("\n>VM: CPU HALTED\n<ENTERING MONITOR>\n", output.String())
}

func TestEmulatorMonitorHold(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"100 LOADL 1",
		"102 LOADL 2",
		"104 ADD",
		"106 HALT",
	}

	table := [](struct {
		name   string
		action func(emu *Emulator, call int) error
	}){
		{"break", func(emu *Emulator, call int) error {
			if call == 1 {
				emu.AddrBreak = 104
			}
			return nil
		}},
		{"skip", func(emu *Emulator, call int) error {
			if call == 1 {
				emu.SkipCount = 2
			}
			return nil
		}},
	}

	for _, entry := range table {
		emu, _ := newTestEmulator(t, program, "")
		mon := &fakeMonitor{action: entry.action}
		emu.Monitor = mon
		emu.Debug = true
		emu.NoopBreak = false
		emu.HaltBreak = false

		assert.NoError(emu.Run(), entry.name)
		assert.Equal([]uint16{100, 104, 106}, mon.addrs, entry.name)
		assert.Equal(-1, emu.AddrBreak, entry.name)
		assert.Equal(uint16(3), emu.Cpu.Peek(0), entry.name)
	}
}

func TestEmulatorMonitorJump(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"100 LOADL 1",
		"102 HALT",
		"104 LOADL 2",
		"106 HALT",
	}

	emu, _ := newTestEmulator(t, program, "")
	emu.Monitor = &fakeMonitor{action: func(emu *Emulator, call int) error {
		emu.Debug = false
		emu.Cpu.Jump(104)
		return nil
	}}
	emu.Debug = true
	emu.HaltBreak = false

	assert.NoError(emu.Run())
	assert.Equal(uint16(1001), emu.Cpu.Sp)
	assert.Equal(uint16(2), emu.Cpu.Peek(0))
	assert.Equal(uint16(108), emu.Cpu.Pc)
}

func TestEmulatorMonitorQuit(t *testing.T) {
	assert := assert.New(t)

	emu, _ := newTestEmulator(t, []string{"100 HALT"}, "")
	emu.Monitor = &fakeMonitor{action: func(emu *Emulator, call int) error {
		return ErrMonitorQuit
	}}
	emu.Debug = true

	err := emu.Run()
	assert.ErrorIs(err, ErrMonitorQuit)

	var rt *ErrRuntime
	assert.False(errors.As(err, &rt))
	assert.False(emu.Cpu.Halted())
}

func TestEmulatorMonitorNewline(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"100 LOADL 'A'",
		"102 CHOUT",
		"104 NOOP",
		"106 HALT",
	}

	emu, output := newTestEmulator(t, program, "")
	mon := &fakeMonitor{action: func(emu *Emulator, call int) error {
		emu.Debug = false
		return nil
	}}
	emu.Monitor = mon
	emu.HaltBreak = false

	assert.NoError(emu.Run())
	assert.Equal([]uint16{106}, mon.addrs)
	assert.Equal("A\n\n>VM: CPU HALTED\n", output.String())
	assert.False(emu.Terminal.Touched)
}

func TestEmulatorTrace(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"100 LOADL 3",
		"102 HALT",
	}

	emu, _ := newTestEmulator(t, program, "")

	buff := &bufferCloser{}
	trace, err := NewTrace(buff, time.Date(2006, time.March, 7, 14, 5, 9, 0, time.UTC))
	assert.NoError(err)
	assert.NoError(emu.StartTrace(trace))

	assert.NoError(emu.Run())
	assert.True(buff.closed)
	assert.Nil(emu.Trace)
	assert.Nil(emu.Cpu.Tracer)

	expected := "-- TRACE BEGINS Tuesday, 7 March 2006 14:05:09 --\n" +
		"Initial register values" +
		"\t\tPSR=0, FP=0, SP=1000, MP=0\n" +
		"100\tLOADL\t3\t" +
		"\t\tPSR=0, FP=0, SP=1001, MP=0\n" +
		"102\tHALT\t\t" +
		"\t\tPSR=8, FP=0, SP=1001, MP=0\n" +
		"-- TRACE ENDS   --\n"
	assert.Equal(expected, buff.String())
}

func TestEmulatorIoLog(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"100 LOADL 'H'",
		"102 CHOUT",
		"104 LOADL 'i'",
		"106 CHOUT",
		"108 HALT",
	}

	emu, output := newTestEmulator(t, program, "")

	buff := &bufferCloser{}
	iolog, err := io.NewIoLog(buff)
	assert.NoError(err)
	assert.NoError(emu.StartIoLog(iolog))

	assert.NoError(emu.Run())
	assert.Equal("Hi\n>VM: CPU HALTED\n", output.String())

	assert.True(buff.closed)
	assert.Nil(emu.IoLog)
	assert.Nil(emu.Terminal.Log)
	assert.Regexp(`^-- IO LOG BEGINS .* --\nHi\n-- IO LOG ENDS   .* --\n$`, buff.String())
}
