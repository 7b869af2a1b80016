package monitor

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/targetvm/cpu"
	"github.com/ezrec/targetvm/emulator"
	vmio "github.com/ezrec/targetvm/io"
)

var testProgram = []string{
	"100 LOADL 7",
	"102 LOADL 8",
	"104 NOOP",
	"106 HALT",
}

var testNow = time.Date(2024, time.March, 4, 5, 6, 7, 0, time.UTC)

// newTestMonitor readies the test program at address 100, with a monitor
// reading its commands from script.
func newTestMonitor(t *testing.T, script string) (mon *Monitor, emu *emulator.Emulator, output *bytes.Buffer) {
	assert := assert.New(t)

	emu = emulator.NewEmulator()
	emu.Initial = cpu.Registers{Pc: 100, Sp: 1000, Fp: 900, Mp: 800}

	prog, err := emu.Assembler().Parse(strings.NewReader(strings.Join(testProgram, "\n")))
	assert.NoError(err)
	emu.Program.Append(prog)
	assert.NoError(emu.Reset())

	output = &bytes.Buffer{}
	emu.Terminal.Output = output

	mon = &Monitor{
		Reader: NewScript(strings.NewReader(script), nil),
		Output: output,
		FS:     vmio.DirFS(t.TempDir()),
		Now:    func() time.Time { return testNow },
	}
	emu.Monitor = mon

	return
}

// fetched also fetches the first instruction, as the emulator does
// before entering the monitor.
func fetched(t *testing.T, script string) (mon *Monitor, emu *emulator.Emulator, output *bytes.Buffer) {
	mon, emu, output = newTestMonitor(t, script)
	emu.Cpu.Fetch()
	mon.emu = emu
	return
}

func TestParseAddr(t *testing.T) {
	assert := assert.New(t)

	mon, emu, output := fetched(t, "")
	emu.Cpu.Memory.Write(900, 950)
	emu.Cpu.Memory.Write(950, 42)

	table := [...]struct {
		text string
		addr uint16
	}{
		{"sp", 1000},
		{"FP", 900},
		{"mp", 800},
		{"pc", 102},
		{"here", 100},
		{"instr", 100},
		{"12", 12},
		{"-12", 12},
		{"[fp,0]", 900},
		{"[fp,1]", 950},
		{"[fp,2]", 42},
		{"5,[fp,1]", 955},
		{"3,sp", 1003},
		{"sp+4", 1004},
		{"sp-4", 996},
		{"10-2-3", 5},
		{"70000", 4464},
	}

	for _, entry := range table {
		assert.Equal(entry.addr, mon.parseAddr(entry.text), entry.text)
	}
	assert.Empty(output.String())

	assert.Equal(uint16(0), mon.parseAddr("bogus"))
	assert.Equal("[Cannot parse address bogus]\n", output.String())
}

func TestParseValue(t *testing.T) {
	assert := assert.New(t)

	mon, _, output := fetched(t, "")

	table := [...]struct {
		text  string
		value uint16
	}{
		{"65", 65},
		{"-1", 0xffff},
		{"'A'", 65},
		{"70000", 4464},
	}

	for _, entry := range table {
		assert.Equal(entry.value, mon.parseValue(entry.text), entry.text)
	}
	assert.Empty(output.String())

	assert.Equal(uint16(0), mon.parseValue("x"))
	assert.Equal("Target Monitor: Invalid value \"x\".\n", output.String())
}

func TestParseBool(t *testing.T) {
	assert := assert.New(t)

	for _, text := range []string{"yes", "TRUE", "t", "1"} {
		assert.True(parseBool(text), text)
	}
	for _, text := range []string{"no", "false", "f", "0", "maybe"} {
		assert.False(parseBool(text), text)
	}
}

func TestMonitorSession(t *testing.T) {
	assert := assert.New(t)

	script := strings.Join([]string{
		"g",
		"push 77",
		"p 2",
		"pop",
		"store 500 'Z'",
		"i 500",
		"d 100",
		"d",
		"search 90",
		"hb false",
		"nb",
		"r",
		"quit",
	}, "\n")

	mon, emu, output := fetched(t, script)

	err := mon.Monitor(emu)
	assert.NoError(err)
	assert.False(emu.Debug)
	assert.False(emu.HaltBreak)
	assert.True(emu.NoopBreak)
	assert.Equal(uint16(1000), emu.Cpu.Sp)
	assert.Equal(uint16(90), emu.Cpu.Memory.Read(500))

	expected := strings.Join([]string{
		"reg.PC\t= 102",
		"reg.SP\t= 1000",
		"reg.BP\t= 0",
		"reg.MP\t= 800",
		"reg.FP\t= 900",
	}, "\n") + "\n"
	assert.True(strings.HasPrefix(output.String(), expected), output.String())

	for _, text := range []string{
		"Pushed 77 onto the stack.\n",
		"1000:\t0x004D == 77u\n999:\t0x0000 == 0u\n",
		"Popped 77 from the stack.\n",
		"500:\t90\n",
		"500:\t0x005A == 90u\n",
		"100:\tLOADL\t7\t\n",
		"100\tLOADL\t7\t\n",
		"Searching memory...\n500: 90\t('Z')\nComplete.\n",
		"haltBreak=true\nhaltBreak=false\tCHANGED\n",
		"noopBreak=true\n",
	} {
		assert.Contains(output.String(), text)
	}

	assert.NotContains(output.String(), "goodbye")
}

func TestMonitorPrompt(t *testing.T) {
	assert := assert.New(t)

	mon, emu, output := fetched(t, "c\n")
	mon.Reader = NewScript(strings.NewReader("\n"), output)
	mon.AutoDecode = true

	assert.NoError(mon.Monitor(emu))
	assert.True(emu.Debug)
	assert.Equal("\tLOADL\t7\t\n[100] Monitor> ", output.String())
}

func TestMonitorEnd(t *testing.T) {
	assert := assert.New(t)

	mon, emu, _ := fetched(t, "")

	assert.NoError(mon.Monitor(emu))
	assert.False(emu.Debug)
}

func TestMonitorQuit(t *testing.T) {
	assert := assert.New(t)

	for _, cmd := range []string{"q", "quit", "s", "halt", "stop", "exit"} {
		mon, emu, output := fetched(t, cmd+"\nr\n")

		err := mon.Monitor(emu)
		assert.ErrorIs(err, emulator.ErrMonitorQuit, cmd)
		assert.Equal("Target Monitor: goodbye.\n", output.String(), cmd)
	}
}

func TestMonitorUsage(t *testing.T) {
	assert := assert.New(t)

	script := strings.Join([]string{
		"frobnicate",
		"?",
		"k",
		"b",
		"store 1",
		"asm",
		"c",
	}, "\n")

	mon, emu, output := fetched(t, script)

	assert.NoError(mon.Monitor(emu))
	assert.Equal(-1, emu.AddrBreak)
	assert.Equal(0, emu.SkipCount)

	for _, text := range []string{
		"Monitor: Unknown command\n",
		"TARGET MONITOR - QUICK HELP\n",
		"Target Monitor: skip requires an argument.",
		"Target Monitor: break requires an argument.",
		"Target Monitor: store takes 2 arguments (address, value)\n",
		"Monitor: assemble requires a parameter.",
	} {
		assert.Contains(output.String(), text)
	}
}

func TestMonitorRegisters(t *testing.T) {
	assert := assert.New(t)

	script := strings.Join([]string{
		"setsp 2000",
		"setfp sp",
		"setmp 5",
		"calc sp+1 here",
		"c",
	}, "\n")

	mon, emu, output := fetched(t, script)

	assert.NoError(mon.Monitor(emu))
	assert.Equal(uint16(2000), emu.Cpu.Sp)
	assert.Equal(uint16(2000), emu.Cpu.Fp)
	assert.Equal(uint16(5), emu.Cpu.Mp)

	assert.Equal(strings.Join([]string{
		"SP=2000\tCHANGED",
		"FP=2000\tCHANGED",
		"MP=5\tCHANGED",
		"SP+1 = 2001",
		"HERE = 100",
	}, "\n")+"\n", output.String())
}

func TestMonitorStackLimits(t *testing.T) {
	assert := assert.New(t)

	script := strings.Join([]string{
		"setsp 1",
		"p 3",
		"p 2",
		"setsp 0",
		"pop",
		"c",
	}, "\n")

	mon, emu, output := fetched(t, script)

	assert.NoError(mon.Monitor(emu))
	assert.Equal(uint16(0), emu.Cpu.Sp)

	assert.Contains(output.String(), "Target Monitor: 3 words back from SP (1) is an illegal address.\n")
	assert.Contains(output.String(), "Target Monitor: 2 words back from SP (1) is an illegal address.\n")
	assert.Contains(output.String(), "Stack at top of address space. Cannot pop.\n")
}

func TestMonitorSigned(t *testing.T) {
	assert := assert.New(t)

	script := strings.Join([]string{
		"store 500 -2",
		"signed",
		"i 500",
		"unsigned",
		"i 500",
		"c",
	}, "\n")

	mon, emu, output := fetched(t, script)

	assert.NoError(mon.Monitor(emu))
	assert.False(mon.Signed)
	assert.Equal(strings.Join([]string{
		"500:\t65534",
		"Monitor: memory display set to signed",
		"500:\t0xFFFE == -2s",
		"Monitor: memory display set to unsigned",
		"500:\t0xFFFE == 65534u",
	}, "\n")+"\n", output.String())
}

func TestMonitorJump(t *testing.T) {
	assert := assert.New(t)

	mon, emu, output := fetched(t, "j 104\nc\n")

	assert.NoError(mon.Monitor(emu))
	assert.Equal(uint16(104), emu.Cpu.Here())
	assert.Equal(cpu.OP_NOOP, emu.Cpu.Code.Opcode)
	assert.Equal("Jumping to 104\n", output.String())
}

func TestMonitorAssemble(t *testing.T) {
	assert := assert.New(t)

	mon, emu, output := fetched(t, "asm patch.asm missing.asm\nc\n")

	dir := string(mon.FS.(vmio.DirFS))
	err := os.WriteFile(filepath.Join(dir, "patch.asm"), []byte("* patch\n100 LOADL 99\n"), 0o644)
	assert.NoError(err)

	assert.NoError(mon.Monitor(emu))
	assert.Equal("Arg #2 Non-existant file missing.asm\n", output.String())

	assert.Equal(uint16(99), emu.Cpu.Memory.Read(101))
	assert.Equal(uint16(99), emu.Cpu.Code.Operand)

	dbg := emu.Program.Debug(100)
	if assert.NotNil(dbg.Line) {
		assert.Equal(2, dbg.LineNo)
		assert.Equal("99", dbg.Words[2])
	}
}

func TestMonitorDump(t *testing.T) {
	assert := assert.New(t)

	mon, emu, output := fetched(t, "dump\nc\n")

	assert.NoError(mon.Monitor(emu))
	assert.Contains(output.String(), "Ticks")
	assert.Contains(output.String(), "LOADL")
}

func TestMonitorRun(t *testing.T) {
	assert := assert.New(t)

	mon, emu, output := newTestMonitor(t, "n\nk 2\nr\n")
	mon.Reader = NewScript(strings.NewReader("n\nk 2\nr\n"), output)

	assert.NoError(emu.Run())
	assert.True(emu.Cpu.Halted())

	text := output.String()
	assert.Equal(4, strings.Count(text, "Monitor> "), text)
	assert.Contains(text, "[100] Monitor> ")
	assert.Contains(text, "[102] Monitor> ")
	assert.NotContains(text, "[104] Monitor> ")
	assert.Contains(text, "Skipping monitor for next 2 instruction(s).\n")
	assert.Contains(text, "\n>VM: CPU HALTED\n<ENTERING MONITOR>\n")
}

func TestMonitorBreak(t *testing.T) {
	assert := assert.New(t)

	mon, emu, output := newTestMonitor(t, "")
	mon.Reader = NewScript(strings.NewReader("b 106\nc\n"), output)

	assert.NoError(emu.Run())

	text := output.String()
	assert.Equal(3, strings.Count(text, "Monitor> "), text)
	assert.Contains(text, "Setting breakpoint at address 106.\n")
	assert.NotContains(text, "[102] Monitor> ")
	assert.NotContains(text, "[104] Monitor> ")
	assert.Equal(-1, emu.AddrBreak)
}

func TestMonitorLogs(t *testing.T) {
	assert := assert.New(t)

	mon, emu, output := newTestMonitor(t, "t trace.txt\nl io_log.txt\nr\n")

	assert.NoError(emu.Run())
	assert.Contains(output.String(), "Monitor: Tracing Enabled\nMonitor: IO Logging Enabled\n")
	assert.Nil(emu.Trace)
	assert.Nil(emu.IoLog)

	dir := string(mon.FS.(vmio.DirFS))

	trace, err := os.ReadFile(filepath.Join(dir, "trace.txt"))
	assert.NoError(err)
	assert.True(strings.HasPrefix(string(trace), "-- TRACE BEGINS "+vmio.Timestamp(testNow)), string(trace))
	assert.Contains(string(trace), "100\tLOADL\t7\t")
	assert.Contains(string(trace), "-- TRACE ENDS")

	iolog, err := os.ReadFile(filepath.Join(dir, "io log.txt"))
	assert.NoError(err)
	assert.Contains(string(iolog), "-- IO LOG BEGINS ")
	assert.Contains(string(iolog), "-- IO LOG ENDS ")
}

func TestComplete(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]string{"search", "setfp", "setmp", "setsp"}, complete("se"))
	assert.Equal([]string{"halt", "haltbreak"}, complete("ha"))
	assert.Equal([]string{"dump"}, complete("DU"))
	assert.Nil(complete("zz"))
}
