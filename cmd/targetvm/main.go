// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/ezrec/targetvm/emulator"
	"github.com/ezrec/targetvm/io"
	"github.com/ezrec/targetvm/monitor"
	"github.com/ezrec/targetvm/translate"
)

var f = translate.From

func main() {
	var debug bool
	var addrBreak int
	var haltBreak bool
	var noopBreak bool
	var decode bool
	var echoAsm bool
	var pc, sp, fp, mp, bp uint
	var timing bool
	var traceFile string
	var logioFile string
	var verbose bool

	flag.BoolVar(&debug, "monitor", true, "Enter the monitor before the first instruction")
	flag.IntVar(&addrBreak, "break", -1, "Enter the monitor at this address")
	flag.BoolVar(&haltBreak, "haltbreak", true, "Enter the monitor on HALT")
	flag.BoolVar(&noopBreak, "noopbreak", true, "Enter the monitor after NOOP")
	flag.BoolVar(&decode, "decode", true, "Decode the current instruction on entry to the monitor")
	flag.BoolVar(&echoAsm, "echoasm", false, "Echo assembled instructions")
	flag.UintVar(&pc, "pc", 0, "Initial PC")
	flag.UintVar(&sp, "sp", 0, "Initial SP")
	flag.UintVar(&fp, "fp", 0, "Initial FP")
	flag.UintVar(&mp, "mp", 0, "Initial MP")
	flag.UintVar(&bp, "bp", 0, "Initial BP")
	flag.BoolVar(&timing, "time", false, "Report performance timing")
	flag.StringVar(&traceFile, "trace", "", "Save a trace to this file")
	flag.StringVar(&logioFile, "logio", "", "Log all IO to this file")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatalf("%v: %v", os.Args[0], f("No object code files given"))
	}

	for _, value := range []uint{pc, sp, fp, mp, bp} {
		if value > math.MaxUint16 {
			log.Fatalf("%v: %v", os.Args[0], f("Register value %d out of range", value))
		}
	}

	fmt.Println(f("Target Assembler/Virtual Machine"))
	fmt.Println()

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.Debug = debug
	emu.AddrBreak = addrBreak
	emu.HaltBreak = haltBreak
	emu.NoopBreak = noopBreak
	if addrBreak >= 0 {
		emu.Debug = true
	}

	emu.Initial.Pc = uint16(pc)
	emu.Initial.Sp = uint16(sp)
	emu.Initial.Fp = uint16(fp)
	emu.Initial.Mp = uint16(mp)
	emu.Initial.Bp = uint16(bp)

	// Assemble all the object code files, in order.
	asmStart := time.Now()
	for _, name := range flag.Args() {
		inf, err := os.Open(name)
		if err != nil {
			log.Fatalf("%v: %v", name, err)
		}

		asm := emu.Assembler()
		if echoAsm {
			asm.Echo = os.Stdout
		}

		prog, err := asm.Parse(inf)
		inf.Close()
		if err != nil {
			log.Fatalf("%v: %v", name, err)
		}

		emu.Program.Append(prog)
	}
	asmTime := time.Since(asmStart)

	err := emu.Reset()
	if err != nil {
		log.Fatal(err)
	}

	emu.Terminal.Input = os.Stdin
	emu.Terminal.Output = os.Stdout

	filesys := io.DirFS(".")

	err = startLogs(emu, filesys, traceFile, logioFile, time.Now())
	if err != nil {
		log.Fatal(err)
	}

	reader := monitor.NewLiner()
	emu.Monitor = &monitor.Monitor{
		Reader:     reader,
		Output:     os.Stdout,
		FS:         filesys,
		AutoDecode: decode,
	}

	fmt.Println(f("\nExecuting code..."))

	runStart := time.Now()
	err = emu.Run()
	runTime := time.Since(runStart)

	reader.Close()

	if errors.Is(err, emulator.ErrMonitorQuit) {
		return
	}

	if err != nil {
		emu.Close()
		log.Fatal(err)
	}

	if timing {
		opsPerSec := 0.0
		if runTime > 0 {
			opsPerSec = math.Round(float64(emu.Cpu.Ticks) / runTime.Seconds())
		}

		out := os.Stdout
		translate.Fprintf(out, "\nTIMING INFORMATION (+ MONITOR TIME)\n")
		translate.Fprintf(out, "  Assembly Duration: %v\n", asmTime)
		translate.Fprintf(out, " Execution Duration: %v\n", runTime)
		translate.Fprintf(out, "       Instructions: %d\n", emu.Cpu.Ticks)
		translate.Fprintf(out, "        Comparisons: %d\n", emu.Cpu.Compares)
		translate.Fprintf(out, "            ops/sec: %.0f\n", opsPerSec)
	}

	fmt.Println(f("\nTargetVM: Normal Termination."))
}

// startLogs starts the trace and the IO log, when named.
func startLogs(emu *emulator.Emulator, filesys io.FileSystem, traceFile string, logioFile string, now time.Time) (err error) {
	if len(traceFile) != 0 {
		wc, err := filesys.Create(traceFile)
		if err != nil {
			return fmt.Errorf("%v: %w", traceFile, err)
		}
		trace, err := emulator.NewTrace(wc, now)
		if err != nil {
			wc.Close()
			return fmt.Errorf("%v: %w", traceFile, err)
		}
		err = emu.StartTrace(trace)
		if err != nil {
			return fmt.Errorf("%v: %w", traceFile, err)
		}
	}

	if len(logioFile) != 0 {
		wc, err := filesys.Create(logioFile)
		if err != nil {
			return fmt.Errorf("%v: %w", logioFile, err)
		}
		iolog, err := io.NewIoLog(wc)
		if err != nil {
			wc.Close()
			return fmt.Errorf("%v: %w", logioFile, err)
		}
		err = emu.StartIoLog(iolog)
		if err != nil {
			return fmt.Errorf("%v: %w", logioFile, err)
		}
	}

	return
}
