package monitor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/peterh/liner"

	"github.com/ezrec/targetvm/emulator"
)

// LineReader prompts for, and reads, a command line.
type LineReader interface {
	Prompt(prompt string) (line string, err error)
}

// Liner reads command lines from the terminal, with history and
// command completion.
type Liner struct {
	state *liner.State
}

var _ LineReader = (*Liner)(nil)

// NewLiner takes control of the terminal. Close must be called to restore it.
func NewLiner() (ln *Liner) {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetCompleter(complete)

	ln = &Liner{state: state}
	return
}

// Prompt reads a line. Ctrl-C quits the monitor.
func (ln *Liner) Prompt(prompt string) (line string, err error) {
	line, err = ln.state.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		err = emulator.ErrMonitorQuit
		return
	}
	if err != nil {
		return
	}

	if len(strings.TrimSpace(line)) != 0 {
		ln.state.AppendHistory(line)
	}

	return
}

// Close restores the terminal.
func (ln *Liner) Close() error {
	return ln.state.Close()
}

// complete returns the commands starting with the line.
func complete(line string) (matches []string) {
	prefix := strings.ToLower(strings.TrimLeft(line, " "))
	for _, cmd := range commandNames {
		if strings.HasPrefix(cmd, prefix) {
			matches = append(matches, cmd)
		}
	}
	slices.Sort(matches)
	return
}

// Script reads command lines from a stream, echoing the prompts.
type Script struct {
	Output io.Writer // Optional prompt echo.

	reader *bufio.Reader
}

var _ LineReader = (*Script)(nil)

// NewScript creates a reader of the command lines in input.
func NewScript(input io.Reader, output io.Writer) *Script {
	return &Script{
		Output: output,
		reader: bufio.NewReader(input),
	}
}

// Prompt reads the next line. io.EOF is returned once the stream is empty.
func (sc *Script) Prompt(prompt string) (line string, err error) {
	if sc.Output != nil {
		fmt.Fprint(sc.Output, prompt)
	}

	line, err = sc.reader.ReadString('\n')
	if errors.Is(err, io.EOF) && len(line) != 0 {
		err = nil
	}

	line = strings.TrimRight(line, "\r\n")
	return
}

// splitArgs splits a command line on spaces. Double quotes group words.
func splitArgs(line string) (args []string) {
	var word strings.Builder
	quoted := false
	inWord := false

	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			inWord = true
		case (r == ' ' || r == '\t') && !quoted:
			if inWord {
				args = append(args, word.String())
				word.Reset()
				inWord = false
			}
		default:
			word.WriteRune(r)
			inWord = true
		}
	}

	if inWord {
		args = append(args, word.String())
	}

	return
}
