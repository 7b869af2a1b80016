package io

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

const (
	// CHAR_EOF is read by ReadChar once the input is exhausted.
	CHAR_EOF = uint16(0xffff)
)

// Terminal provides the console over a text stream.
// It wraps an io.Reader for input and an io.Writer for output, and copies
// every transfer to Log when set.
type Terminal struct {
	Input  io.Reader
	Output io.Writer
	Log    io.Writer // Optional copy of all transfers.

	Touched bool // Set by every transfer. Cleared by the monitor.

	reader *bufio.Reader
	source io.Reader

	lowSurrogate  uint16 // Queued second half of a read character.
	highSurrogate rune   // Held first half of a written character.
}

var _ Console = (*Terminal)(nil)

// in returns the buffered input.
func (tt *Terminal) in() (reader *bufio.Reader, err error) {
	if tt.Input == nil {
		err = ErrInputMissing
		return
	}

	if tt.reader == nil || tt.source != tt.Input {
		tt.reader = bufio.NewReader(tt.Input)
		tt.source = tt.Input
		tt.lowSurrogate = 0
	}

	reader = tt.reader
	return
}

func (tt *Terminal) out(text string) (err error) {
	if tt.Output == nil {
		err = ErrOutputMissing
		return
	}

	_, err = io.WriteString(tt.Output, text)
	return
}

func (tt *Terminal) log(format string, args ...any) {
	if tt.Log != nil {
		fmt.Fprintf(tt.Log, format, args...)
	}
}

// ReadChar reads the next UTF-16 code unit of the UTF-8 input. A character
// above 0xFFFF reads as its surrogate pair, one unit per call. Invalid
// UTF-8 reads as 0xFFFD. At the end of input CHAR_EOF is read.
func (tt *Terminal) ReadChar() (value uint16, err error) {
	reader, err := tt.in()
	if err != nil {
		return
	}

	tt.Touched = true

	if tt.lowSurrogate != 0 {
		value = tt.lowSurrogate
		tt.lowSurrogate = 0
		tt.log("%d", value)
		return
	}

	r, _, err := reader.ReadRune()
	if errors.Is(err, io.EOF) {
		err = nil
		value = CHAR_EOF
		tt.log("%d", -1)
		return
	}
	if err != nil {
		return
	}

	if r > 0xffff {
		high, low := utf16.EncodeRune(r)
		r = high
		tt.lowSurrogate = uint16(low)
	}

	value = uint16(r)
	tt.log("%d", value)
	return
}

// WriteChar writes a UTF-16 code unit as UTF-8. The first half of a
// surrogate pair is held until the second half is written.
func (tt *Terminal) WriteChar(value uint16) (err error) {
	tt.Touched = true

	r := rune(value)
	if tt.highSurrogate != 0 {
		high := tt.highSurrogate
		tt.highSurrogate = 0
		if pair := utf16.DecodeRune(high, r); pair != utf8.RuneError {
			r = pair
		} else {
			// Unpaired half.
			err = tt.out(string(utf8.RuneError))
			if err != nil {
				return
			}
		}
	}
	if r >= 0xd800 && r < 0xdc00 {
		tt.highSurrogate = r
		return
	}

	text := string(r)
	tt.log("%s", text)

	return tt.out(text)
}

// ReadInt reads a line holding a decimal integer, wrapped to 16 bits.
// Lines that do not hold a number are rejected, and another line is read.
func (tt *Terminal) ReadInt() (value int16, err error) {
	reader, err := tt.in()
	if err != nil {
		return
	}

	tt.Touched = true

	for {
		var line string
		line, err = reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || len(line) == 0) {
			if errors.Is(err, io.EOF) {
				err = ErrInputClosed
			}
			return
		}
		err = nil

		var v64 int64
		v64, err = strconv.ParseInt(strings.TrimSpace(line), 10, 32)
		if err == nil {
			value = int16(v64)
			tt.log("%d\n", value)
			return
		}

		err = tt.out(f("(Invalid Number. Try again)") + "\n")
		if err != nil {
			return
		}
	}
}

// WriteInt writes a decimal integer.
func (tt *Terminal) WriteInt(value int16) (err error) {
	tt.Touched = true

	text := strconv.Itoa(int(value))
	tt.log("%s", text)

	return tt.out(text)
}
