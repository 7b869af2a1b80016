// Package io provides the console and logging models for the Target VM.
// The console carries the character and integer I/O of the machine; the
// IO log records a copy of every transfer made through it.
package io

// Console defines the interface for the machine's character and integer I/O.
// Reads block until input is available.
type Console interface {
	// ReadChar reads a single character code.
	ReadChar() (value uint16, err error)
	// WriteChar writes a single character code.
	WriteChar(value uint16) error
	// ReadInt reads a signed decimal integer.
	ReadInt() (value int16, err error)
	// WriteInt writes a signed decimal integer.
	WriteInt(value int16) error
}
