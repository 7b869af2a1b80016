package emulator

import (
	"errors"

	"github.com/ezrec/targetvm/translate"
)

var f = translate.From

var (
	ErrMonitorQuit = errors.New(f("monitor quit"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Addr   uint16
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return f("address %d: %v", err.Addr, err.Err)
	}
	return f("address %d line %d: %v", err.Addr, err.LineNo, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
