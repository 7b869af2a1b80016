package io

import (
	"errors"

	"github.com/ezrec/targetvm/translate"
)

var f = translate.From

var (
	// Console errors
	ErrInputClosed   = errors.New(f("console input closed"))
	ErrInputMissing  = errors.New(f("console input missing"))
	ErrOutputMissing = errors.New(f("console output missing"))
)
