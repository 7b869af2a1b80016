package io

import (
	"fmt"
	"io"
	"time"
)

// Timestamp formats a time for log banners.
func Timestamp(t time.Time) string {
	return t.Format("Monday, 2 January 2006 15:04:05")
}

// IoLog is a transcript of console transfers, framed by begin and end
// banners.
type IoLog struct {
	io.WriteCloser
	Now func() time.Time // Clock for the banners. Defaults to time.Now.
}

// NewIoLog starts a transcript on wc, writing the begin banner.
func NewIoLog(wc io.WriteCloser) (il *IoLog, err error) {
	il = &IoLog{WriteCloser: wc}

	_, err = fmt.Fprintf(il, "-- IO LOG BEGINS %s --\n", Timestamp(il.now()))
	if err != nil {
		il = nil
	}

	return
}

func (il *IoLog) now() time.Time {
	if il.Now == nil {
		return time.Now()
	}
	return il.Now()
}

// Close writes the end banner and closes the transcript.
func (il *IoLog) Close() (err error) {
	_, err = fmt.Fprintf(il, "\n-- IO LOG ENDS   %s --\n", Timestamp(il.now()))
	cerr := il.WriteCloser.Close()
	if err == nil {
		err = cerr
	}
	return
}
