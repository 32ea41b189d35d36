package response

import (
	"errors"
	"fmt"
	"io"
	"syscall"
)

var (
	// ErrUnsupportedFormat is returned for format names no writer understands
	ErrUnsupportedFormat = errors.New("unsupported response format")

	// ErrAlreadyWritten is returned when a response is written a second time
	ErrAlreadyWritten = errors.New("response already written")

	// ErrNoDefaultWriter is returned by Selector.Validate when the default format has no writer
	ErrNoDefaultWriter = errors.New("no writer registered for the default format")
)

// Stages at which a write can fail
const (
	StageHeader  = "header"
	StageRow     = "row"
	StageSidecar = "sidecar"
	StageMeta    = "meta"
	StageFlush   = "flush"
)

// WriteError reports a failure while streaming a response.
// Bytes written before the failure have already reached the sink.
type WriteError struct {
	Format Format
	Stage  string
	Row    int    // index of the offending row, -1 when not writing a row
	Detail string // rendering of the offending row, when known
	Err    error
}

// Error implements the error interface
func (e *WriteError) Error() string {
	if e.Row >= 0 {
		if e.Detail != "" {
			return fmt.Sprintf("%s: unable to write data row %d %s: %v", e.Format, e.Row, e.Detail, e.Err)
		}
		return fmt.Sprintf("%s: unable to write data row %d: %v", e.Format, e.Row, e.Err)
	}
	return fmt.Sprintf("%s: unable to write %s: %v", e.Format, e.Stage, e.Err)
}

// Unwrap exposes the underlying sink error for errors.Is/As
func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsBrokenPipe reports whether an error is a broken or closed pipe,
// which is what a client hanging up mid-stream looks like.
func IsBrokenPipe(err error) bool {
	return err != nil && (errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, io.ErrClosedPipe))
}
