package pgs

import (
	"errors"
	"fmt"
)

var (
	// ErrBitstream marks malformed container data: bad magic, unknown segment
	// types, body length mismatches and truncated segments.
	ErrBitstream = errors.New("pgs: malformed bitstream")
	// ErrTransport marks failures of the underlying reader or writer.
	ErrTransport = errors.New("pgs: transport failure")
	// ErrFormatViolation marks well-formed segments that break a display set
	// invariant, such as duplicate or unresolved object ids.
	ErrFormatViolation = errors.New("pgs: format invariant violated")
)

// BitstreamError describes a malformed segment.
type BitstreamError struct {
	// Offset is the byte offset of the segment header in the stream, or -1
	// when the error was raised outside a stream.
	Offset int64
	Reason string
	// Err is an optional cause such as io.ErrUnexpectedEOF.
	Err error
}

func (e *BitstreamError) Error() string {
	msg := "pgs: bitstream error"
	if e.Offset >= 0 {
		msg = fmt.Sprintf("%s at offset %d", msg, e.Offset)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BitstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrBitstream}
	}
	return []error{ErrBitstream, e.Err}
}

// TransportError wraps an I/O failure with the operation that hit it.
type TransportError struct {
	Op     string
	Offset int64
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("pgs: %s at offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

func bitstreamf(format string, args ...any) *BitstreamError {
	return &BitstreamError{Offset: -1, Reason: fmt.Sprintf(format, args...)}
}
