package pgs

import (
	"errors"
	"fmt"
	"io"

	"github.com/deepch/vdk/utils/bits/pio"
)

// Writer encodes segments to a byte stream.
type Writer struct {
	w      io.Writer
	offset int64
	header [HeaderLen]byte
}

// NewWriter returns a Writer producing to w. Callers should buffer w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Offset returns the number of bytes written so far.
func (w *Writer) Offset() int64 {
	return w.offset
}

// Write encodes one segment. The body length field is always derived from
// the serialized body.
func (w *Writer) Write(seg Segment) error {
	start := w.offset
	body, err := MarshalBody(seg.Body)
	if err != nil {
		var bsErr *BitstreamError
		if errors.As(err, &bsErr) {
			bsErr.Offset = start
		}
		return err
	}

	pio.PutU16BE(w.header[0:], Magic)
	pio.PutU32BE(w.header[2:], seg.PTS)
	pio.PutU32BE(w.header[6:], seg.DTS)
	pio.PutU8(w.header[10:], uint8(seg.Body.Type()))
	pio.PutU16BE(w.header[11:], uint16(len(body)))

	if err := w.write(w.header[:], "write segment header", start); err != nil {
		return err
	}
	return w.write(body, fmt.Sprintf("write %s body", seg.Body.Type()), start)
}

func (w *Writer) write(p []byte, op string, start int64) error {
	if len(p) == 0 {
		return nil
	}
	n, err := w.w.Write(p)
	w.offset += int64(n)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &TransportError{Op: op, Offset: start, Err: err}
	}
	return nil
}

// WriteAll encodes segs in order.
func WriteAll(w io.Writer, segs []Segment) error {
	writer := NewWriter(w)
	for i := range segs {
		if err := writer.Write(segs[i]); err != nil {
			return err
		}
	}
	return nil
}
