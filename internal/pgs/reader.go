package pgs

import (
	"errors"
	"fmt"
	"io"

	"github.com/deepch/vdk/utils/bits/pio"
)

// HeaderLen is the size of a segment header in bytes.
const HeaderLen = 13

// Magic is the two-byte marker opening every segment ("PG").
const Magic uint16 = 0x5047

// Reader decodes segments from a byte stream.
type Reader struct {
	r      io.Reader
	offset int64
	header [HeaderLen]byte
}

// NewReader returns a Reader consuming r. Callers should buffer r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Next decodes the next segment. It returns io.EOF only when the stream
// ends exactly on a segment boundary.
func (r *Reader) Next() (Segment, error) {
	start := r.offset

	n, err := io.ReadFull(r.r, r.header[:])
	r.offset += int64(n)
	switch {
	case err == io.EOF:
		return Segment{}, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return Segment{}, &BitstreamError{Offset: start, Reason: "truncated segment header", Err: io.ErrUnexpectedEOF}
	case err != nil:
		return Segment{}, &TransportError{Op: "read segment header", Offset: start, Err: err}
	}

	if magic := pio.U16BE(r.header[0:]); magic != Magic {
		return Segment{}, &BitstreamError{Offset: start, Reason: fmt.Sprintf("bad magic 0x%04x", magic)}
	}
	seg := Segment{
		PTS: pio.U32BE(r.header[2:]),
		DTS: pio.U32BE(r.header[6:]),
	}
	typ := SegmentType(r.header[10])
	if !typ.known() {
		return Segment{}, &BitstreamError{Offset: start, Reason: fmt.Sprintf("unknown segment type %s", typ)}
	}

	body := make([]byte, pio.U16BE(r.header[11:]))
	n, err = io.ReadFull(r.r, body)
	r.offset += int64(n)
	if err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return Segment{}, &BitstreamError{
				Offset: start,
				Reason: fmt.Sprintf("truncated %s body: got %d of %d bytes", typ, n, len(body)),
				Err:    io.ErrUnexpectedEOF,
			}
		}
		return Segment{}, &TransportError{Op: fmt.Sprintf("read %s body", typ), Offset: start, Err: err}
	}

	seg.Body, err = UnmarshalBody(typ, body)
	if err != nil {
		var bsErr *BitstreamError
		if errors.As(err, &bsErr) {
			bsErr.Offset = start
		}
		return Segment{}, err
	}
	return seg, nil
}

// ReadAll decodes every segment until the end of the stream.
func ReadAll(r io.Reader) ([]Segment, error) {
	return NewReader(r).ReadAll()
}

// ReadAll decodes the remaining segments. Offset reports how far decoding
// got, including on error.
func (r *Reader) ReadAll() ([]Segment, error) {
	var segs []Segment
	for {
		seg, err := r.Next()
		if err == io.EOF {
			return segs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", len(segs), err)
		}
		segs = append(segs, seg)
	}
}
