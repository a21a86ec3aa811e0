package pgs

import (
	"github.com/deepch/vdk/utils/bits/pio"
)

const (
	compositionHeaderLen = 11
	compositionObjectLen = 8
	cropRectLen          = 8
	windowLen            = 9
	objectHeaderLen      = 4
	objectSizeLen        = 7

	maxBodyLen    = 0xffff
	maxDataLength = 0xffffff
	maxCount      = 0xff
)

// MarshalBody serializes a segment body.
func MarshalBody(body Body) ([]byte, error) {
	switch b := body.(type) {
	case *PresentationComposition:
		if len(b.Objects) > maxCount {
			return nil, bitstreamf("composition has %d objects, at most %d fit", len(b.Objects), maxCount)
		}
	case *WindowDefinition:
		if len(b.Windows) > maxCount {
			return nil, bitstreamf("window definition has %d windows, at most %d fit", len(b.Windows), maxCount)
		}
	case *ObjectDefinition:
		if b.HasSize() && b.DataLength > maxDataLength {
			return nil, bitstreamf("object %d data length %d exceeds 24 bits", b.ID, b.DataLength)
		}
	case *PaletteDefinition, *EndOfDisplaySet:
	case nil:
		return nil, bitstreamf("segment has no body")
	default:
		return nil, bitstreamf("unsupported body %T", body)
	}

	size := body.bodyLen()
	if size > maxBodyLen {
		return nil, bitstreamf("%s body of %d bytes exceeds %d", body.Type(), size, maxBodyLen)
	}
	buf := make([]byte, size)
	body.marshal(buf)
	return buf, nil
}

// UnmarshalBody decodes a body of the given type. The whole of b must be
// consumed. Opaque payloads alias b.
func UnmarshalBody(typ SegmentType, b []byte) (Body, error) {
	r := &bodyReader{buf: b}
	var body Body
	switch typ {
	case TypePresentationComposition:
		body = r.composition()
	case TypeWindowDefinition:
		body = r.windows()
	case TypeObjectDefinition:
		body = r.object()
	case TypePaletteDefinition:
		body = &PaletteDefinition{Payload: r.rest()}
	case TypeEndOfDisplaySet:
		body = &EndOfDisplaySet{}
	default:
		return nil, bitstreamf("unknown segment type %s", typ)
	}
	if r.short > 0 {
		return nil, bitstreamf("%s body length %d is %d bytes short of its fields", typ, len(b), r.short)
	}
	if trailing := len(b) - r.pos; trailing > 0 {
		return nil, bitstreamf("%s body length %d leaves %d bytes undecoded", typ, len(b), trailing)
	}
	return body, nil
}

// bodyReader reads big-endian fields from a body. Reading past the end
// records how many bytes were missing and yields zero values.
type bodyReader struct {
	buf   []byte
	pos   int
	short int
}

func (r *bodyReader) take(n int) []byte {
	if r.short > 0 {
		return nil
	}
	if r.pos+n > len(r.buf) {
		r.short = r.pos + n - len(r.buf)
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *bodyReader) u8() uint8 {
	if b := r.take(1); b != nil {
		return pio.U8(b)
	}
	return 0
}

func (r *bodyReader) u16() uint16 {
	if b := r.take(2); b != nil {
		return pio.U16BE(b)
	}
	return 0
}

func (r *bodyReader) u24() uint32 {
	if b := r.take(3); b != nil {
		return pio.U24BE(b)
	}
	return 0
}

func (r *bodyReader) rest() []byte {
	b := r.buf[r.pos:]
	r.pos = len(r.buf)
	return b
}

func (r *bodyReader) composition() *PresentationComposition {
	pcs := &PresentationComposition{
		Width:         r.u16(),
		Height:        r.u16(),
		FrameRate:     r.u8(),
		Number:        r.u16(),
		State:         r.u8(),
		PaletteUpdate: r.u8(),
		PaletteID:     r.u8(),
	}
	count := int(r.u8())
	if r.short > 0 {
		return pcs
	}
	pcs.Objects = make([]CompositionObject, 0, count)
	for i := 0; i < count && r.short == 0; i++ {
		obj := CompositionObject{
			ObjectID: r.u16(),
			WindowID: r.u8(),
			Flags:    r.u8(),
			X:        r.u16(),
			Y:        r.u16(),
		}
		if obj.Flags&ObjectCropped != 0 {
			obj.Crop = &CropRect{
				X:      r.u16(),
				Y:      r.u16(),
				Width:  r.u16(),
				Height: r.u16(),
			}
		}
		pcs.Objects = append(pcs.Objects, obj)
	}
	return pcs
}

func (r *bodyReader) windows() *WindowDefinition {
	count := int(r.u8())
	wds := &WindowDefinition{Windows: make([]Window, 0, count)}
	for i := 0; i < count && r.short == 0; i++ {
		wds.Windows = append(wds.Windows, Window{
			ID:     r.u8(),
			X:      r.u16(),
			Y:      r.u16(),
			Width:  r.u16(),
			Height: r.u16(),
		})
	}
	return wds
}

func (r *bodyReader) object() *ObjectDefinition {
	ods := &ObjectDefinition{
		ID:       r.u16(),
		Version:  r.u8(),
		Sequence: r.u8(),
	}
	if ods.HasSize() {
		ods.DataLength = r.u24()
		ods.Width = r.u16()
		ods.Height = r.u16()
	}
	if r.short == 0 {
		ods.Data = r.rest()
	}
	return ods
}

func (p *PresentationComposition) bodyLen() int {
	n := compositionHeaderLen
	for _, obj := range p.Objects {
		n += compositionObjectLen
		if obj.Crop != nil {
			n += cropRectLen
		}
	}
	return n
}

func (p *PresentationComposition) marshal(b []byte) (n int) {
	pio.PutU16BE(b[n:], p.Width)
	n += 2
	pio.PutU16BE(b[n:], p.Height)
	n += 2
	pio.PutU8(b[n:], p.FrameRate)
	n++
	pio.PutU16BE(b[n:], p.Number)
	n += 2
	pio.PutU8(b[n:], p.State)
	n++
	pio.PutU8(b[n:], p.PaletteUpdate)
	n++
	pio.PutU8(b[n:], p.PaletteID)
	n++
	pio.PutU8(b[n:], uint8(len(p.Objects)))
	n++
	for _, obj := range p.Objects {
		flags := obj.Flags &^ ObjectCropped
		if obj.Crop != nil {
			flags |= ObjectCropped
		}
		pio.PutU16BE(b[n:], obj.ObjectID)
		n += 2
		pio.PutU8(b[n:], obj.WindowID)
		n++
		pio.PutU8(b[n:], flags)
		n++
		pio.PutU16BE(b[n:], obj.X)
		n += 2
		pio.PutU16BE(b[n:], obj.Y)
		n += 2
		if obj.Crop != nil {
			pio.PutU16BE(b[n:], obj.Crop.X)
			n += 2
			pio.PutU16BE(b[n:], obj.Crop.Y)
			n += 2
			pio.PutU16BE(b[n:], obj.Crop.Width)
			n += 2
			pio.PutU16BE(b[n:], obj.Crop.Height)
			n += 2
		}
	}
	return n
}

func (w *WindowDefinition) bodyLen() int {
	return 1 + windowLen*len(w.Windows)
}

func (w *WindowDefinition) marshal(b []byte) (n int) {
	pio.PutU8(b[n:], uint8(len(w.Windows)))
	n++
	for _, win := range w.Windows {
		pio.PutU8(b[n:], win.ID)
		n++
		pio.PutU16BE(b[n:], win.X)
		n += 2
		pio.PutU16BE(b[n:], win.Y)
		n += 2
		pio.PutU16BE(b[n:], win.Width)
		n += 2
		pio.PutU16BE(b[n:], win.Height)
		n += 2
	}
	return n
}

func (o *ObjectDefinition) bodyLen() int {
	n := objectHeaderLen + len(o.Data)
	if o.HasSize() {
		n += objectSizeLen
	}
	return n
}

func (o *ObjectDefinition) marshal(b []byte) (n int) {
	pio.PutU16BE(b[n:], o.ID)
	n += 2
	pio.PutU8(b[n:], o.Version)
	n++
	pio.PutU8(b[n:], o.Sequence)
	n++
	if o.HasSize() {
		pio.PutU24BE(b[n:], o.DataLength)
		n += 3
		pio.PutU16BE(b[n:], o.Width)
		n += 2
		pio.PutU16BE(b[n:], o.Height)
		n += 2
	}
	n += copy(b[n:], o.Data)
	return n
}

func (p *PaletteDefinition) bodyLen() int { return len(p.Payload) }

func (p *PaletteDefinition) marshal(b []byte) int { return copy(b, p.Payload) }

func (*EndOfDisplaySet) bodyLen() int { return 0 }

func (*EndOfDisplaySet) marshal([]byte) int { return 0 }
