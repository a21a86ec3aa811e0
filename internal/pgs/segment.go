package pgs

import (
	"fmt"
	"time"
)

// SegmentType is the one-byte type code in a segment header.
type SegmentType uint8

const (
	TypePaletteDefinition       SegmentType = 0x14
	TypeObjectDefinition        SegmentType = 0x15
	TypePresentationComposition SegmentType = 0x16
	TypeWindowDefinition        SegmentType = 0x17
	TypeEndOfDisplaySet         SegmentType = 0x80
)

func (t SegmentType) String() string {
	switch t {
	case TypePaletteDefinition:
		return "PDS"
	case TypeObjectDefinition:
		return "ODS"
	case TypePresentationComposition:
		return "PCS"
	case TypeWindowDefinition:
		return "WDS"
	case TypeEndOfDisplaySet:
		return "END"
	default:
		return fmt.Sprintf("0x%02x", uint8(t))
	}
}

func (t SegmentType) known() bool {
	switch t {
	case TypePaletteDefinition, TypeObjectDefinition, TypePresentationComposition,
		TypeWindowDefinition, TypeEndOfDisplaySet:
		return true
	}
	return false
}

// Composition states carried by PresentationComposition.State.
const (
	StateNormal           uint8 = 0x00
	StateAcquisitionPoint uint8 = 0x40
	StateEpochStart       uint8 = 0x80
)

// ObjectCropped is the CompositionObject.Flags bit announcing a CropRect.
const ObjectCropped uint8 = 0x40

// Object definition sequence flags.
const (
	SequenceFirst uint8 = 0x80
	SequenceLast  uint8 = 0x40
)

// ClockRate is the tick rate of PTS and DTS values.
const ClockRate = 90000

// Timestamp converts a 90 kHz PTS or DTS value to a duration.
func Timestamp(ticks uint32) time.Duration {
	return time.Duration(ticks) * time.Second / ClockRate
}

// Segment is one timestamped unit of a PGS stream.
type Segment struct {
	PTS  uint32
	DTS  uint32
	Body Body
}

// Type reports the type code of the segment body.
func (s Segment) Type() SegmentType {
	if s.Body == nil {
		return 0
	}
	return s.Body.Type()
}

// Body is implemented by the five segment body kinds of this package only.
type Body interface {
	Type() SegmentType

	bodyLen() int
	marshal(b []byte) int
}

// PresentationComposition positions objects on screen for one display set.
type PresentationComposition struct {
	Width         uint16
	Height        uint16
	FrameRate     uint8
	Number        uint16
	State         uint8
	PaletteUpdate uint8
	PaletteID     uint8
	Objects       []CompositionObject
}

// CompositionObject places an object inside a window.
type CompositionObject struct {
	ObjectID uint16
	WindowID uint8
	// Flags is the raw flag byte. The ObjectCropped bit is recomputed from
	// Crop on encode; every other bit passes through.
	Flags uint8
	X     uint16
	Y     uint16
	Crop  *CropRect
}

// CropRect shows only part of an object.
type CropRect struct {
	X      uint16
	Y      uint16
	Width  uint16
	Height uint16
}

// WindowDefinition declares the windows of an epoch.
type WindowDefinition struct {
	Windows []Window
}

type Window struct {
	ID     uint8
	X      uint16
	Y      uint16
	Width  uint16
	Height uint16
}

// ObjectDefinition carries one fragment of an object bitmap. Only the first
// fragment of an object (Sequence has SequenceFirst) carries DataLength,
// Width and Height.
type ObjectDefinition struct {
	ID       uint16
	Version  uint8
	Sequence uint8
	// DataLength is the 24-bit object data length announced by the first
	// fragment. It covers the size fields and the pixel data of all
	// fragments, so it is stored rather than recomputed.
	DataLength uint32
	Width      uint16
	Height     uint16
	Data       []byte
}

// HasSize reports whether the fragment carries the object dimensions.
func (o *ObjectDefinition) HasSize() bool {
	return o.Sequence&SequenceFirst != 0
}

type PaletteDefinition struct {
	Payload []byte
}

type EndOfDisplaySet struct{}

func (*PresentationComposition) Type() SegmentType { return TypePresentationComposition }
func (*WindowDefinition) Type() SegmentType        { return TypeWindowDefinition }
func (*ObjectDefinition) Type() SegmentType        { return TypeObjectDefinition }
func (*PaletteDefinition) Type() SegmentType       { return TypePaletteDefinition }
func (*EndOfDisplaySet) Type() SegmentType         { return TypeEndOfDisplaySet }
