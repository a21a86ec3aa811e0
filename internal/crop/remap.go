// Package crop moves PGS subtitle coordinates onto a centre-cropped frame.
//
// The video is assumed to have been cropped symmetrically: half of the
// removed width is taken from each side and half of the removed height from
// top and bottom. Every object, crop rectangle and window position is
// shifted by that half-difference and then clamped so that it keeps at least
// Margin pixels to each edge of the new frame. Sizes never change.
package crop

import "errors"

// Config describes the cropped frame.
type Config struct {
	Width  uint16
	Height uint16
	Margin uint16
}

// Validate rejects an empty target frame. The margin is checked per object
// during the transform instead.
func (c Config) Validate() error {
	if c.Width == 0 {
		return errors.New("crop width must be positive")
	}
	if c.Height == 0 {
		return errors.New("crop height must be positive")
	}
	return nil
}

// RemapOffset converts a position on one axis of the full frame to the
// cropped frame. The result keeps margin pixels to both edges. When an item
// of this size cannot fit between the margins it returns (0, false).
//
// Arithmetic is signed: a position inside the cropped-away band saturates at
// zero and then snaps to margin, and a crop larger than the frame shifts
// positions away from the origin.
func RemapOffset(full, crop, size, offset, margin uint16) (uint16, bool) {
	c, s, m := int(crop), int(size), int(margin)
	if s+2*m > c {
		return 0, false
	}

	shift := (int(full) - c) / 2
	shifted := int(offset) - shift
	if shifted < 0 {
		shifted = 0
	}

	switch {
	case shifted < m:
		return margin, true
	case shifted+s+m > c:
		return uint16(c - s - m), true
	default:
		return uint16(shifted), true
	}
}
