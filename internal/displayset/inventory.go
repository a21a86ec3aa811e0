// Package displayset indexes object sizes by display set.
//
// Composition objects reference their bitmap by object id, while the bitmap
// size is only declared by the matching object definition segment. Build
// walks a decoded stream once and records every object size under the
// composition number that was current when the definition appeared.
package displayset

import (
	"fmt"

	"pgsmod/internal/pgs"
)

// Key identifies an object within a display set.
type Key struct {
	Composition uint16
	Object      uint16
}

// Size is the pixel size of an object.
type Size struct {
	Width  uint16
	Height uint16
}

// DuplicateObjectError reports a second definition of the same object id in
// one display set.
type DuplicateObjectError struct {
	Key     Key
	Segment int
}

func (e *DuplicateObjectError) Error() string {
	return fmt.Sprintf("duplicate object id %d in display set %d (segment %d)", e.Key.Object, e.Key.Composition, e.Segment)
}

func (e *DuplicateObjectError) Unwrap() error { return pgs.ErrFormatViolation }

// Inventory maps objects to their sizes. It is read-only once built.
type Inventory struct {
	sizes map[Key]Size
}

// Build records the size of every object definition that carries one.
// Continuation fragments of multi-segment objects are skipped.
func Build(segs []pgs.Segment) (*Inventory, error) {
	inv := &Inventory{sizes: make(map[Key]Size)}
	var composition uint16
	for i, seg := range segs {
		switch body := seg.Body.(type) {
		case *pgs.PresentationComposition:
			composition = body.Number
		case *pgs.ObjectDefinition:
			if !body.HasSize() {
				continue
			}
			key := Key{Composition: composition, Object: body.ID}
			if !inv.insert(key, Size{Width: body.Width, Height: body.Height}) {
				return nil, &DuplicateObjectError{Key: key, Segment: i}
			}
		}
	}
	return inv, nil
}

func (inv *Inventory) insert(key Key, size Size) bool {
	if _, exists := inv.sizes[key]; exists {
		return false
	}
	inv.sizes[key] = size
	return true
}

// Lookup returns the size recorded for key.
func (inv *Inventory) Lookup(key Key) (Size, bool) {
	if inv == nil {
		return Size{}, false
	}
	size, ok := inv.sizes[key]
	return size, ok
}

// Len returns the number of recorded objects.
func (inv *Inventory) Len() int {
	if inv == nil {
		return 0
	}
	return len(inv.sizes)
}
