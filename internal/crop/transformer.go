package crop

import (
	"fmt"

	"pgsmod/internal/displayset"
	"pgsmod/internal/pgs"
)

// UnresolvedObjectError reports a composition object whose bitmap size was
// never declared in its display set.
type UnresolvedObjectError struct {
	Key     displayset.Key
	Segment int
}

func (e *UnresolvedObjectError) Error() string {
	return fmt.Sprintf("object id %d in display set %d has no object definition (segment %d)",
		e.Key.Object, e.Key.Composition, e.Segment)
}

func (e *UnresolvedObjectError) Unwrap() error { return pgs.ErrFormatViolation }

// Stats summarizes what Apply changed.
type Stats struct {
	Compositions int
	Windows      int
	Objects      int
	CropRects    int
	Infeasible   int
	// Resolutions lists the distinct full-frame sizes in stream order.
	Resolutions []Resolution
}

// Transformer rewrites segment coordinates for a cropped frame.
type Transformer struct {
	cfg      Config
	inv      *displayset.Inventory
	reporter Reporter

	composition uint16
	full        Resolution
	seen        map[Resolution]struct{}
	segment     int
	stats       Stats
}

// NewTransformer returns a transformer for one stream. A nil reporter
// discards diagnostics.
func NewTransformer(cfg Config, inv *displayset.Inventory, reporter Reporter) *Transformer {
	if reporter == nil {
		reporter = discardReporter{}
	}
	return &Transformer{
		cfg:      cfg,
		inv:      inv,
		reporter: reporter,
		seen:     make(map[Resolution]struct{}),
	}
}

// Apply mutates segs in place. It stops at the first unresolved object
// reference; segments before it have already been rewritten.
func (t *Transformer) Apply(segs []pgs.Segment) (Stats, error) {
	if err := t.cfg.Validate(); err != nil {
		return Stats{}, err
	}
	for i := range segs {
		t.segment = i
		switch body := segs[i].Body.(type) {
		case *pgs.PresentationComposition:
			if err := t.presentation(body); err != nil {
				return t.stats, err
			}
		case *pgs.WindowDefinition:
			t.windows(body)
		case *pgs.PaletteDefinition, *pgs.ObjectDefinition, *pgs.EndOfDisplaySet:
		default:
			return t.stats, fmt.Errorf("segment %d: unsupported body %T", i, segs[i].Body)
		}
	}
	return t.stats, nil
}

func (t *Transformer) presentation(pcs *pgs.PresentationComposition) error {
	t.stats.Compositions++
	t.composition = pcs.Number
	t.full = Resolution{Width: pcs.Width, Height: pcs.Height}
	if _, ok := t.seen[t.full]; !ok {
		t.seen[t.full] = struct{}{}
		t.stats.Resolutions = append(t.stats.Resolutions, t.full)
		t.reporter.Report(Diagnostic{
			Kind:        DiagnosticResolution,
			Segment:     t.segment,
			Composition: t.composition,
			Resolution:  t.full,
		})
	}

	for i := range pcs.Objects {
		obj := &pcs.Objects[i]
		key := displayset.Key{Composition: t.composition, Object: obj.ObjectID}
		size, ok := t.inv.Lookup(key)
		if !ok {
			return &UnresolvedObjectError{Key: key, Segment: t.segment}
		}
		obj.X, obj.Y = t.remap(SubjectObject, obj.ObjectID, obj.X, obj.Y, size.Width, size.Height)
		t.stats.Objects++

		if obj.Crop != nil {
			rect := obj.Crop
			rect.X, rect.Y = t.remap(SubjectCropRect, obj.ObjectID, rect.X, rect.Y, rect.Width, rect.Height)
			t.stats.CropRects++
		}
	}

	pcs.Width = t.cfg.Width
	pcs.Height = t.cfg.Height
	return nil
}

func (t *Transformer) windows(wds *pgs.WindowDefinition) {
	for i := range wds.Windows {
		w := &wds.Windows[i]
		w.X, w.Y = t.remap(SubjectWindow, uint16(w.ID), w.X, w.Y, w.Width, w.Height)
		t.stats.Windows++
	}
}

func (t *Transformer) remap(subject Subject, id, x, y, width, height uint16) (uint16, uint16) {
	newX := t.axis(subject, id, AxisX, t.full.Width, t.cfg.Width, width, x)
	newY := t.axis(subject, id, AxisY, t.full.Height, t.cfg.Height, height, y)
	return newX, newY
}

func (t *Transformer) axis(subject Subject, id uint16, axis Axis, full, crop, size, offset uint16) uint16 {
	value, ok := RemapOffset(full, crop, size, offset, t.cfg.Margin)
	if !ok {
		t.stats.Infeasible++
		t.reporter.Report(Diagnostic{
			Kind:        DiagnosticInfeasible,
			Segment:     t.segment,
			Composition: t.composition,
			Resolution:  t.full,
			Subject:     subject,
			ID:          id,
			Axis:        axis,
			Size:        size,
			Crop:        crop,
			Margin:      t.cfg.Margin,
		})
	}
	return value
}
