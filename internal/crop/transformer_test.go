package crop_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"pgsmod/internal/crop"
	"pgsmod/internal/displayset"
	"pgsmod/internal/logging"
	"pgsmod/internal/pgs"
)

func endToEndStream() []pgs.Segment {
	return []pgs.Segment{
		{PTS: 90000, Body: &pgs.PresentationComposition{
			Width: 1920, Height: 1080, FrameRate: 0x10, Number: 1, State: pgs.StateEpochStart,
			Objects: []pgs.CompositionObject{{ObjectID: 7, X: 860, Y: 500}},
		}},
		{PTS: 90000, Body: &pgs.ObjectDefinition{
			ID: 7, Sequence: pgs.SequenceFirst | pgs.SequenceLast, DataLength: 4, Width: 200, Height: 100,
		}},
		{PTS: 90000, Body: &pgs.EndOfDisplaySet{}},
	}
}

func apply(t *testing.T, cfg crop.Config, segs []pgs.Segment, reporter crop.Reporter) (crop.Stats, error) {
	t.Helper()
	inv, err := displayset.Build(segs)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	return crop.NewTransformer(cfg, inv, reporter).Apply(segs)
}

type recorder struct {
	diags []crop.Diagnostic
}

func (r *recorder) Report(d crop.Diagnostic) { r.diags = append(r.diags, d) }

func (r *recorder) count(kind crop.DiagnosticKind) int {
	n := 0
	for _, d := range r.diags {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

func TestApplyEndToEnd(t *testing.T) {
	segs := endToEndStream()
	rec := &recorder{}

	stats, err := apply(t, crop.Config{Width: 1920, Height: 800, Margin: 30}, segs, rec)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	pcs := segs[0].Body.(*pgs.PresentationComposition)
	if pcs.Width != 1920 || pcs.Height != 800 {
		t.Fatalf("composition size = %dx%d, want 1920x800", pcs.Width, pcs.Height)
	}
	obj := pcs.Objects[0]
	if obj.X != 860 || obj.Y != 360 {
		t.Fatalf("object position = (%d,%d), want (860,360)", obj.X, obj.Y)
	}
	ods := segs[1].Body.(*pgs.ObjectDefinition)
	if ods.Width != 200 || ods.Height != 100 {
		t.Fatalf("object size changed to %dx%d", ods.Width, ods.Height)
	}
	if stats.Compositions != 1 || stats.Objects != 1 || stats.Infeasible != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(stats.Resolutions) != 1 || stats.Resolutions[0] != (crop.Resolution{Width: 1920, Height: 1080}) {
		t.Fatalf("unexpected resolutions %v", stats.Resolutions)
	}
	if rec.count(crop.DiagnosticResolution) != 1 {
		t.Fatalf("expected one resolution diagnostic, got %+v", rec.diags)
	}
}

func TestApplyRemapsCropRect(t *testing.T) {
	segs := []pgs.Segment{
		{Body: &pgs.PresentationComposition{
			Width: 1920, Height: 1080, Number: 3,
			Objects: []pgs.CompositionObject{{
				ObjectID: 1, X: 860, Y: 970,
				Crop: &pgs.CropRect{X: 0, Y: 0, Width: 200, Height: 100},
			}},
		}},
		{Body: &pgs.ObjectDefinition{ID: 1, Sequence: pgs.SequenceFirst, Width: 400, Height: 100}},
	}

	stats, err := apply(t, crop.Config{Width: 1920, Height: 800, Margin: 30}, segs, nil)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	obj := segs[0].Body.(*pgs.PresentationComposition).Objects[0]
	if obj.X != 860 || obj.Y != 670 {
		t.Fatalf("object position = (%d,%d), want (860,670)", obj.X, obj.Y)
	}
	if obj.Crop.X != 30 || obj.Crop.Y != 30 {
		t.Fatalf("crop rect position = (%d,%d), want (30,30)", obj.Crop.X, obj.Crop.Y)
	}
	if obj.Crop.Width != 200 || obj.Crop.Height != 100 {
		t.Fatalf("crop rect size changed to %dx%d", obj.Crop.Width, obj.Crop.Height)
	}
	if stats.CropRects != 1 {
		t.Fatalf("CropRects = %d, want 1", stats.CropRects)
	}
}

func TestApplyRemapsWindowsAndReportsInfeasible(t *testing.T) {
	segs := []pgs.Segment{
		{Body: &pgs.PresentationComposition{Width: 1920, Height: 1080, Number: 1}},
		{Body: &pgs.WindowDefinition{Windows: []pgs.Window{
			{ID: 0, X: 0, Y: 900, Width: 1920, Height: 150},
			{ID: 1, X: 100, Y: 500, Width: 400, Height: 100},
		}}},
		{Body: &pgs.EndOfDisplaySet{}},
	}
	rec := &recorder{}

	stats, err := apply(t, crop.Config{Width: 1920, Height: 800, Margin: 30}, segs, rec)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	windows := segs[1].Body.(*pgs.WindowDefinition).Windows
	if windows[0].X != 0 || windows[0].Y != 620 {
		t.Fatalf("window 0 = (%d,%d), want (0,620)", windows[0].X, windows[0].Y)
	}
	if windows[1].X != 100 || windows[1].Y != 360 {
		t.Fatalf("window 1 = (%d,%d), want (100,360)", windows[1].X, windows[1].Y)
	}
	if stats.Windows != 2 || stats.Infeasible != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	if rec.count(crop.DiagnosticInfeasible) != 1 {
		t.Fatalf("expected one infeasible diagnostic, got %+v", rec.diags)
	}
	for _, d := range rec.diags {
		if d.Kind != crop.DiagnosticInfeasible {
			continue
		}
		if d.Subject != crop.SubjectWindow || d.ID != 0 || d.Axis != crop.AxisX || d.Size != 1920 || d.Crop != 1920 || d.Margin != 30 {
			t.Fatalf("unexpected infeasible diagnostic %+v", d)
		}
		if !strings.Contains(d.Message(), "window 0") {
			t.Fatalf("unexpected message %q", d.Message())
		}
	}
}

func TestApplyFailsOnUnresolvedObject(t *testing.T) {
	segs := []pgs.Segment{
		{Body: &pgs.PresentationComposition{
			Width: 1920, Height: 1080, Number: 4,
			Objects: []pgs.CompositionObject{{ObjectID: 9, X: 10, Y: 10}},
		}},
		{Body: &pgs.EndOfDisplaySet{}},
	}

	_, err := apply(t, crop.Config{Width: 1920, Height: 800, Margin: 30}, segs, nil)
	if !errors.Is(err, pgs.ErrFormatViolation) {
		t.Fatalf("expected format violation, got %v", err)
	}
	var unresolved *crop.UnresolvedObjectError
	if !errors.As(err, &unresolved) {
		t.Fatalf("expected UnresolvedObjectError, got %T", err)
	}
	if unresolved.Key != (displayset.Key{Composition: 4, Object: 9}) || unresolved.Segment != 0 {
		t.Fatalf("unexpected error fields %+v", unresolved)
	}
}

func TestApplyUsesObjectSizeFromOwnDisplaySet(t *testing.T) {
	segs := []pgs.Segment{
		{Body: &pgs.PresentationComposition{Width: 1920, Height: 1080, Number: 1,
			Objects: []pgs.CompositionObject{{ObjectID: 0, X: 0, Y: 1000}}}},
		{Body: &pgs.ObjectDefinition{ID: 0, Sequence: pgs.SequenceFirst, Width: 100, Height: 100}},
		{Body: &pgs.PresentationComposition{Width: 1920, Height: 1080, Number: 2,
			Objects: []pgs.CompositionObject{{ObjectID: 0, X: 0, Y: 1000}}}},
		{Body: &pgs.ObjectDefinition{ID: 0, Sequence: pgs.SequenceFirst, Width: 100, Height: 300}},
	}

	if _, err := apply(t, crop.Config{Width: 1920, Height: 800, Margin: 30}, segs, nil); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	first := segs[0].Body.(*pgs.PresentationComposition).Objects[0]
	second := segs[2].Body.(*pgs.PresentationComposition).Objects[0]
	if first.Y != 670 || second.Y != 470 {
		t.Fatalf("y positions = %d, %d; want 670, 470", first.Y, second.Y)
	}
}

func TestApplyReportsEachResolutionOnce(t *testing.T) {
	var segs []pgs.Segment
	for i, size := range []crop.Resolution{{1920, 1080}, {1920, 1080}, {1280, 720}, {1920, 1080}} {
		segs = append(segs, pgs.Segment{Body: &pgs.PresentationComposition{
			Width: size.Width, Height: size.Height, Number: uint16(i),
		}})
	}
	rec := &recorder{}

	stats, err := apply(t, crop.Config{Width: 1280, Height: 540, Margin: 30}, segs, rec)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	want := []crop.Resolution{{1920, 1080}, {1280, 720}}
	if len(stats.Resolutions) != len(want) {
		t.Fatalf("resolutions = %v, want %v", stats.Resolutions, want)
	}
	for i := range want {
		if stats.Resolutions[i] != want[i] {
			t.Fatalf("resolutions = %v, want %v", stats.Resolutions, want)
		}
	}
	if rec.count(crop.DiagnosticResolution) != 2 {
		t.Fatalf("expected two resolution diagnostics, got %+v", rec.diags)
	}
	if stats.Compositions != 4 {
		t.Fatalf("Compositions = %d, want 4", stats.Compositions)
	}
}

func TestApplyRejectsInvalidConfig(t *testing.T) {
	if _, err := crop.NewTransformer(crop.Config{}, nil, nil).Apply(endToEndStream()); err == nil {
		t.Fatal("expected error for empty crop config")
	}
}

func TestApplyRejectsNilBody(t *testing.T) {
	segs := []pgs.Segment{{Body: nil}}
	if _, err := crop.NewTransformer(crop.Config{Width: 10, Height: 10}, nil, nil).Apply(segs); err == nil {
		t.Fatal("expected error for segment without body")
	}
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	reporter := crop.LogReporter(logger)
	reporter.Report(crop.Diagnostic{Kind: crop.DiagnosticResolution, Resolution: crop.Resolution{Width: 1920, Height: 1080}})
	reporter.Report(crop.Diagnostic{
		Kind: crop.DiagnosticInfeasible, Subject: crop.SubjectObject, ID: 3, Axis: crop.AxisY,
		Size: 900, Crop: 800, Margin: 30,
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two log lines, got %q", buf.String())
	}
	var info, warn map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &info); err != nil {
		t.Fatalf("decode info line: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &warn); err != nil {
		t.Fatalf("decode warn line: %v", err)
	}
	if info["resolution"] != "1920x1080" || info[logging.FieldComponent] != "crop" {
		t.Fatalf("unexpected info record %v", info)
	}
	if warn["level"] != "warn" || warn[logging.FieldEventType] != "crop_infeasible" || warn["axis"] != "y" {
		t.Fatalf("unexpected warn record %v", warn)
	}
}
