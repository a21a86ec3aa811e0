package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"pgsmod/internal/pgs"
)

// inspectReport is the document printed by "inspect --json".
type inspectReport struct {
	Input       string        `json:"input"`
	Segments    int           `json:"segments"`
	DisplaySets int           `json:"display_sets"`
	Resolutions []string      `json:"resolutions"`
	LastPTS     string        `json:"last_pts"`
	Items       []segmentView `json:"items"`
}

type segmentView struct {
	Index       int              `json:"index"`
	Offset      int64            `json:"offset"`
	Type        string           `json:"type"`
	PTS         uint32           `json:"pts"`
	DTS         uint32           `json:"dts"`
	Time        string           `json:"time"`
	Length      int              `json:"length"`
	Composition *compositionView `json:"composition,omitempty"`
	Windows     []windowView     `json:"windows,omitempty"`
	Object      *objectView      `json:"object,omitempty"`
	Palette     *paletteView     `json:"palette,omitempty"`
}

type compositionView struct {
	Number  uint16                  `json:"number"`
	Width   uint16                  `json:"width"`
	Height  uint16                  `json:"height"`
	State   string                  `json:"state"`
	Objects []compositionObjectView `json:"objects"`
}

type compositionObjectView struct {
	ObjectID uint16    `json:"object_id"`
	WindowID uint8     `json:"window_id"`
	X        uint16    `json:"x"`
	Y        uint16    `json:"y"`
	Crop     *cropView `json:"crop,omitempty"`
}

type cropView struct {
	X      uint16 `json:"x"`
	Y      uint16 `json:"y"`
	Width  uint16 `json:"width"`
	Height uint16 `json:"height"`
}

type windowView struct {
	ID     uint8  `json:"id"`
	X      uint16 `json:"x"`
	Y      uint16 `json:"y"`
	Width  uint16 `json:"width"`
	Height uint16 `json:"height"`
}

type objectView struct {
	ID       uint16 `json:"id"`
	Version  uint8  `json:"version"`
	Sequence string `json:"sequence"`
	Width    uint16 `json:"width,omitempty"`
	Height   uint16 `json:"height,omitempty"`
	Data     int    `json:"data_bytes"`
}

type paletteView struct {
	ID      int `json:"id"`
	Entries int `json:"entries"`
}

func newInspectReport(input string, segs []pgs.Segment) (inspectReport, error) {
	items, err := buildSegmentViews(segs)
	if err != nil {
		return inspectReport{}, err
	}
	report := inspectReport{
		Input:       input,
		Segments:    len(segs),
		Resolutions: []string{},
		LastPTS:     formatTimecode(0),
		Items:       items,
	}
	seen := make(map[string]bool)
	for _, seg := range segs {
		if seg.Type() == pgs.TypeEndOfDisplaySet {
			report.DisplaySets++
		}
		if pcs, ok := seg.Body.(*pgs.PresentationComposition); ok {
			res := fmt.Sprintf("%dx%d", pcs.Width, pcs.Height)
			if !seen[res] {
				seen[res] = true
				report.Resolutions = append(report.Resolutions, res)
			}
		}
	}
	if len(segs) > 0 {
		report.LastPTS = formatTimecode(pgs.Timestamp(segs[len(segs)-1].PTS))
	}
	return report, nil
}

func (r inspectReport) writeJSON(out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// summary is the line printed under the segment table.
func (r inspectReport) summary() string {
	line := fmt.Sprintf("%d segments, %d display sets", r.Segments, r.DisplaySets)
	if len(r.Resolutions) > 0 {
		line += ", " + strings.Join(r.Resolutions, " / ")
	}
	return line + ", last PTS " + r.LastPTS
}

func buildSegmentViews(segs []pgs.Segment) ([]segmentView, error) {
	views := make([]segmentView, 0, len(segs))
	var offset int64
	for i, seg := range segs {
		body, err := pgs.MarshalBody(seg.Body)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		view := segmentView{
			Index:  i,
			Offset: offset,
			Type:   seg.Type().String(),
			PTS:    seg.PTS,
			DTS:    seg.DTS,
			Time:   formatTimecode(pgs.Timestamp(seg.PTS)),
			Length: len(body),
		}
		offset += int64(pgs.HeaderLen + len(body))

		switch b := seg.Body.(type) {
		case *pgs.PresentationComposition:
			cv := &compositionView{
				Number:  b.Number,
				Width:   b.Width,
				Height:  b.Height,
				State:   compositionState(b.State),
				Objects: make([]compositionObjectView, 0, len(b.Objects)),
			}
			for _, obj := range b.Objects {
				ov := compositionObjectView{ObjectID: obj.ObjectID, WindowID: obj.WindowID, X: obj.X, Y: obj.Y}
				if obj.Crop != nil {
					ov.Crop = &cropView{X: obj.Crop.X, Y: obj.Crop.Y, Width: obj.Crop.Width, Height: obj.Crop.Height}
				}
				cv.Objects = append(cv.Objects, ov)
			}
			view.Composition = cv
		case *pgs.WindowDefinition:
			for _, w := range b.Windows {
				view.Windows = append(view.Windows, windowView{ID: w.ID, X: w.X, Y: w.Y, Width: w.Width, Height: w.Height})
			}
		case *pgs.ObjectDefinition:
			view.Object = &objectView{
				ID:       b.ID,
				Version:  b.Version,
				Sequence: objectSequence(b.Sequence),
				Width:    b.Width,
				Height:   b.Height,
				Data:     len(b.Data),
			}
		case *pgs.PaletteDefinition:
			pv := &paletteView{ID: -1}
			if len(b.Payload) >= 2 {
				pv.ID = int(b.Payload[0])
				pv.Entries = (len(b.Payload) - 2) / 5
			}
			view.Palette = pv
		case *pgs.EndOfDisplaySet:
		}
		views = append(views, view)
	}
	return views, nil
}

func compositionState(state uint8) string {
	switch state {
	case pgs.StateNormal:
		return "normal"
	case pgs.StateAcquisitionPoint:
		return "acquisition-point"
	case pgs.StateEpochStart:
		return "epoch-start"
	default:
		return fmt.Sprintf("0x%02x", state)
	}
}

func objectSequence(seq uint8) string {
	var parts []string
	if seq&pgs.SequenceFirst != 0 {
		parts = append(parts, "first")
	}
	if seq&pgs.SequenceLast != 0 {
		parts = append(parts, "last")
	}
	if len(parts) == 0 {
		return "middle"
	}
	return strings.Join(parts, "+")
}

func formatTimecode(d time.Duration) string {
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3_600_000, ms/60_000%60, ms/1000%60, ms%1000)
}
