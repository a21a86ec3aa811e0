package crop

import (
	"fmt"
	"log/slog"

	"pgsmod/internal/logging"
)

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  uint16
	Height uint16
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// DiagnosticKind classifies transformer diagnostics.
type DiagnosticKind int

const (
	// DiagnosticResolution is reported the first time a full-frame
	// resolution is seen.
	DiagnosticResolution DiagnosticKind = iota
	// DiagnosticInfeasible is reported when an item cannot fit inside the
	// cropped frame with the configured margins and was pinned to 0.
	DiagnosticInfeasible
)

// Axis names the coordinate a diagnostic refers to.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

// Subject names the kind of positioned item.
type Subject string

const (
	SubjectObject   Subject = "object"
	SubjectCropRect Subject = "crop_rect"
	SubjectWindow   Subject = "window"
)

// Diagnostic is a non-fatal observation made during Apply.
type Diagnostic struct {
	Kind        DiagnosticKind
	Segment     int
	Composition uint16
	Resolution  Resolution

	// Infeasible remaps only.
	Subject Subject
	ID      uint16
	Axis    Axis
	Size    uint16
	Crop    uint16
	Margin  uint16
}

// Message renders the diagnostic for humans.
func (d Diagnostic) Message() string {
	switch d.Kind {
	case DiagnosticResolution:
		return fmt.Sprintf("new resolution encountered: %s", d.Resolution)
	case DiagnosticInfeasible:
		return fmt.Sprintf("%s %d (%dpx on %s) cannot fit within %dpx with %dpx margins; pinned to 0",
			d.Subject, d.ID, d.Size, d.Axis, d.Crop, d.Margin)
	default:
		return "unknown diagnostic"
	}
}

// Reporter receives diagnostics from the transformer.
type Reporter interface {
	Report(Diagnostic)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Diagnostic)

func (f ReporterFunc) Report(d Diagnostic) { f(d) }

type discardReporter struct{}

func (discardReporter) Report(Diagnostic) {}

// LogReporter writes diagnostics to a structured logger.
func LogReporter(logger *slog.Logger) Reporter {
	logger = logging.NewComponentLogger(logger, "crop")
	return ReporterFunc(func(d Diagnostic) {
		switch d.Kind {
		case DiagnosticResolution:
			logger.Info("new resolution encountered",
				logging.Any("resolution", d.Resolution),
				logging.Int("segment", d.Segment),
				logging.Int("composition", int(d.Composition)),
			)
		case DiagnosticInfeasible:
			logging.WarnWithContext(logger, "item cannot fit within new margins", "crop_infeasible",
				logging.String("subject", string(d.Subject)),
				logging.Int("id", int(d.ID)),
				logging.String("axis", string(d.Axis)),
				logging.Int("size", int(d.Size)),
				logging.Int("crop", int(d.Crop)),
				logging.Int("margin", int(d.Margin)),
				logging.Int("segment", d.Segment),
				logging.Int("composition", int(d.Composition)),
				logging.String(logging.FieldErrorHint, "lower --margin or verify the crop size"),
				logging.String(logging.FieldImpact, "subtitle pinned to the frame origin and may overflow"),
			)
		}
	})
}
