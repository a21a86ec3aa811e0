// Package cropdetect resolves the cropped frame size that subtitles should be
// moved onto, either from an ffmpeg crop filter or by running drapto's crop
// detection against the source video.
package cropdetect

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	draptolib "github.com/five82/drapto"
)

// autoApplyThresholdPercent is the share of samples the top candidate needs
// before a multi-ratio detection is trusted.
const autoApplyThresholdPercent = 80.0

// ErrAmbiguous reports a detection with several aspect ratios and no
// dominant candidate.
var ErrAmbiguous = errors.New("cropdetect: multiple aspect ratios detected")

// Candidate is one crop seen during sampling.
type Candidate struct {
	Width   uint16
	Height  uint16
	Filter  string
	Count   int
	Percent float64
}

// Detection is the resolved target frame size.
type Detection struct {
	Width       uint16
	Height      uint16
	Filter      string
	VideoWidth  uint16
	VideoHeight uint16
	Required    bool
	HDR         bool
	Samples     int
	Message     string
	Candidates  []Candidate
}

// detectCrop is swapped in tests so no ffmpeg run is needed.
var detectCrop = draptolib.DetectCrop

// Detect samples video and returns the size of the letterbox-free frame.
// When no crop is required the full video size is returned.
func Detect(ctx context.Context, video string) (Detection, error) {
	video = strings.TrimSpace(video)
	if video == "" {
		return Detection{}, fmt.Errorf("video path is required")
	}
	result, err := detectCrop(ctx, video)
	if err != nil {
		return Detection{}, fmt.Errorf("detect crop in %s: %w", video, err)
	}
	return FromResult(result)
}

// FromResult converts a drapto detection result into a Detection.
func FromResult(result *draptolib.CropDetectionResult) (Detection, error) {
	if result == nil {
		return Detection{}, errors.New("cropdetect: empty detection result")
	}
	videoWidth, err := toDimension(uint64(result.VideoWidth))
	if err != nil {
		return Detection{}, fmt.Errorf("video width: %w", err)
	}
	videoHeight, err := toDimension(uint64(result.VideoHeight))
	if err != nil {
		return Detection{}, fmt.Errorf("video height: %w", err)
	}

	det := Detection{
		Width:       videoWidth,
		Height:      videoHeight,
		VideoWidth:  videoWidth,
		VideoHeight: videoHeight,
		Required:    result.Required,
		HDR:         result.IsHDR,
		Samples:     int(result.TotalSamples),
		Message:     result.Message,
	}
	for _, c := range result.Candidates {
		w, h, err := ParseCropFilter(c.Crop)
		if err != nil {
			continue
		}
		det.Candidates = append(det.Candidates, Candidate{
			Width: w, Height: h, Filter: c.Crop, Count: c.Count, Percent: c.Percent,
		})
	}

	if result.MultipleRatios {
		// Candidates arrive most frequent first; the threshold applies to
		// drapto's top entry even if it is one this package cannot parse.
		if len(result.Candidates) == 0 || result.Candidates[0].Percent < autoApplyThresholdPercent {
			return det, fmt.Errorf("%w: %s", ErrAmbiguous, strings.TrimSpace(result.Message))
		}
		top := result.Candidates[0]
		det.Width, det.Height, err = ParseCropFilter(top.Crop)
		if err != nil {
			return det, fmt.Errorf("top crop candidate: %w", err)
		}
		det.Filter = "crop=" + top.Crop
		return det, nil
	}
	if !result.Required {
		return det, nil
	}

	det.Width, det.Height, err = ParseCropFilter(result.CropFilter)
	if err != nil {
		return det, err
	}
	det.Filter = result.CropFilter
	return det, nil
}

// ParseCropFilter extracts the output size from an ffmpeg crop filter such
// as "crop=1920:800:0:140". The "crop=" prefix and offsets are optional.
func ParseCropFilter(filter string) (uint16, uint16, error) {
	value := strings.TrimPrefix(strings.TrimSpace(filter), "crop=")
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 4 {
		return 0, 0, fmt.Errorf("crop filter %q: expected W:H[:X:Y]", filter)
	}
	w, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("crop filter %q: width: %w", filter, err)
	}
	h, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("crop filter %q: height: %w", filter, err)
	}
	if w == 0 || h == 0 {
		return 0, 0, fmt.Errorf("crop filter %q: width and height must be positive", filter)
	}
	return uint16(w), uint16(h), nil
}

func toDimension(v uint64) (uint16, error) {
	if v == 0 || v > 0xffff {
		return 0, fmt.Errorf("dimension %d out of range", v)
	}
	return uint16(v), nil
}
