package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pgsmod/internal/crop"
	"pgsmod/internal/cropdetect"
	"pgsmod/internal/logging"
	"pgsmod/internal/pipeline"
)

type cropOptions struct {
	width      uint16
	height     uint16
	margin     uint16
	filter     string
	detectFrom string
	summary    bool
}

// cropTarget is the resolved frame size and where it came from.
type cropTarget struct {
	width  uint16
	height uint16
	source string
}

func runCrop(cmd *cobra.Command, ctx *commandContext, opts *cropOptions, input, output string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	target, err := resolveCropTarget(cmd, opts)
	if err != nil {
		return err
	}

	margin := uint16(cfg.Crop.Margin)
	if cmd.Flags().Changed("margin") {
		margin = opts.margin
	}

	logging.NewComponentLogger(logger, "cli").Debug("crop target resolved",
		logging.String("source", target.source),
		logging.Int("width", int(target.width)),
		logging.Int("height", int(target.height)),
		logging.Int("margin", int(margin)),
	)

	result, err := pipeline.Run(cmd.Context(), pipeline.Request{
		Input:  input,
		Output: output,
		Stdin:  cmd.InOrStdin(),
		Stdout: cmd.OutOrStdout(),
		Crop:   crop.Config{Width: target.width, Height: target.height, Margin: margin},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	if opts.summary {
		// Stdout carries subtitle data when writing to "-".
		out := cmd.OutOrStdout()
		if output == pipeline.StdioPath {
			out = cmd.ErrOrStderr()
		}
		printCropSummary(out, input, output, target, margin, result, shouldColorize(out))
	}
	return nil
}

func resolveCropTarget(cmd *cobra.Command, opts *cropOptions) (cropTarget, error) {
	flags := cmd.Flags()
	explicit := flags.Changed("crop-width") || flags.Changed("crop-height")
	filter := strings.TrimSpace(opts.filter)
	video := strings.TrimSpace(opts.detectFrom)

	sources := 0
	for _, set := range []bool{explicit, filter != "", video != ""} {
		if set {
			sources++
		}
	}
	switch {
	case sources == 0:
		return cropTarget{}, errors.New("a crop size is required: use --crop-width and --crop-height, --crop-filter, or --detect-from")
	case sources > 1:
		return cropTarget{}, errors.New("--crop-width/--crop-height, --crop-filter and --detect-from are mutually exclusive")
	}

	switch {
	case explicit:
		if !flags.Changed("crop-width") || !flags.Changed("crop-height") {
			return cropTarget{}, errors.New("--crop-width and --crop-height must be given together")
		}
		if opts.width == 0 || opts.height == 0 {
			return cropTarget{}, errors.New("--crop-width and --crop-height must be positive")
		}
		return cropTarget{width: opts.width, height: opts.height, source: "flags"}, nil
	case filter != "":
		w, h, err := cropdetect.ParseCropFilter(filter)
		if err != nil {
			return cropTarget{}, err
		}
		return cropTarget{width: w, height: h, source: "crop filter"}, nil
	default:
		det, err := cropdetect.Detect(cmd.Context(), video)
		if err != nil {
			return cropTarget{}, err
		}
		source := "detected"
		if !det.Required {
			source = "detected (no crop required)"
		}
		return cropTarget{width: det.Width, height: det.Height, source: source}, nil
	}
}

func printCropSummary(out io.Writer, input, output string, target cropTarget, margin uint16, result pipeline.Result, colorize bool) {
	stats := result.Stats
	resolutions := make([]string, 0, len(stats.Resolutions))
	for _, r := range stats.Resolutions {
		resolutions = append(resolutions, r.String())
	}
	if len(resolutions) == 0 {
		resolutions = append(resolutions, "none")
	}

	lines := []statusLine{
		{"Input", statusInfo, describePath(input, "stdin")},
		{"Output", statusInfo, describePath(output, "stdout")},
		{"Target", statusInfo, fmt.Sprintf("%dx%d, %dpx margin (%s)", target.width, target.height, margin, target.source)},
		{"Source frames", statusInfo, strings.Join(resolutions, ", ")},
		{"Segments", statusInfo, fmt.Sprintf("%d (%d bytes)", result.Segments, result.BytesOut)},
		{"Compositions", statusOK, fmt.Sprintf("%d", stats.Compositions)},
		{"Objects moved", statusOK, fmt.Sprintf("%d", stats.Objects)},
		{"Crop rects moved", statusOK, fmt.Sprintf("%d", stats.CropRects)},
		{"Windows moved", statusOK, fmt.Sprintf("%d", stats.Windows)},
	}
	if stats.Infeasible > 0 {
		lines = append(lines, statusLine{"Infeasible", statusWarn, fmt.Sprintf("%d coordinates pinned to 0; lower --margin", stats.Infeasible)})
	} else {
		lines = append(lines, statusLine{"Infeasible", statusOK, "none"})
	}

	writeReport(out, "Crop Summary", lines, colorize)
}

func describePath(path, stdio string) string {
	if path == pipeline.StdioPath {
		return stdio
	}
	return path
}
