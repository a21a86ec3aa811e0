package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"pgsmod/internal/cropdetect"
	"pgsmod/internal/logging"
)

func newDetectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "detect VIDEO",
		Short: "Run crop detection on a video and print the cropped frame size",
		Long: `Run crop detection on a video and print the cropped frame size.

This samples the video with ffmpeg the same way --detect-from does, so it can
be used to check the size pgsmod would pick before rewriting subtitles. When
several aspect ratios are found and none dominates, the candidate list is
printed and the command fails.

Example:
  pgsmod detect movie.mkv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			start := time.Now()

			det, err := cropdetect.Detect(cmd.Context(), args[0])
			if err != nil && !errors.Is(err, cropdetect.ErrAmbiguous) {
				return err
			}
			logging.NewComponentLogger(logger, "cli").Debug("crop detection finished",
				logging.String("video", args[0]),
				logging.Int("samples", det.Samples),
				logging.Bool("required", det.Required),
				logging.Duration("elapsed", time.Since(start)),
			)
			printDetection(out, args[0], det, err, time.Since(start), shouldColorize(out))
			return err
		},
	}
}

func printDetection(out io.Writer, video string, det cropdetect.Detection, detectErr error, elapsed time.Duration, colorize bool) {
	dynamicRange := "SDR"
	if det.HDR {
		dynamicRange = "HDR"
	}
	lines := []statusLine{
		{"Video", statusInfo, video},
		{"Resolution", statusInfo, fmt.Sprintf("%dx%d %s", det.VideoWidth, det.VideoHeight, dynamicRange)},
		{"Samples", statusInfo, fmt.Sprintf("%d", det.Samples)},
		{"Duration", statusInfo, elapsed.Round(time.Millisecond).String()},
	}
	switch {
	case detectErr != nil:
		lines = append(lines, statusLine{"Result", statusWarn, det.Message})
	case det.Required:
		lines = append(lines, statusLine{"Result", statusOK, fmt.Sprintf("%dx%d (%s)", det.Width, det.Height, det.Filter)})
	default:
		lines = append(lines, statusLine{"Result", statusOK, "no crop needed"})
	}
	writeReport(out, "Crop Detection", lines, colorize)

	if len(det.Candidates) == 0 {
		return
	}
	rows := make([][]string, 0, len(det.Candidates))
	for i, c := range det.Candidates {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			"crop=" + c.Filter,
			fmt.Sprintf("%dx%d", c.Width, c.Height),
			fmt.Sprintf("%d", c.Count),
			fmt.Sprintf("%.1f%%", c.Percent),
		})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable([]tableColumn{
		{title: "#", align: text.AlignRight},
		{title: "Filter", align: text.AlignLeft},
		{title: "Size", align: text.AlignLeft},
		{title: "Samples", align: text.AlignRight},
		{title: "Share", align: text.AlignRight},
	}, rows))
}
