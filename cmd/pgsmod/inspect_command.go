package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"pgsmod/internal/logging"
	"pgsmod/internal/pipeline"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect INPUT",
		Short: "List the segments of a PGS stream without modifying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			segs, err := pipeline.ReadInput(args[0], cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read %s: %w", describePath(args[0], "stdin"), err)
			}
			logging.NewComponentLogger(logger, "cli").Debug("stream decoded",
				logging.String(logging.FieldInput, args[0]),
				logging.Int("segments", len(segs)),
			)
			report, err := newInspectReport(args[0], segs)
			if err != nil {
				return err
			}
			if asJSON {
				return report.writeJSON(cmd.OutOrStdout())
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSegmentTable(report.Items))
			fmt.Fprintln(cmd.OutOrStdout(), report.summary())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON instead of a table")
	return cmd
}

func renderSegmentTable(views []segmentView) string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{
			fmt.Sprintf("%d", v.Index),
			fmt.Sprintf("%d", v.Offset),
			v.Time,
			v.Type,
			fmt.Sprintf("%d", v.Length),
			segmentDetails(v),
		})
	}
	return renderTable([]tableColumn{
		{title: "#", align: text.AlignRight},
		{title: "Offset", align: text.AlignRight},
		{title: "PTS", align: text.AlignLeft},
		{title: "Type", align: text.AlignLeft},
		{title: "Bytes", align: text.AlignRight},
		{title: "Details", align: text.AlignLeft, maxWidth: 72},
	}, rows)
}

func segmentDetails(v segmentView) string {
	switch {
	case v.Composition != nil:
		c := v.Composition
		parts := []string{fmt.Sprintf("#%d %dx%d %s", c.Number, c.Width, c.Height, c.State)}
		for _, obj := range c.Objects {
			part := fmt.Sprintf("obj %d @ (%d,%d)", obj.ObjectID, obj.X, obj.Y)
			if obj.Crop != nil {
				part += fmt.Sprintf(" crop %dx%d+%d+%d", obj.Crop.Width, obj.Crop.Height, obj.Crop.X, obj.Crop.Y)
			}
			parts = append(parts, part)
		}
		return strings.Join(parts, "; ")
	case len(v.Windows) > 0:
		parts := make([]string, 0, len(v.Windows))
		for _, w := range v.Windows {
			parts = append(parts, fmt.Sprintf("win %d %dx%d @ (%d,%d)", w.ID, w.Width, w.Height, w.X, w.Y))
		}
		return strings.Join(parts, "; ")
	case v.Object != nil:
		o := v.Object
		if o.Width == 0 && o.Height == 0 {
			return fmt.Sprintf("obj %d v%d %s %dB", o.ID, o.Version, o.Sequence, o.Data)
		}
		return fmt.Sprintf("obj %d v%d %s %dx%d %dB", o.ID, o.Version, o.Sequence, o.Width, o.Height, o.Data)
	case v.Palette != nil:
		if v.Palette.ID < 0 {
			return "palette (empty)"
		}
		return fmt.Sprintf("palette %d, %d entries", v.Palette.ID, v.Palette.Entries)
	default:
		return ""
	}
}
