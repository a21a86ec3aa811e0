package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string
	var logFormatFlag string

	ctx := newCommandContext(&configFlag, &logLevelFlag, &logFormatFlag)
	opts := &cropOptions{}

	rootCmd := &cobra.Command{
		Use:   "pgsmod [flags] INPUT OUTPUT",
		Short: "Move PGS subtitles onto a cropped video frame",
		Long: `Rewrite a PGS (.sup) subtitle stream for a centre-cropped video.

Every subtitle object, crop rectangle and window is shifted by half of the
removed width and height, then clamped so that it keeps --margin pixels from
each edge of the new frame. Bitmaps, palettes and timing are left untouched.

The cropped size comes from exactly one of:
  --crop-width and --crop-height
  --crop-filter crop=W:H:X:Y   (as printed by ffmpeg cropdetect)
  --detect-from VIDEO          (runs crop detection on the source video)

Use "-" for INPUT or OUTPUT to read from stdin or write to stdout.

Example:
  pgsmod -w 1920 -h 800 movie.sup movie.cropped.sup
  pgsmod --crop-filter crop=1920:800:0:140 - - < in.sup > out.sup`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrop(cmd, ctx, opts, args[0], args[1])
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "Log format override (console, json)")

	flags := rootCmd.Flags()
	flags.Uint16VarP(&opts.width, "crop-width", "w", 0, "Width of the cropped frame in pixels (must be positive)")
	flags.Uint16VarP(&opts.height, "crop-height", "h", 0, "Height of the cropped frame in pixels (must be positive)")
	flags.Uint16VarP(&opts.margin, "margin", "m", 0, "Minimum distance from subtitles to the frame edge (default from config, 30)")
	flags.StringVar(&opts.filter, "crop-filter", "", "ffmpeg crop filter describing the cropped frame (crop=W:H:X:Y)")
	flags.StringVar(&opts.detectFrom, "detect-from", "", "Run crop detection on this video to find the cropped frame")
	flags.BoolVar(&opts.summary, "summary", false, "Print a summary of the changes")

	rootCmd.AddCommand(newInspectCommand(ctx))
	rootCmd.AddCommand(newDetectCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
