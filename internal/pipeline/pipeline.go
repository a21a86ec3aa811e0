// Package pipeline drives one crop run: decode the whole input, index object
// sizes, rewrite coordinates, then encode the result.
//
// The output is opened only after every in-memory pass has succeeded. Regular
// files are written through a temporary file that is renamed into place, so a
// failed run never leaves a partial output file behind. A symlinked output
// keeps its link and replaces the target; named pipes and devices are written
// directly.
package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"pgsmod/internal/crop"
	"pgsmod/internal/displayset"
	"pgsmod/internal/fileutil"
	"pgsmod/internal/logging"
	"pgsmod/internal/pgs"
)

// StdioPath selects standard input or output instead of a file.
const StdioPath = "-"

// Request describes one run.
type Request struct {
	Input  string
	Output string
	// Stdin and Stdout back the "-" path; they default to the process streams.
	Stdin  io.Reader
	Stdout io.Writer
	Crop   crop.Config
	Logger *slog.Logger

	// Reporter receives transform diagnostics. Nil logs them through Logger.
	Reporter crop.Reporter
}

// Result summarizes a completed run.
type Result struct {
	Segments int
	Stats    crop.Stats
	BytesIn  int64
	BytesOut int64
	Elapsed  time.Duration
}

// Run executes the pipeline. Context cancellation is observed between
// passes only.
func Run(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	if strings.TrimSpace(req.Input) == "" {
		return Result{}, errors.New("input path is required")
	}
	if strings.TrimSpace(req.Output) == "" {
		return Result{}, errors.New("output path is required")
	}
	if err := req.Crop.Validate(); err != nil {
		return Result{}, err
	}

	ctx = logging.WithInput(ctx, req.Input)
	logger := logging.NewComponentLogger(req.Logger, "pipeline")
	reporter := req.Reporter
	if reporter == nil {
		reporter = crop.LogReporter(req.Logger)
	}

	var result Result

	stageCtx := logging.WithStage(ctx, "decode")
	logging.WithContext(stageCtx, logger).Info("reading segments")
	segs, bytesIn, err := readSegments(req)
	if err != nil {
		err = fmt.Errorf("read %s: %w", describe(req.Input, "<stdin>"), err)
		logFailure(stageCtx, logger, err)
		return result, err
	}
	result.Segments = len(segs)
	result.BytesIn = bytesIn
	if err := ctx.Err(); err != nil {
		return result, err
	}

	stageCtx = logging.WithStage(ctx, "inventory")
	logging.WithContext(stageCtx, logger).Info("inventorying segments", logging.Int("segments", len(segs)))
	inv, err := displayset.Build(segs)
	if err != nil {
		err = fmt.Errorf("inventory: %w", err)
		logFailure(stageCtx, logger, err)
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	stageCtx = logging.WithStage(ctx, "transform")
	logging.WithContext(stageCtx, logger).Info("performing modifications",
		logging.Int("objects", inv.Len()),
		logging.Int("crop_width", int(req.Crop.Width)),
		logging.Int("crop_height", int(req.Crop.Height)),
		logging.Int("margin", int(req.Crop.Margin)),
	)
	result.Stats, err = crop.NewTransformer(req.Crop, inv, reporter).Apply(segs)
	if err != nil {
		err = fmt.Errorf("transform: %w", err)
		logFailure(stageCtx, logger, err)
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	stageCtx = logging.WithStage(ctx, "encode")
	logging.WithContext(stageCtx, logger).Info("writing segments", logging.String("output", describe(req.Output, "<stdout>")))
	result.BytesOut, err = writeSegments(req, segs)
	if err != nil {
		err = fmt.Errorf("write %s: %w", describe(req.Output, "<stdout>"), err)
		logFailure(stageCtx, logger, err)
		return result, err
	}

	result.Elapsed = time.Since(start)
	logger.Debug("run complete",
		logging.Int("segments", result.Segments),
		logging.Int64("bytes_in", result.BytesIn),
		logging.Int64("bytes_out", result.BytesOut),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// ReadInput decodes every segment of path without modifying anything.
func ReadInput(path string, stdin io.Reader) ([]pgs.Segment, error) {
	segs, _, err := readSegments(Request{Input: path, Stdin: stdin})
	return segs, err
}

func readSegments(req Request) ([]pgs.Segment, int64, error) {
	var src io.Reader
	if req.Input == StdioPath {
		src = req.Stdin
		if src == nil {
			src = os.Stdin
		}
	} else {
		file, err := os.Open(req.Input)
		if err != nil {
			return nil, 0, &pgs.TransportError{Op: "open input", Err: err}
		}
		defer file.Close()
		src = file
	}

	reader := pgs.NewReader(bufio.NewReader(src))
	segs, err := reader.ReadAll()
	return segs, reader.Offset(), err
}

func writeSegments(req Request, segs []pgs.Segment) (int64, error) {
	if req.Output != StdioPath {
		n, err := fileutil.WriteAtomic(req.Output, 0o644, func(w io.Writer) error {
			return encodeSegments(pgs.NewWriter(w), segs)
		})
		if err != nil && !errors.Is(err, pgs.ErrTransport) && !errors.Is(err, pgs.ErrBitstream) {
			err = &pgs.TransportError{Op: "write output", Offset: n, Err: err}
		}
		return n, err
	}

	dst := req.Stdout
	if dst == nil {
		dst = os.Stdout
	}
	buffered := bufio.NewWriter(dst)
	writer := pgs.NewWriter(buffered)
	if err := encodeSegments(writer, segs); err != nil {
		return writer.Offset(), err
	}
	if err := buffered.Flush(); err != nil {
		return writer.Offset(), &pgs.TransportError{Op: "flush output", Offset: writer.Offset(), Err: err}
	}
	return writer.Offset(), nil
}

func encodeSegments(writer *pgs.Writer, segs []pgs.Segment) error {
	for i, seg := range segs {
		if err := writer.Write(seg); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
	}
	return nil
}

func logFailure(ctx context.Context, logger *slog.Logger, err error) {
	eventType, hint := "pipeline_failed", "check logs for details"
	switch {
	case errors.Is(err, pgs.ErrBitstream):
		eventType, hint = "bitstream_invalid", "input is not a complete PGS stream"
	case errors.Is(err, pgs.ErrFormatViolation):
		eventType, hint = "format_violation", "stream breaks display set rules; remux the subtitles and retry"
	case errors.Is(err, pgs.ErrTransport):
		eventType, hint = "transport_failed", "check the input and output paths and permissions"
	}
	logging.ErrorWithContext(logging.WithContext(ctx, logger), "run failed", eventType,
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hint),
	)
}

func describe(path, stdio string) string {
	if path == StdioPath {
		return stdio
	}
	return path
}
