package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pgsmod/internal/pgs"
)

type cliTestEnv struct {
	dir        string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("PGSMOD_LOG_LEVEL", "")
	return &cliTestEnv{dir: dir, configPath: filepath.Join(dir, "pgsmod.toml")}
}

func runCLI(t *testing.T, env *cliTestEnv, stdin io.Reader, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func testStream(t *testing.T, y uint16) []byte {
	t.Helper()
	var buf bytes.Buffer
	err := pgs.WriteAll(&buf, []pgs.Segment{
		{PTS: 5 * 90000, Body: &pgs.PresentationComposition{
			Width: 1920, Height: 1080, FrameRate: 0x10, Number: 1, State: pgs.StateEpochStart,
			Objects: []pgs.CompositionObject{{ObjectID: 7, X: 860, Y: y}},
		}},
		{PTS: 5 * 90000, Body: &pgs.WindowDefinition{Windows: []pgs.Window{{ID: 0, X: 860, Y: y, Width: 200, Height: 100}}}},
		{PTS: 5 * 90000, Body: &pgs.PaletteDefinition{Payload: []byte{0, 0, 16, 128, 128, 0, 0}}},
		{PTS: 5 * 90000, Body: &pgs.ObjectDefinition{
			ID: 7, Sequence: pgs.SequenceFirst | pgs.SequenceLast, DataLength: 7, Width: 200, Height: 100,
			Data: []byte{1, 2, 3},
		}},
		{PTS: 5 * 90000, Body: &pgs.EndOfDisplaySet{}},
	})
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func objectY(t *testing.T, data []byte) (uint16, uint16) {
	t.Helper()
	segs, err := pgs.ReadAll(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	pcs := segs[0].Body.(*pgs.PresentationComposition)
	return pcs.Height, pcs.Objects[0].Y
}

func TestCropWithExplicitSize(t *testing.T) {
	env := setupCLITestEnv(t)
	in := filepath.Join(env.dir, "in.sup")
	outPath := filepath.Join(env.dir, "out.sup")
	writeFile(t, in, testStream(t, 500))

	out, stderr, err := runCLI(t, env, nil, "-w", "1920", "-h", "800", "--summary", in, outPath)
	if err != nil {
		t.Fatalf("crop: %v (stderr %s)", err, stderr)
	}
	requireContains(t, out, "Crop Summary")
	requireContains(t, out, "1920x800, 30px margin (flags)")
	requireContains(t, out, "Source frames:")
	requireContains(t, out, "1920x1080")
	requireContains(t, stderr, "performing modifications")

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if height, y := objectY(t, data); height != 800 || y != 360 {
		t.Fatalf("height=%d y=%d, want 800 and 360", height, y)
	}
}

func TestCropFilterOverStdio(t *testing.T) {
	env := setupCLITestEnv(t)

	out, stderr, err := runCLI(t, env, bytes.NewReader(testStream(t, 500)),
		"--crop-filter", "crop=1920:800:0:140", "--summary", "-", "-")
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	if height, y := objectY(t, []byte(out)); height != 800 || y != 360 {
		t.Fatalf("height=%d y=%d, want 800 and 360", height, y)
	}
	requireContains(t, stderr, "Crop Summary")
}

func TestCropMarginFromConfigAndFlag(t *testing.T) {
	env := setupCLITestEnv(t)
	writeFile(t, env.configPath, []byte("[crop]\nmargin = 0\n"))
	in := filepath.Join(env.dir, "in.sup")
	writeFile(t, in, testStream(t, 150))

	out, _, err := runCLI(t, env, nil, "-w", "1920", "-h", "800", in, "-")
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	if _, y := objectY(t, []byte(out)); y != 10 {
		t.Fatalf("y = %d with config margin 0, want 10", y)
	}

	out, _, err = runCLI(t, env, nil, "-w", "1920", "-h", "800", "-m", "50", in, "-")
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	if _, y := objectY(t, []byte(out)); y != 50 {
		t.Fatalf("y = %d with --margin 50, want 50", y)
	}
}

func TestCropReportsInfeasibleInSummary(t *testing.T) {
	env := setupCLITestEnv(t)
	in := filepath.Join(env.dir, "in.sup")
	writeFile(t, in, testStream(t, 500))

	out, stderr, err := runCLI(t, env, nil, "-w", "1920", "-h", "120", "--summary", in, filepath.Join(env.dir, "out.sup"))
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	requireContains(t, out, "[WARN] 2 coordinates pinned to 0")
	requireContains(t, stderr, "item cannot fit within new margins")
}

func TestCropRequiresExactlyOneSizeSource(t *testing.T) {
	env := setupCLITestEnv(t)
	in := filepath.Join(env.dir, "in.sup")
	writeFile(t, in, testStream(t, 500))
	outPath := filepath.Join(env.dir, "out.sup")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"none", []string{in, outPath}, "a crop size is required"},
		{"width only", []string{"-w", "1920", in, outPath}, "must be given together"},
		{"zero height", []string{"-w", "1920", "-h", "0", in, outPath}, "must be positive"},
		{"conflict", []string{"-w", "1920", "-h", "800", "--crop-filter", "crop=1920:800:0:140", in, outPath}, "mutually exclusive"},
		{"bad filter", []string{"--crop-filter", "crop=wide", in, outPath}, "crop filter"},
		{"one path", []string{"-w", "1920", "-h", "800", in}, "accepts 2 arg(s)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := runCLI(t, env, nil, tc.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			requireContains(t, err.Error(), tc.want)
			if _, statErr := os.Stat(outPath); !os.IsNotExist(statErr) {
				t.Fatal("output should not be created")
			}
		})
	}
}

func TestCropMalformedInputLeavesNoOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	in := filepath.Join(env.dir, "in.sup")
	stream := testStream(t, 500)
	writeFile(t, in, stream[:len(stream)-5])
	outPath := filepath.Join(env.dir, "out.sup")

	_, _, err := runCLI(t, env, nil, "-w", "1920", "-h", "800", in, outPath)
	if err == nil {
		t.Fatal("expected error for truncated input")
	}
	requireContains(t, err.Error(), "bitstream")
	if _, statErr := os.Stat(outPath); !os.IsNotExist(statErr) {
		t.Fatal("output should not be created")
	}
}

func TestInspectTableAndJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	in := filepath.Join(env.dir, "in.sup")
	writeFile(t, in, testStream(t, 500))

	out, _, err := runCLI(t, env, nil, "inspect", in)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"PCS", "WDS", "PDS", "ODS", "END", "00:00:05.000", "#1 1920x1080 epoch-start", "obj 7 @ (860,500)", "5 segments, 1 display sets"} {
		requireContains(t, out, want)
	}

	out, _, err = runCLI(t, env, nil, "inspect", "--json", in)
	if err != nil {
		t.Fatalf("inspect --json: %v", err)
	}
	var report inspectReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if report.Input != in || report.Segments != 5 || report.DisplaySets != 1 {
		t.Fatalf("unexpected report header %+v", report)
	}
	if len(report.Resolutions) != 1 || report.Resolutions[0] != "1920x1080" {
		t.Fatalf("resolutions = %v, want [1920x1080]", report.Resolutions)
	}
	views := report.Items
	if len(views) != 5 {
		t.Fatalf("len(items) = %d, want 5", len(views))
	}
	if views[0].Composition == nil || views[0].Composition.Objects[0].Y != 500 {
		t.Fatalf("unexpected composition view %+v", views[0].Composition)
	}
	if views[3].Object == nil || views[3].Object.Sequence != "first+last" || views[3].Object.Data != 3 {
		t.Fatalf("unexpected object view %+v", views[3].Object)
	}
	if views[1].Offset != int64(pgs.HeaderLen+views[0].Length) {
		t.Fatalf("unexpected offset %d", views[1].Offset)
	}
	if views[2].Palette == nil || views[2].Palette.Entries != 1 {
		t.Fatalf("unexpected palette view %+v", views[2].Palette)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, nil, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "(missing, defaults used)")
	requireContains(t, out, "stderr only")
	requireContains(t, out, "Configuration valid")

	out, _, err = runCLI(t, env, nil, "config", "init", "--path", env.configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Sample Configuration")
	requireContains(t, out, env.configPath+" (created)")

	if _, _, err := runCLI(t, env, nil, "config", "init", "--path", env.configPath); err == nil {
		t.Fatal("expected error when config already exists")
	}
	out, _, err = runCLI(t, env, nil, "config", "init", "--path", env.configPath, "--overwrite")
	if err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	requireContains(t, out, "(replaced)")

	t.Setenv("PGSMOD_LOG_LEVEL", "debug")
	out, _, err = runCLI(t, env, nil, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "[OK] "+env.configPath)
	requireContains(t, out, "30px")
	requireContains(t, out, "debug (from PGSMOD_LOG_LEVEL)")
}

func TestHelpDocumentsPositiveCropSize(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, nil, "--help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, flag := range []string{"crop-width", "crop-height"} {
		found := false
		for _, line := range strings.Split(out, "\n") {
			if strings.Contains(line, "--"+flag) && strings.Contains(line, "(must be positive)") {
				found = true
			}
		}
		if !found {
			t.Fatalf("help for --%s does not mention that it must be positive:\n%s", flag, out)
		}
	}
}

func TestZeroCropSizeIsRejected(t *testing.T) {
	env := setupCLITestEnv(t)
	in := filepath.Join(env.dir, "in.sup")
	writeFile(t, in, testStream(t, 500))

	_, _, err := runCLI(t, env, nil, "-w", "0", "-h", "800", in, filepath.Join(env.dir, "out.sup"))
	if err == nil {
		t.Fatal("expected zero width to be rejected")
	}
	requireContains(t, err.Error(), "must be positive")
}

func TestInvalidConfigIsReported(t *testing.T) {
	env := setupCLITestEnv(t)
	writeFile(t, env.configPath, []byte("[crop]\nmargin = -4\n"))

	_, _, err := runCLI(t, env, nil, "inspect", filepath.Join(env.dir, "missing.sup"))
	if err == nil {
		t.Fatal("expected config error")
	}
	requireContains(t, err.Error(), "crop.margin")
}

func TestLogFormatOverride(t *testing.T) {
	env := setupCLITestEnv(t)
	in := filepath.Join(env.dir, "in.sup")
	writeFile(t, in, testStream(t, 500))

	_, stderr, err := runCLI(t, env, nil, "--log-format", "json", "-w", "1920", "-h", "800", in, filepath.Join(env.dir, "out.sup"))
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	line := strings.SplitN(strings.TrimSpace(stderr), "\n", 2)[0]
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		t.Fatalf("expected json log line, got %q: %v", line, err)
	}
	if record["session_id"] == nil {
		t.Fatalf("expected session id on json records, got %v", record)
	}
}
