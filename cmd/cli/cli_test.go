package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/himanishpuri/FretCoach/internal/audio"
)

type cliEnv struct {
	dir string
}

func setupCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FRETCOACH_CONFIG", "")
	t.Setenv("FRETCOACH_DB_PATH", filepath.Join(dir, "cli.sqlite3"))
	t.Setenv("FRETCOACH_DATA_DIR", filepath.Join(dir, "refs"))
	t.Setenv("FRETCOACH_TEMP_DIR", filepath.Join(dir, "tmp"))
	t.Setenv("FRETCOACH_LOG_LEVEL", "error")
	return &cliEnv{dir: dir}
}

func (e *cliEnv) tone(t *testing.T, name string, freq float64) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := audio.WriteWAVFile(path, audio.Sine(freq, 0.5, 22050, 1), 22050); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

var refIDPattern = regexp.MustCompile(`Added reference (\S+)`)

func TestReferenceWorkflow(t *testing.T) {
	env := setupCLIEnv(t)
	refPath := env.tone(t, "ref.wav", 110)

	out, err := runCLI(t, "reference", "add", refPath, "--title", "Open A", "--performer", "HOTEI")
	if err != nil {
		t.Fatalf("reference add: %v", err)
	}
	m := refIDPattern.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("expected reference ID in output, got %q", out)
	}
	id := m[1]

	out, err = runCLI(t, "reference", "list")
	if err != nil {
		t.Fatalf("reference list: %v", err)
	}
	if !strings.Contains(out, "Open A") || !strings.Contains(out, "1 reference(s)") {
		t.Errorf("expected listed reference, got %q", out)
	}

	chart := filepath.Join(env.dir, "chart.png")
	out, err = runCLI(t, "evaluate", id, env.tone(t, "take.wav", 110), "--chart", chart, "--prompt")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	for _, want := range []string{"Open A (HOTEI)", "excellent", "guitar teacher", "Chart written"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in evaluate output, got %q", want, out)
		}
	}
	if _, err := os.Stat(chart); err != nil {
		t.Errorf("expected chart file: %v", err)
	}

	out, err = runCLI(t, "attempts", id)
	if err != nil {
		t.Fatalf("attempts: %v", err)
	}
	if !strings.Contains(out, "excellent") {
		t.Errorf("expected attempt row, got %q", out)
	}

	if _, err := runCLI(t, "reference", "delete", id); err != nil {
		t.Fatalf("reference delete: %v", err)
	}
	if _, err := runCLI(t, "attempts", id); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestReferenceAddValidation(t *testing.T) {
	setupCLIEnv(t)

	if _, err := runCLI(t, "reference", "add"); err == nil {
		t.Error("expected error without a source")
	}
	if _, err := runCLI(t, "reference", "add", "x.wav"); err == nil || !strings.Contains(err.Error(), "--title") {
		t.Errorf("expected title error, got %v", err)
	}
	if _, err := runCLI(t, "reference", "add", "x.wav", "--youtube-url", "https://youtu.be/dQw4w9WgXcQ"); err == nil {
		t.Error("expected error for both file and URL")
	}
}

func TestPitchAndCompare(t *testing.T) {
	env := setupCLIEnv(t)
	a := env.tone(t, "a.wav", 110)

	chart := filepath.Join(env.dir, "pitch.png")
	out, err := runCLI(t, "pitch", a, "--limit", "3", "--chart", chart)
	if err != nil {
		t.Fatalf("pitch: %v", err)
	}
	if !strings.Contains(out, "median A2") || !strings.Contains(out, "more") {
		t.Errorf("unexpected pitch output %q", out)
	}
	if info, err := os.Stat(chart); err != nil || info.Size() == 0 {
		t.Errorf("expected pitch chart PNG, stat err = %v", err)
	}

	out, err = runCLI(t, "compare", a, env.tone(t, "b.wav", 116.5))
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if !strings.Contains(out, "needs-work") {
		t.Errorf("expected needs-work band a semitone off, got %q", out)
	}

	if _, err := runCLI(t, "compare", a, filepath.Join(env.dir, "missing.wav")); err == nil || !strings.Contains(err.Error(), "retry") {
		t.Errorf("expected retry hint for missing take, got %v", err)
	}
}

func TestSpectrogramCommand(t *testing.T) {
	env := setupCLIEnv(t)
	out := filepath.Join(env.dir, "spec.png")

	if _, err := runCLI(t, "spectrogram", env.tone(t, "s.wav", 440), "-o", out, "--width", "128", "--height", "64"); err != nil {
		t.Fatalf("spectrogram: %v", err)
	}
	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		t.Errorf("expected spectrogram PNG, stat err = %v", err)
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	setupCLIEnv(t)

	if _, err := runCLI(t, "--estimator", "crepe", "reference", "list"); err == nil {
		t.Error("expected invalid estimator to be rejected")
	}
}
