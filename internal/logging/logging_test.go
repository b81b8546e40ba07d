package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConsoleIsJSONWhenNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := Setup(Options{Console: &buf})
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	logger.Info("backend ready", "component", "supervisor")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected a JSON line, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "backend ready" || rec["component"] != "supervisor" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := Setup(Options{Level: "warn", Console: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("quiet")
	logger.Warn("loud")

	if strings.Contains(buf.String(), "quiet") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "loud") {
		t.Error("warn record should pass")
	}
}

func TestInteractiveSuppressesConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := Setup(Options{Interactive: true, Console: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Error("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no console output in interactive mode, got %q", buf.String())
	}
}

func TestFileSinkAlongsideConsole(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "sidecar.log")
	logger, closer, err := Setup(Options{File: path, Console: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.With("component", "probe").Info("attempt failed", "attempt", 3)
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	for name, out := range map[string]string{"file": string(data), "console": buf.String()} {
		if !strings.Contains(out, `"component":"probe"`) || !strings.Contains(out, `"attempt":3`) {
			t.Errorf("%s output missing attrs: %q", name, out)
		}
	}
}

func TestInteractiveWithFileOnlyWritesFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "sidecar.log")
	logger, closer, err := Setup(Options{File: path, Interactive: true, Console: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("to file")
	closer.Close()

	if buf.Len() != 0 {
		t.Error("console should stay silent")
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "to file") {
		t.Errorf("expected record in file, got %q", data)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("trace"); err == nil {
		t.Error("expected error for unknown level")
	}
}
