package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestHandler_Lines(t *testing.T) {
	var console, file bytes.Buffer
	logger := slog.New(NewHandler(Options{
		Console: &console,
		File:    &file,
		NoColor: true,
	}))

	logger.Info("[1/2] (50.00%) go.top | tersedia")
	logger.Error("checkpoint failed, continuing", "results", 100, "err", "disk full")
	logger.Debug("hidden at info level")

	wantConsole := "[1/2] (50.00%) go.top | tersedia\n" +
		"checkpoint failed, continuing results=100 err=\"disk full\"\n"
	if console.String() != wantConsole {
		t.Errorf("console output:\n%q\nwant:\n%q", console.String(), wantConsole)
	}

	lines := strings.Split(strings.TrimSuffix(file.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 file lines, got %d: %q", len(lines), file.String())
	}

	re := regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z\] `)
	for _, line := range lines {
		if !re.MatchString(line) {
			t.Errorf("line %q lacks an ISO-8601 UTC timestamp prefix", line)
		}
	}
	if !strings.HasSuffix(lines[0], "] [1/2] (50.00%) go.top | tersedia") {
		t.Errorf("unexpected first line %q", lines[0])
	}
}

func TestHandler_TimestampIsUTC(t *testing.T) {
	var file bytes.Buffer
	h := NewHandler(Options{File: &file})

	loc := time.FixedZone("WIB", 7*60*60)
	r := slog.NewRecord(time.Date(2024, 5, 1, 7, 30, 0, 0, loc), slog.LevelInfo, "hello", 0)
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatal(err)
	}

	if got := file.String(); got != "[2024-05-01T00:30:00.000Z] hello\n" {
		t.Errorf("unexpected line %q", got)
	}
}

func TestHandler_WithAttrsAndGroup(t *testing.T) {
	var console bytes.Buffer
	logger := slog.New(NewHandler(Options{Console: &console, NoColor: true}))

	logger.With("run", "abc").WithGroup("probe").Info("done", "domain", "go.top")

	if got := console.String(); got != "done run=abc probe.domain=go.top\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestNew_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "log_domain.txt")

	var console bytes.Buffer
	logger, closer, err := New(Config{File: path, Level: "debug", NoColor: true}, &console)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Debug("Mengecek domain: go.top")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.HasSuffix(string(raw), "] Mengecek domain: go.top\n") {
		t.Errorf("unexpected log file content %q", raw)
	}
}

func TestParseLevel(t *testing.T) {
	if l, err := ParseLevel("warn"); err != nil || l != slog.LevelWarn {
		t.Errorf("ParseLevel(warn) = %v, %v", l, err)
	}
	if l, err := ParseLevel(""); err != nil || l != slog.LevelInfo {
		t.Errorf("ParseLevel(\"\") = %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
