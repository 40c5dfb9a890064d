// Package logging provides the slog handler used by every command: records go
// to the console, colored by level, and to an append-only log file.
package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"gopkg.in/natefinch/lumberjack.v2"
)

// fileTimeLayout renders timestamps as ISO-8601 in UTC with milliseconds.
const fileTimeLayout = "2006-01-02T15:04:05.000Z"

// Config controls where logs go.
type Config struct {
	// File is the log file path. Empty disables file logging.
	File string `mapstructure:"file"`
	// MaxSizeMB rotates the file once it grows past this size.
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	Level      string `mapstructure:"level"`
	NoColor    bool   `mapstructure:"no_color"`
}

// Options configures a Handler.
type Options struct {
	Level   slog.Leveler
	Console io.Writer
	File    io.Writer
	NoColor bool
}

// Handler is a slog.Handler that writes the record message (plus attributes)
// to the console and a timestamped line to the log file.
type Handler struct {
	opts   Options
	mu     *sync.Mutex
	prefix string // rendered attributes from WithAttrs
	group  string
}

// ensure Handler implements slog.Handler
var _ slog.Handler = (*Handler)(nil)

// NewHandler creates a Handler. Nil writers are skipped.
func NewHandler(opts Options) *Handler {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	return &Handler{opts: opts, mu: &sync.Mutex{}}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var attrs bytes.Buffer
	attrs.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&attrs, h.group, a)
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.opts.Console != nil {
		msg := r.Message
		if !h.opts.NoColor {
			msg = levelColor(r.Level).Sprint(msg)
		}
		if _, err := fmt.Fprintln(h.opts.Console, msg+attrs.String()); err != nil {
			return err
		}
	}

	if h.opts.File != nil {
		ts := r.Time
		if ts.IsZero() {
			ts = time.Now()
		}
		line := "[" + ts.UTC().Format(fileTimeLayout) + "] " + r.Message + attrs.String() + "\n"
		if _, err := io.WriteString(h.opts.File, line); err != nil {
			return err
		}
	}

	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var buf bytes.Buffer
	buf.WriteString(h.prefix)
	for _, a := range attrs {
		writeAttr(&buf, h.group, a)
	}
	h2 := *h
	h2.prefix = buf.String()
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	if h2.group != "" {
		h2.group += "." + name
	} else {
		h2.group = name
	}
	return &h2
}

func writeAttr(buf *bytes.Buffer, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	if group != "" {
		key = group + "." + key
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(buf, key, ga)
		}
		return
	}

	buf.WriteByte(' ')
	buf.WriteString(key)
	buf.WriteByte('=')

	var val string
	switch a.Value.Kind() {
	case slog.KindTime:
		val = a.Value.Time().UTC().Format(time.RFC3339)
	default:
		val = a.Value.String()
	}
	if val == "" || strings.ContainsAny(val, " \t\n\"=") {
		val = strconv.Quote(val)
	}
	buf.WriteString(val)
}

func levelColor(level slog.Level) *color.Color {
	switch {
	case level >= slog.LevelError:
		return color.New(color.FgRed)
	case level >= slog.LevelWarn:
		return color.New(color.FgYellow)
	case level >= slog.LevelInfo:
		return color.New(color.Reset)
	default:
		return color.New(color.FgHiBlack)
	}
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

// New builds the process logger from cfg. The returned closer flushes and
// closes the log file.
func New(cfg Config, console io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	opts := Options{
		Level:   level,
		Console: console,
		NoColor: cfg.NoColor,
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if dir := filepath.Dir(cfg.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("log file: %w", err)
			}
		}
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize, // MB
			MaxBackups: cfg.MaxBackups,
		}
		opts.File = lj
		closer = lj
	}

	return slog.New(NewHandler(opts)), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
