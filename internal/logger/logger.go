// Package logger provides the idecord daemon's structured logging.
//
// Records are written one per line:
//
//	2006-01-02T15:04:05.000Z [LEVEL] message | component=dispatch, key=value
//
// Two levels extend the slog set: LevelTrace (-8) for frame-level IPC
// tracing and LevelFail (12) for errors that stop the daemon.
package logger

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ///////////////////////////////////////////////
// Custom Levels
// ///////////////////////////////////////////////

const (
	LevelTrace slog.Level = -8
	LevelDebug slog.Level = slog.LevelDebug
	LevelInfo  slog.Level = slog.LevelInfo
	LevelWarn  slog.Level = slog.LevelWarn
	LevelError slog.Level = slog.LevelError
	LevelFail  slog.Level = 12
)

var levelNames = []struct {
	max  slog.Level
	name string
}{
	{LevelTrace, "TRACE"},
	{LevelDebug, "DEBUG"},
	{LevelInfo, "INFO"},
	{LevelWarn, "WARN"},
	{LevelError, "ERROR"},
}

// levelName returns the display name for a log level. Levels between two
// named ones take the higher name.
func levelName(l slog.Level) string {
	for _, n := range levelNames {
		if l <= n.max {
			return n.name
		}
	}
	return "FAIL"
}

// ParseLevel converts a level string to slog.Level, case-insensitively.
// Unrecognized strings read as LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fail":
		return LevelFail
	default:
		return LevelInfo
	}
}

// ///////////////////////////////////////////////
// Handler
// ///////////////////////////////////////////////

var lineEnding = "\n"

func init() {
	if runtime.GOOS == "windows" {
		lineEnding = "\r\n"
	}
}

// Handler is a slog.Handler writing the single-line format described in the
// package doc. Handlers derived through WithAttrs and WithGroup share the
// writer lock.
type Handler struct {
	w     io.Writer
	mu    *sync.Mutex
	level slog.Leveler
	// prefix is the pre-rendered WithAttrs output.
	prefix []string
	group  string
}

// NewHandler creates a Handler that writes to w, filtering records below
// level.
func NewHandler(w io.Writer, level slog.Leveler) *Handler {
	return &Handler{w: w, level: level, mu: &sync.Mutex{}}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Time.UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteString(" [")
	b.WriteString(levelName(r.Level))
	b.WriteString("] ")
	b.WriteString(r.Message)

	pairs := append([]string(nil), h.prefix...)
	r.Attrs(func(a slog.Attr) bool {
		pairs = appendAttr(pairs, h.group, a)
		return true
	})
	if len(pairs) > 0 {
		b.WriteString(" | ")
		b.WriteString(strings.Join(pairs, ", "))
	}
	b.WriteString(lineEnding)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// appendAttr renders a as key=value pairs. Group values are flattened into
// dotted keys and empty attributes are dropped.
func appendAttr(pairs []string, group string, a slog.Attr) []string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return pairs
	}
	key := a.Key
	if group != "" && key != "" {
		key = group + "." + key
	} else if key == "" {
		key = group
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			pairs = appendAttr(pairs, key, ga)
		}
		return pairs
	}
	return append(pairs, key+"="+a.Value.String())
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefix := append([]string(nil), h.prefix...)
	for _, a := range attrs {
		prefix = appendAttr(prefix, h.group, a)
	}
	return &Handler{w: h.w, mu: h.mu, level: h.level, prefix: prefix, group: h.group}
}

// WithGroup implements slog.Handler. Keys logged through the returned
// handler are prefixed with the group name ("group.key").
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &Handler{w: h.w, mu: h.mu, level: h.level, prefix: h.prefix, group: group}
}

// ///////////////////////////////////////////////
// Logger Constructor
// ///////////////////////////////////////////////

// Options configures [New].
type Options struct {
	// Path is the log file. It is rotated at MaxSizeMB.
	Path      string
	Level     slog.Level
	MaxSizeMB int
	// Mirror, when set, receives every record as well (the daemon passes
	// stderr in foreground mode).
	Mirror io.Writer
}

// New creates a logger writing to a rotating log file. The returned
// io.Closer closes the file.
func New(opts Options) (*slog.Logger, io.Closer) {
	lj := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: 3,
		MaxAge:     28,
	}
	var w io.Writer = lj
	if opts.Mirror != nil {
		w = io.MultiWriter(lj, opts.Mirror)
	}
	return slog.New(NewHandler(w, opts.Level)), lj
}

// For returns l tagged with component=name. A nil l means slog.Default().
func For(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", name)
}

// Trace logs a message at LevelTrace.
func Trace(l *slog.Logger, msg string, args ...any) {
	l.Log(context.Background(), LevelTrace, msg, args...)
}

// Fail logs a message at LevelFail.
func Fail(l *slog.Logger, msg string, args ...any) {
	l.Log(context.Background(), LevelFail, msg, args...)
}

// ///////////////////////////////////////////////
// ReadTail
// ///////////////////////////////////////////////

// ReadTail returns the last n lines of the file at path, oldest first.
func ReadTail(path string, n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	ring := make([]string, n)
	total := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		ring[total%n] = scanner.Text()
		total++
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading log file: %w", err)
	}

	if total <= n {
		return strings.Join(ring[:total], "\n"), nil
	}
	start := total % n
	return strings.Join(append(ring[start:], ring[:start]...), "\n"), nil
}
