package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// Attribute keys shown in the scope bracket instead of as key=value pairs.
const (
	KeySystem   = "system"
	KeyCategory = "category"
	KeyRunID    = "run_id"
)

// shortRunID is how many characters of a run id the scope bracket shows.
const shortRunID = 8

// scope is what the bracket after the level shows: [engine checks 1f0c9a2e]
type scope struct {
	system   string
	category string
	runID    string
}

// take absorbs a scope attribute and reports whether it was one.
func (s *scope) take(a slog.Attr) bool {
	switch a.Key {
	case KeySystem:
		s.system = a.Value.String()
	case KeyCategory:
		s.category = a.Value.String()
	case KeyRunID:
		s.runID = a.Value.String()
	default:
		return false
	}
	return true
}

func (s scope) String() string {
	run := s.runID
	if len(run) > shortRunID {
		run = run[:shortRunID]
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{s.system, s.category, run} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// MavenHandler is a slog.Handler that formats logs in Maven-style:
// [LEVEL] [system category run] [HH:MM:SS] message key=value key=value
//
// The system, category and run_id attributes make up the scope bracket, so a
// service logger bound to a run tags every line with it. Values containing
// spaces, such as counterparty names, are quoted.
type MavenHandler struct {
	w         io.Writer
	level     slog.Leveler
	mu        *sync.Mutex
	useColors bool
	scope     scope
	prefix    string // open groups, "a.b."
	attrs     []slog.Attr
}

// NewMavenHandler creates a new Maven-style handler
func NewMavenHandler(w io.Writer, opts *slog.HandlerOptions) *MavenHandler {
	h := &MavenHandler{
		w:         w,
		level:     slog.LevelInfo,
		mu:        &sync.Mutex{},
		useColors: isTerminal(w),
	}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

// isTerminal checks if the writer is a terminal (for color output)
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// Enabled reports whether the handler handles records at the given level.
func (h *MavenHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes a log record
func (h *MavenHandler) Handle(_ context.Context, r slog.Record) error {
	sc := h.scope
	var rest []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		if h.prefix != "" || !sc.take(a) {
			rest = append(rest, a)
		}
		return true
	})

	var buf strings.Builder
	h.paint(&buf, levelColor(r.Level), "["+levelString(r.Level)+"]")
	if s := sc.String(); s != "" {
		buf.WriteString(" [" + s + "]")
	}
	buf.WriteString(" ")
	h.paint(&buf, colorGray, "["+r.Time.Format("15:04:05")+"]")
	buf.WriteString(" ")
	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		appendAttr(&buf, "", a)
	}
	for _, a := range rest {
		appendAttr(&buf, h.prefix, a)
	}
	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, buf.String())
	return err
}

func (h *MavenHandler) paint(buf *strings.Builder, color, s string) {
	if h.useColors {
		buf.WriteString(color + s + colorReset)
		return
	}
	buf.WriteString(s)
}

// appendAttr writes " key=value", flattening groups into dotted keys.
func appendAttr(buf *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(buf, inner, ga)
		}
		return
	}
	buf.WriteString(" ")
	buf.WriteString(prefix + a.Key)
	buf.WriteString("=")
	buf.WriteString(formatValue(a.Value))
}

func formatValue(v slog.Value) string {
	s := fmt.Sprint(v.Any())
	if v.Kind() == slog.KindString || v.Kind() == slog.KindAny {
		if s == "" || strings.ContainsAny(s, " =\"\t\n") {
			return strconv.Quote(s)
		}
	}
	return s
}

// WithAttrs returns a new handler with the given attributes added.
// Scope attributes outside any group move into the scope bracket.
func (h *MavenHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	for _, a := range attrs {
		if h.prefix == "" && next.scope.take(a) {
			continue
		}
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return next
}

// WithGroup returns a new handler that prefixes later keys with name.
func (h *MavenHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.prefix = h.prefix + name + "."
	return next
}

func (h *MavenHandler) clone() *MavenHandler {
	next := *h
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	return &next
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorRed
	case level >= slog.LevelWarn:
		return colorYellow
	case level >= slog.LevelInfo:
		return colorCyan
	default:
		return colorGray
	}
}

// levelString returns a short, uppercase string for the log level
func levelString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", level)
	}
}
