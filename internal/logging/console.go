package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders one line per record:
//
//	2026-01-02T15:04:05Z WARN  [phone/1a2b3c4d] ingest: copy failed path=/x.png
//
// The component and the run scope are lifted out of the attribute list into
// the prefix; everything else follows as key=value pairs.
type consoleHandler struct {
	mu         *sync.Mutex
	w          io.Writer
	level      *slog.LevelVar
	withSource bool
	prefix     string
	attrs      []field
}

type field struct {
	key   string
	value slog.Value
}

func newConsoleHandler(w io.Writer, level *slog.LevelVar, withSource bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: level, withSource: withSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	fields := append([]field(nil), h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendField(fields, h.prefix, attr)
		return true
	})

	var component, plan, runID string
	var sb strings.Builder
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			component = f.value.String()
			continue
		case FieldPlan:
			plan = f.value.String()
			continue
		case FieldRunID:
			runID = f.value.String()
			continue
		}
		sb.WriteByte(' ')
		sb.WriteString(f.key)
		sb.WriteByte('=')
		sb.WriteString(renderValue(f.value))
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var line strings.Builder
	line.WriteString(ts.UTC().Format(time.RFC3339))
	fmt.Fprintf(&line, " %-5s", levelName(record.Level))
	if scope := runScope(plan, runID); scope != "" {
		line.WriteString(" [" + scope + "]")
	}
	line.WriteByte(' ')
	if component != "" {
		line.WriteString(component + ": ")
	}
	line.WriteString(record.Message)
	if h.withSource {
		if src := record.Source(); src != nil && src.File != "" {
			line.WriteString(" (" + sourceLabel(src) + ")")
		}
	}
	line.WriteString(sb.String())
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]field(nil), h.attrs...)
	for _, attr := range attrs {
		next.attrs = appendField(next.attrs, h.prefix, attr)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

// appendField flattens groups into dotted keys.
func appendField(dst []field, prefix string, attr slog.Attr) []field {
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		inner := prefix
		if attr.Key != "" {
			inner = prefix + attr.Key + "."
		}
		for _, child := range value.Group() {
			dst = appendField(dst, inner, child)
		}
		return dst
	}
	if attr.Key == "" {
		return dst
	}
	return append(dst, field{key: prefix + attr.Key, value: value})
}

func runScope(plan, runID string) string {
	if len(runID) > 8 {
		runID = runID[:8]
	}
	switch {
	case plan != "" && runID != "":
		return plan + "/" + runID
	case plan != "":
		return plan
	default:
		return runID
	}
}

func renderValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		return v.String()
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
