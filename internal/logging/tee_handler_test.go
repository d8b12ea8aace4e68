package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewTeeHandlerCollapses(t *testing.T) {
	if _, ok := newTeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newTeeHandler(nil, inner); h != inner {
		t.Fatal("expected single live handler to be returned unwrapped")
	}
}

func TestTeeHandlerRespectsPerHandlerLevels(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	h := newTeeHandler(
		slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected tee enabled for debug")
	}

	logger := slog.New(h).With("k", "v")
	logger.Debug("only debug sink")
	logger.Info("both sinks")

	if strings.Contains(infoBuf.String(), "only debug sink") {
		t.Fatalf("info sink received debug record: %q", infoBuf.String())
	}
	if !strings.Contains(debugBuf.String(), "only debug sink") || !strings.Contains(debugBuf.String(), "both sinks") {
		t.Fatalf("debug sink missing records: %q", debugBuf.String())
	}
	if !strings.Contains(infoBuf.String(), "k=v") {
		t.Fatalf("expected WithAttrs to propagate, got %q", infoBuf.String())
	}
}
