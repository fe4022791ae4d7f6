package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestTeeCollapsesSinks(t *testing.T) {
	if _, ok := Tee(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every sink is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := Tee(nil, inner); h != inner {
		t.Fatal("expected a single sink to be returned unwrapped")
	}
}

func TestTeeFiltersPerSinkLevel(t *testing.T) {
	var console, ledger bytes.Buffer
	logger := slog.New(Tee(
		slog.NewJSONHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&ledger, &slog.HandlerOptions{Level: slog.LevelInfo}),
	))
	logger.Info("book published")
	logger.Warn("cover missing")

	if strings.Contains(console.String(), "book published") {
		t.Fatalf("warn sink received info record: %s", console.String())
	}
	for _, want := range []string{"book published", "cover missing"} {
		if !strings.Contains(ledger.String(), want) {
			t.Fatalf("info sink missing %q: %s", want, ledger.String())
		}
	}
}

func TestTeeAttrsReachEverySink(t *testing.T) {
	var a, b bytes.Buffer
	h := Tee(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil))
	slog.New(h).With(FieldSource, "Author - Title").WithGroup("cover").Info("staged", "mode", "file")
	for _, out := range []string{a.String(), b.String()} {
		if !strings.Contains(out, `"source":"Author - Title"`) || !strings.Contains(out, `"cover":{"mode":"file"}`) {
			t.Fatalf("attrs missing in %q", out)
		}
	}
}

type failingHandler struct{ NoopHandler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestTeeReportsSinkErrors(t *testing.T) {
	var buf bytes.Buffer
	h := Tee(failingHandler{}, slog.NewJSONHandler(&buf, nil))
	err := h.Handle(context.Background(), slog.NewRecord(time.Time{}, slog.LevelInfo, "x", 0))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(buf.String(), `"msg":"x"`) {
		t.Fatalf("healthy sink skipped: %s", buf.String())
	}
}
