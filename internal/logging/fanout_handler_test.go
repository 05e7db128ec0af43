package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
)

func TestTeeHandlerCollapses(t *testing.T) {
	if _, ok := TeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler for all nil handlers")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := TeeHandler(nil, inner, nil); h != inner {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
}

func TestTeeHandlerEnabled(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := TeeHandler(
		slog.NewJSONHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)
	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected info to be enabled by the second handler")
	}
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug to be disabled")
	}
}

func TestTeeHandlerRespectsLevels(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	logger := slog.New(TeeHandler(
		slog.NewJSONHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelWarn}),
	))

	logger.Info("info message")

	if buf1.Len() == 0 {
		t.Fatal("expected output in buf1 (info level)")
	}
	if buf2.Len() != 0 {
		t.Fatal("expected no output in buf2 (warn level filter)")
	}
}

func TestTeeHandlerWithAttrsAndGroup(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := TeeHandler(slog.NewJSONHandler(&buf1, nil), slog.NewJSONHandler(&buf2, nil))
	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String(FieldBatchID, "b1")}).WithGroup("job"))
	logger.Info("test", slog.String("state", "completed"))

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		if !bytes.Contains(buf.Bytes(), []byte(`"batch_id":"b1"`)) {
			t.Fatalf("buffer %d missing batch attr: %s", i, buf.String())
		}
		if !bytes.Contains(buf.Bytes(), []byte(`"job":{"state":"completed"}`)) {
			t.Fatalf("buffer %d missing grouped attr: %s", i, buf.String())
		}
	}
}

type failingHandler struct{ NoopHandler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestTeeHandlerJoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	h := TeeHandler(failingHandler{}, slog.NewJSONHandler(&buf, nil))
	err := slog.New(h).Handler().Handle(context.Background(), slog.Record{Message: "x", Level: slog.LevelInfo})
	if err == nil {
		t.Fatal("expected error from failing handler")
	}
	if buf.Len() == 0 {
		t.Fatal("expected healthy handler to still receive the record")
	}
}

func TestTeeLogger(t *testing.T) {
	var baseBuf, teeBuf bytes.Buffer
	logger := TeeLogger(slog.New(slog.NewJSONHandler(&baseBuf, nil)), slog.NewJSONHandler(&teeBuf, nil))

	logger.Info("teed message")

	if baseBuf.Len() == 0 || teeBuf.Len() == 0 {
		t.Fatalf("expected output in both buffers, got base=%d tee=%d", baseBuf.Len(), teeBuf.Len())
	}
}
