package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tunegrab/internal/logs"
)

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunegrab-run.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	tests := []struct {
		limit int
		want  []string
	}{
		{limit: 2, want: []string{"b", "c"}},
		{limit: 5, want: []string{"a", "b", "c"}},
		{limit: 3, want: []string{"a", "b", "c"}},
		{limit: 0, want: nil},
	}
	for _, tt := range tests {
		result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: tt.limit})
		if err != nil {
			t.Fatalf("limit %d: %v", tt.limit, err)
		}
		if strings.Join(result.Lines, ",") != strings.Join(tt.want, ",") {
			t.Fatalf("limit %d: lines = %#v, want %#v", tt.limit, result.Lines, tt.want)
		}
		if result.Offset != 6 {
			t.Fatalf("limit %d: offset = %d, want 6", tt.limit, result.Offset)
		}
	}
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "missing.log"), logs.TailOptions{Offset: -1, Limit: 5})
	if err != nil || len(result.Lines) != 0 {
		t.Fatalf("missing file: result=%+v err=%v", result, err)
	}
}

func TestTailFollowWaits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunegrab-run.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	result, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: 1})
	if err != nil || len(result.Lines) != 1 {
		t.Fatalf("initial tail: lines=%#v err=%v", result.Lines, err)
	}

	done := make(chan struct{})
	go func(offset int64) {
		defer close(done)
		res, err := logs.Tail(ctx, path, logs.TailOptions{Offset: offset, Follow: true, Wait: 5 * time.Second})
		if err != nil {
			t.Errorf("follow tail error: %v", err)
		}
		if len(res.Lines) != 1 || res.Lines[0] != "later" {
			t.Errorf("unexpected follow lines: %#v", res.Lines)
		}
	}(result.Offset)

	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("tail follow did not return")
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	if path, err := logs.Latest(dir, "tunegrab-*.log"); err != nil || path != "" {
		t.Fatalf("empty dir: path=%q err=%v", path, err)
	}
	older := filepath.Join(dir, "tunegrab-20250101T000000Z.log")
	newer := filepath.Join(dir, "tunegrab-20250102T000000Z.log")
	for _, p := range []string{older, newer, filepath.Join(dir, "other.log")} {
		if err := os.WriteFile(p, []byte("{}\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	path, err := logs.Latest(dir, "tunegrab-*.log")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if path != newer {
		t.Fatalf("Latest = %q, want %q", path, newer)
	}
}

func TestParseAndFormatRecord(t *testing.T) {
	line := `{"ts":"2025-03-01T10:00:00Z","level":"warn","msg":"acquisition failed","source":"pipeline.go:10","media_id":"BV1xx411c7mD","error":"exit status 1"}`
	rec, ok := logs.ParseRecord(line)
	if !ok {
		t.Fatal("expected record to parse")
	}
	if rec.Level != "warn" || rec.Message != "acquisition failed" || rec.Time.IsZero() {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if _, ok := rec.Attrs["source"]; ok {
		t.Fatal("source should not be kept as an attribute")
	}
	if !rec.Matches("media_id", "BV1xx411c7mD") || rec.Matches("media_id", "BV1GJ411x7h7") || !rec.Matches("media_id", "") {
		t.Fatal("Matches gave unexpected result")
	}
	formatted := rec.Format()
	if !strings.Contains(formatted, "WARN  acquisition failed") {
		t.Fatalf("formatted = %q", formatted)
	}
	if !strings.HasSuffix(formatted, `error="exit status 1" media_id=BV1xx411c7mD`) {
		t.Fatalf("attributes not sorted or quoted: %q", formatted)
	}

	if _, ok := logs.ParseRecord("plain text"); ok {
		t.Fatal("plain text should not parse")
	}
}
