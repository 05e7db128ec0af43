package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeStub(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	writeStub(t, present, "exit 0\n")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank result: %#v", results[2])
	}
}

func TestVersionReturnsFirstLine(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "yt-dlp")
	writeStub(t, bin, "echo\necho 2026.09.30\necho extra\n")

	version, err := Version(context.Background(), bin, "--version")
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if version != "2026.09.30" {
		t.Fatalf("version = %q", version)
	}
}

func TestVersionFailure(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "broken")
	writeStub(t, bin, "exit 3\n")
	if _, err := Version(context.Background(), bin, "--version"); err == nil {
		t.Fatal("expected error for failing binary")
	}
}

func TestCheckFFmpegLocationDirectory(t *testing.T) {
	dir := t.TempDir()
	ffmpegPath := filepath.Join(dir, executableName("ffmpeg"))
	writeStub(t, ffmpegPath, "exit 0\n")

	status := CheckFFmpeg(dir)
	if !status.Available {
		t.Fatalf("expected ffmpeg in location dir, got detail %q", status.Detail)
	}
	if status.Command != ffmpegPath {
		t.Fatalf("command = %q, want %q", status.Command, ffmpegPath)
	}
}

func TestCheckFFmpegLocationMissing(t *testing.T) {
	status := CheckFFmpeg(t.TempDir())
	if status.Available || status.Detail == "" {
		t.Fatalf("expected unavailable with detail, got %#v", status)
	}
}

func TestCheckFFmpegPathFallback(t *testing.T) {
	binDir := t.TempDir()
	ffmpegPath := filepath.Join(binDir, executableName("ffmpeg"))
	writeStub(t, ffmpegPath, "exit 0\n")
	t.Setenv("PATH", binDir)

	status := CheckFFmpeg("")
	if !status.Available || status.Command != ffmpegPath {
		t.Fatalf("expected PATH fallback %q, got %#v", ffmpegPath, status)
	}
}

func TestCheckFFmpegNotFound(t *testing.T) {
	t.Setenv("PATH", "")
	status := CheckFFmpeg("")
	if status.Available {
		t.Fatal("expected ffmpeg resolution to fail")
	}
	if status.Detail == "" {
		t.Fatal("expected detail message when ffmpeg is unavailable")
	}
}
