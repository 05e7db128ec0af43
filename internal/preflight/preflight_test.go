package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tunegrab/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckSameFilesystem(t *testing.T) {
	base := t.TempDir()
	a := filepath.Join(base, "a")
	b := filepath.Join(base, "b")
	for _, dir := range []string{a, b} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	result := CheckSameFilesystem(a, b)
	if !result.Passed || result.Detail != "same device (moves are renames)" {
		t.Fatalf("unexpected result: %+v", result)
	}
	missing := CheckSameFilesystem(filepath.Join(base, "nope"), b)
	if !missing.Passed {
		t.Fatal("filesystem check should never fail")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_StubbedBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEnsuredDirs())
	binDir := filepath.Join(testsupport.BaseDir(cfg), "bin")
	testsupport.WriteScript(t, filepath.Join(binDir, "yt-dlp"), "echo 2026.09.30\n")
	testsupport.WriteScript(t, filepath.Join(binDir, "ffmpeg"), "exit 0\n")
	t.Setenv("PATH", binDir)

	results := RunAll(context.Background(), cfg)
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d: %+v", len(results), results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
	if results[4].Name != "yt-dlp" || results[4].Detail != filepath.Join(binDir, "yt-dlp")+" (2026.09.30)" {
		t.Fatalf("unexpected yt-dlp result: %+v", results[4])
	}
}

func TestRunAll_MissingBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEnsuredDirs())
	t.Setenv("PATH", t.TempDir())

	failed := Failed(RunAll(context.Background(), cfg))
	if len(failed) != 2 {
		t.Fatalf("expected yt-dlp and ffmpeg failures, got %+v", failed)
	}
}
