package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tunegrab/internal/config"
	"tunegrab/internal/testsupport"
)

// stubYtDlp imitates the yt-dlp output lines the client interprets. It
// writes "<id> Song" audio and sidecar files into the --output directory.
const stubYtDlp = `
if [ "$1" = "--version" ]; then
  echo "2025.01.01"
  exit 0
fi
out=""
prev=""
url=""
for arg in "$@"; do
  if [ "$prev" = "--output" ]; then
    out="$arg"
  fi
  prev="$arg"
  url="$arg"
done
id="${url##*/}"
dir="$(dirname "$out")"
mkdir -p "$dir"
title="$id Song"
printf '{"id":"%s","title":"%s","uploader":"Stub Artist","duration":125,"webpage_url":"%s"}' "$id" "$title" "$url" > "$dir/$title.info.json"
printf 'audio' > "$dir/$title.mp3"
echo "[info] Writing video metadata as JSON to: $dir/$title.info.json"
echo "[download]  50.0% of 3.00MiB at 1.00MiB/s ETA 00:01"
echo "[download] 100% of 3.00MiB in 00:00:02"
echo "[EmbedThumbnail] ffmpeg: Adding thumbnail to \"$dir/$title.mp3\""
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("TUNEGRAB_YTDLP", "")
	t.Setenv("TUNEGRAB_LIBRARY_DIR", "")
	testsupport.WriteScript(t, filepath.Join(base, "bin", "yt-dlp"), stubYtDlp)

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nlibrary_dir = %q\nstaging_dir = %q\ndata_dir = %q\nlog_dir = %q\n\n[batch]\nmax_concurrency = 2\n\n[logging]\nlevel = \"error\"\n",
		cfg.Paths.LibraryDir,
		cfg.Paths.StagingDir,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func appendConfig(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
