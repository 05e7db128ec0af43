package ytdlp_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"tunegrab/internal/services"
	"tunegrab/internal/ytdlp"
)

type stubExecutor struct {
	lines []string
	err   error
	calls int
	args  [][]string
	bin   string
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	s.calls++
	s.bin = binary
	s.args = append(s.args, append([]string(nil), args...))
	for _, line := range s.lines {
		if err := ctx.Err(); err != nil {
			return err
		}
		onLine(line)
	}
	return s.err
}

func newClient(t *testing.T, exec ytdlp.Executor, mutate ...func(*ytdlp.Options)) (*ytdlp.Client, ytdlp.Options) {
	t.Helper()
	opts := ytdlp.Options{
		Binary:         "yt-dlp",
		AudioFormat:    "mp3",
		EmbedThumbnail: true,
		WriteInfoJSON:  true,
		StagingDir:     t.TempDir(),
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	client, err := ytdlp.New(opts, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client, opts
}

func successLines(dir string) []string {
	return []string{
		"[BiliBili] Extracting URL: https://www.bilibili.com/video/BV1xx411c7mD",
		"[info] Writing video metadata as JSON to: " + filepath.Join(dir, "Song.info.json"),
		"[download]  10.0% of 3.20MiB at 1.00MiB/s ETA 00:03",
		"[download]  55.0% of 3.20MiB at 1.00MiB/s ETA 00:01",
		"[download] 100% of 3.20MiB in 00:03",
		"[ExtractAudio] Destination: " + filepath.Join(dir, "Song.mp3"),
		`[EmbedThumbnail] ffmpeg: Adding thumbnail to "` + filepath.Join(dir, "Song.mp3") + `"`,
	}
}

func TestAcquireCollectsMarkersAndProgress(t *testing.T) {
	exec := &stubExecutor{}
	client, _ := newClient(t, exec)
	stage := client.StageDir("BV1xx411c7mD")
	exec.lines = successLines(stage)

	var seen []float64
	result, err := client.Acquire(context.Background(), ytdlp.Request{ID: "BV1xx411c7mD"}, func(p float64) {
		seen = append(seen, p)
	})
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if !result.Artifact.Complete() {
		t.Fatalf("expected complete artifact, got %+v", result.Artifact)
	}
	if result.Artifact.SidecarPath != filepath.Join(stage, "Song.info.json") {
		t.Fatalf("unexpected sidecar %q", result.Artifact.SidecarPath)
	}
	if result.Artifact.OutputPath != filepath.Join(stage, "Song.mp3") {
		t.Fatalf("unexpected output %q", result.Artifact.OutputPath)
	}
	if !slices.Equal(seen, []float64{10, 55, 100}) {
		t.Fatalf("unexpected progress %v", seen)
	}
	if len(result.Output) != len(exec.lines) {
		t.Fatalf("expected full transcript, got %d lines", len(result.Output))
	}
	args := exec.args[0]
	if args[len(args)-1] != "https://www.bilibili.com/video/BV1xx411c7mD" {
		t.Fatalf("expected url last, got %v", args)
	}
}

func TestAcquireFirstMarkerWins(t *testing.T) {
	exec := &stubExecutor{lines: []string{
		"Writing video metadata as JSON to: /a.info.json",
		"Writing video metadata as JSON to: /b.info.json",
		`[EmbedThumbnail] ffmpeg: Adding thumbnail to "/a.mp3"`,
		`[EmbedThumbnail] ffmpeg: Adding thumbnail to "/b.mp3"`,
	}}
	client, _ := newClient(t, exec)
	result, err := client.Acquire(context.Background(), ytdlp.Request{ID: "BV1xx411c7mD"}, nil)
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if result.Artifact.SidecarPath != "/a.info.json" || result.Artifact.OutputPath != "/a.mp3" {
		t.Fatalf("expected first markers to win, got %+v", result.Artifact)
	}
}

func TestAcquireNonZeroExit(t *testing.T) {
	exec := &stubExecutor{
		lines: []string{"ERROR: [BiliBili] BV1xx411c7mD: Video unavailable"},
		err:   &ytdlp.ExitError{Code: 1},
	}
	client, _ := newClient(t, exec)
	result, err := client.Acquire(context.Background(), ytdlp.Request{ID: "BV1xx411c7mD"}, nil)
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	var exitErr *ytdlp.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("expected exit code 1, got %v", err)
	}
	if result.ExitCode != 1 {
		t.Fatalf("expected result exit code 1, got %d", result.ExitCode)
	}
	if !strings.Contains(result.Transcript(), "Video unavailable") {
		t.Fatalf("expected transcript to carry output, got %q", result.Transcript())
	}
}

func TestAcquireMissingMarkerIsFailure(t *testing.T) {
	exec := &stubExecutor{lines: []string{
		"[download] 100% of 3.20MiB",
		"Writing video metadata as JSON to: /tmp/x.info.json",
	}}
	client, _ := newClient(t, exec)
	result, err := client.Acquire(context.Background(), ytdlp.Request{ID: "BV1xx411c7mD"}, nil)
	if !errors.Is(err, ytdlp.ErrMissingMarker) {
		t.Fatalf("expected ErrMissingMarker, got %v", err)
	}
	if !strings.Contains(err.Error(), "thumbnail embed") {
		t.Fatalf("expected missing marker named, got %v", err)
	}
	if result.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", result.ExitCode)
	}
}

func TestAcquireCancelled(t *testing.T) {
	exec := &stubExecutor{lines: []string{"[download] 1.0%"}}
	client, _ := newClient(t, exec)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Acquire(ctx, ytdlp.Request{ID: "BV1xx411c7mD"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("cancellation should not be reported as a tool failure: %v", err)
	}
}

type blockingExecutor struct{}

func (blockingExecutor) Run(ctx context.Context, _ string, _ []string, _ func(string)) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestAcquireTimeout(t *testing.T) {
	client, _ := newClient(t, blockingExecutor{}, func(o *ytdlp.Options) { o.Timeout = 20 * time.Millisecond })
	_, err := client.Acquire(context.Background(), ytdlp.Request{ID: "BV1xx411c7mD"}, nil)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
}

func TestAcquireUsesExplicitURLAndTemplate(t *testing.T) {
	exec := &stubExecutor{err: &ytdlp.ExitError{Code: 2}}
	client, _ := newClient(t, exec, func(o *ytdlp.Options) { o.URLTemplate = "https://mirror.example/%s" })

	_, _ = client.Acquire(context.Background(), ytdlp.Request{ID: "BV1xx411c7mD"}, nil)
	_, _ = client.Acquire(context.Background(), ytdlp.Request{ID: "BV1xx411c7mD", URL: "https://b23.example/x"}, nil)

	if got := exec.args[0][len(exec.args[0])-1]; got != "https://mirror.example/BV1xx411c7mD" {
		t.Fatalf("unexpected templated url %q", got)
	}
	if got := exec.args[1][len(exec.args[1])-1]; got != "https://b23.example/x" {
		t.Fatalf("unexpected explicit url %q", got)
	}
}

func TestNewRequiresBinaryAndStaging(t *testing.T) {
	if _, err := ytdlp.New(ytdlp.Options{StagingDir: t.TempDir()}); err == nil {
		t.Fatal("expected error without binary")
	}
	if _, err := ytdlp.New(ytdlp.Options{Binary: "yt-dlp"}); err == nil {
		t.Fatal("expected error without staging dir")
	}
}

func TestBuildArgs(t *testing.T) {
	opts := ytdlp.Options{
		FFmpegLocation:     "/opt/ffmpeg",
		Proxy:              "socks5://127.0.0.1:1080",
		AudioFormat:        "flac",
		AudioQuality:       0,
		EmbedThumbnail:     true,
		WriteInfoJSON:      true,
		RestrictFilenames:  true,
		Retries:            3,
		FragmentRetries:    10,
		RateLimit:          "2M",
		NoCheckCertificate: true,
		ExtraArgs:          []string{"--cookies-from-browser", "firefox"},
	}
	got := strings.Join(ytdlp.BuildArgs(opts, "/stage/BV1", "https://x/BV1"), " ")
	want := "--newline --no-playlist --ffmpeg-location /opt/ffmpeg --proxy socks5://127.0.0.1:1080 " +
		"-x --audio-format flac --audio-quality 0 --embed-thumbnail --write-info-json --restrict-filenames " +
		"--retries 3 --fragment-retries 10 --limit-rate 2M --no-check-certificate " +
		"--cookies-from-browser firefox --output /stage/BV1/%(title)s.%(ext)s https://x/BV1"
	if got != want {
		t.Fatalf("unexpected args:\n got: %s\nwant: %s", got, want)
	}

	minimal := ytdlp.BuildArgs(ytdlp.Options{AudioFormat: "mp3", AudioQuality: 5}, "/s", "u")
	for _, flag := range []string{"--proxy", "--ffmpeg-location", "--retries", "--limit-rate", "--embed-thumbnail"} {
		if slices.Contains(minimal, flag) {
			t.Fatalf("did not expect %s in %v", flag, minimal)
		}
	}
}
