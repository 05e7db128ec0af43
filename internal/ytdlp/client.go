package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tunegrab/internal/logging"
	"tunegrab/internal/mediaid"
	"tunegrab/internal/services"
)

// ErrMissingMarker is returned when yt-dlp exits successfully without
// announcing the sidecar or the final audio path.
var ErrMissingMarker = errors.New("yt-dlp output missing marker")

// maxOutputLines bounds the diagnostic transcript kept per job.
const maxOutputLines = 1000

// Artifact collects what a single yt-dlp run announced. Paths are write-once:
// the first match wins.
type Artifact struct {
	Percent     float64
	SidecarPath string
	OutputPath  string
}

// Complete reports whether both paths were observed.
func (a Artifact) Complete() bool {
	return a.SidecarPath != "" && a.OutputPath != ""
}

// Request identifies one acquisition.
type Request struct {
	ID mediaid.ID
	// URL overrides the URL rendered from the configured template.
	URL string
}

// Result describes a finished run, successful or not.
type Result struct {
	Artifact  Artifact
	ExitCode  int
	Output    []string
	Truncated bool
	StageDir  string
}

// Transcript joins the captured output for diagnostics.
func (r *Result) Transcript() string {
	if r == nil {
		return ""
	}
	text := strings.Join(r.Output, "\n")
	if r.Truncated {
		text = "[earlier output truncated]\n" + text
	}
	return text
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithInterpreter swaps the output interpreter.
func WithInterpreter(interp Interpreter) Option {
	return func(c *Client) {
		if interp != nil {
			c.interp = interp
		}
	}
}

// WithLogger sets the logger used for per-line diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	opts   Options
	exec   Executor
	interp Interpreter
	logger *slog.Logger
}

// New constructs a yt-dlp client.
func New(opts Options, clientOpts ...Option) (*Client, error) {
	opts.Binary = strings.TrimSpace(opts.Binary)
	if opts.Binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	if strings.TrimSpace(opts.StagingDir) == "" {
		return nil, errors.New("staging directory required")
	}
	if opts.AudioFormat == "" {
		opts.AudioFormat = "mp3"
	}
	client := &Client{
		opts:   opts,
		exec:   newCommandExecutor(opts.OutputEncoding),
		interp: DefaultInterpreter(),
		logger: logging.NewNop(),
	}
	for _, opt := range clientOpts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "ytdlp")
	return client, nil
}

// StageDir returns the per-job staging directory for id.
func (c *Client) StageDir(id mediaid.ID) string {
	return filepath.Join(c.opts.StagingDir, string(id))
}

// Acquire runs yt-dlp for one identifier, reporting percentages through
// progress. It returns the Result even on failure so callers can surface the
// transcript. Cancellation of ctx yields ctx's error unwrapped.
func (c *Client) Acquire(ctx context.Context, req Request, progress func(float64)) (*Result, error) {
	stageDir := c.StageDir(req.ID)
	result := &Result{StageDir: stageDir}
	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrTransient, "acquiring", "prepare staging", stageDir, err)
	}

	url := req.URL
	if url == "" {
		url = req.ID.URL(c.opts.URLTemplate)
	}
	args := BuildArgs(c.opts, stageDir, url)

	runCtx := ctx
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	logger := logging.WithContext(ctx, c.logger)
	logger.Debug("yt-dlp starting", logging.String("url", url), logging.Any("args", args))

	var mu sync.Mutex
	onLine := func(line string) {
		sig := c.interp.Interpret(line)
		mu.Lock()
		result.Output = append(result.Output, line)
		if len(result.Output) > maxOutputLines {
			result.Output = result.Output[len(result.Output)-maxOutputLines:]
			result.Truncated = true
		}
		art := &result.Artifact
		switch sig.Kind {
		case SignalProgress:
			if sig.Err != nil {
				mu.Unlock()
				logger.Debug("unparseable progress line", logging.String("line", line), logging.Error(sig.Err))
				return
			}
			art.Percent = sig.Percent
		case SignalSidecar:
			if art.SidecarPath != "" {
				mu.Unlock()
				logger.Debug("ignoring repeated sidecar marker", logging.String("path", sig.Path))
				return
			}
			art.SidecarPath = sig.Path
		case SignalOutput:
			if art.OutputPath != "" {
				mu.Unlock()
				logger.Debug("ignoring repeated output marker", logging.String("path", sig.Path))
				return
			}
			art.OutputPath = sig.Path
		}
		mu.Unlock()
		if sig.Kind == SignalProgress && progress != nil {
			progress(sig.Percent)
		}
	}

	err := c.exec.Run(runCtx, c.opts.Binary, args, onLine)

	mu.Lock()
	defer mu.Unlock()
	switch {
	case ctx.Err() != nil:
		return result, ctx.Err()
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		return result, services.Wrap(services.ErrTimeout, "acquiring", "yt-dlp", fmt.Sprintf("no result within %s", c.opts.Timeout), err)
	default:
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.Code
		} else {
			result.ExitCode = -1
		}
		return result, services.Wrap(services.ErrExternalTool, "acquiring", "yt-dlp", url, err)
	}

	var missing []string
	if result.Artifact.SidecarPath == "" {
		missing = append(missing, "metadata json")
	}
	if result.Artifact.OutputPath == "" {
		missing = append(missing, "thumbnail embed")
	}
	if len(missing) > 0 {
		return result, services.Wrap(services.ErrExternalTool, "acquiring", "yt-dlp",
			"exited 0 without "+strings.Join(missing, " and ")+" line", ErrMissingMarker)
	}
	return result, nil
}
