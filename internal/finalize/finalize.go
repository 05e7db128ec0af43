package finalize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tunegrab/internal/catalog"
	"tunegrab/internal/config"
	"tunegrab/internal/fileutil"
	"tunegrab/internal/logging"
	"tunegrab/internal/mediaid"
	"tunegrab/internal/services"
	"tunegrab/internal/textutil"
)

var (
	// ErrSidecar marks a metadata document that could not be read or parsed.
	ErrSidecar = errors.New("sidecar metadata unusable")
	// ErrOutputMissing marks an announced audio file that is not on disk.
	ErrOutputMissing = errors.New("output file missing")
)

// Request describes one finished acquisition awaiting relocation.
type Request struct {
	ID          mediaid.ID
	Raw         string
	SidecarPath string
	OutputPath  string
	BatchID     string
	// StageDir is removed after a successful move when it is empty.
	StageDir string
}

// Finalizer moves acquired audio into the library and builds its record.
type Finalizer struct {
	libraryDir string
	extension  string
	logger     *slog.Logger
	now        func() time.Time
}

// New constructs a finalizer for the configured library.
func New(cfg *config.Config, logger *slog.Logger) *Finalizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Finalizer{
		libraryDir: cfg.Paths.LibraryDir,
		extension:  cfg.AudioExtension(),
		logger:     logging.NewComponentLogger(logger, "finalize"),
		now:        time.Now,
	}
}

// Finalize parses the sidecar, moves the audio file to its library path and
// returns the catalog record describing it. The sidecar is removed on success.
func (f *Finalizer) Finalize(ctx context.Context, req Request) (*catalog.Record, error) {
	logger := logging.WithContext(ctx, f.logger)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	meta, err := ReadSidecar(req.SidecarPath, req.Raw)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "finalizing", "parse sidecar", req.SidecarPath, err)
	}
	if meta.ID != "" && meta.ID != string(req.ID) {
		logging.WarnWithContext(logger, "sidecar id differs from requested id", "sidecar_mismatch",
			logging.String("sidecar_id", meta.ID),
			logging.String(logging.FieldImpact, "record keyed by requested id"),
		)
	}

	if !fileutil.Exists(req.OutputPath) {
		return nil, services.Wrap(services.ErrNotFound, "finalizing", "locate output", req.OutputPath, ErrOutputMissing)
	}
	if err := os.MkdirAll(f.libraryDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "finalizing", "ensure library dir", f.libraryDir, err)
	}

	dest := f.destination(req.ID, meta.Title, req.OutputPath)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := fileutil.MoveFile(req.OutputPath, dest); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %w", ErrOutputMissing, err)
		}
		return nil, services.Wrap(services.ErrTransient, "finalizing", "move to library", dest, err)
	}
	logger.Info("moved audio into library",
		logging.String("destination", dest),
		logging.String("title", meta.Title),
	)

	var size int64
	if info, statErr := os.Stat(dest); statErr == nil {
		size = info.Size()
	}

	if err := fileutil.RemoveIfExists(req.SidecarPath); err != nil {
		logging.WarnWithContext(logger, "sidecar cleanup failed", "cleanup_failed",
			logging.String("path", req.SidecarPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale metadata left in staging"),
		)
	}
	if req.StageDir != "" {
		if err := os.Remove(req.StageDir); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Debug("stage directory not removed", logging.String("path", req.StageDir), logging.Error(err))
		}
	}

	return &catalog.Record{
		ID:              req.ID,
		Title:           meta.Title,
		Artist:          meta.Artist,
		SourceURL:       meta.SourceURL,
		LocalPath:       dest,
		CoverURL:        meta.CoverURL,
		DurationSeconds: meta.DurationSeconds,
		FileSize:        size,
		BatchID:         req.BatchID,
		AcquiredAt:      f.now().UTC(),
	}, nil
}

// destination picks the library path for title, appending the id when the
// plain name is taken.
func (f *Finalizer) destination(id mediaid.ID, title, outputPath string) string {
	ext := strings.ToLower(filepath.Ext(outputPath))
	if ext == "" {
		ext = f.extension
	}
	base := textutil.SanitizeFileName(title)
	dest := filepath.Join(f.libraryDir, base+ext)
	if !fileutil.Exists(dest) {
		return dest
	}
	return filepath.Join(f.libraryDir, fmt.Sprintf("%s [%s]%s", base, id, ext))
}
