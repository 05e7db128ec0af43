package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"tunegrab/internal/config"
	"tunegrab/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSameFilesystem reports whether staging and library share a device.
// Moves across devices still work but copy every file, so a mismatch is
// informational and always passes.
func CheckSameFilesystem(stagingDir, libraryDir string) Result {
	const name = "Staging/library filesystem"
	var staging, library unix.Stat_t
	if err := unix.Stat(stagingDir, &staging); err != nil {
		return Result{Name: name, Passed: true, Detail: "unknown (staging not accessible)"}
	}
	if err := unix.Stat(libraryDir, &library); err != nil {
		return Result{Name: name, Passed: true, Detail: "unknown (library not accessible)"}
	}
	if staging.Dev == library.Dev {
		return Result{Name: name, Passed: true, Detail: "same device (moves are renames)"}
	}
	return Result{Name: name, Passed: true, Detail: "different devices (moves copy and verify)"}
}

// CheckSystemDeps evaluates the external binaries for the given config.
// Both the fetch command and the check command use this list.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	statuses := deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.YtDlp.Binary,
			Description: "Required for media acquisition",
		},
	})
	statuses = append(statuses, deps.CheckFFmpeg(cfg.YtDlp.FFmpegLocation))
	if len(statuses) > 0 && statuses[0].Available {
		if version, err := deps.Version(ctx, statuses[0].Command, "--version"); err == nil {
			statuses[0].Version = version
		} else {
			statuses[0].Detail = err.Error()
		}
	}
	return statuses
}
