package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// CheckFFmpeg reports the FFmpeg binary yt-dlp will use for extraction.
//
// yt-dlp's --ffmpeg-location accepts either the binary itself or the
// directory holding it; without the flag it resolves "ffmpeg" from PATH.
// This helper mirrors that lookup so the check output matches what the
// download will actually run.
func CheckFFmpeg(location string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Required for audio extraction and thumbnail embedding",
	}

	if location = strings.TrimSpace(location); location != "" {
		candidate := location
		if info, err := os.Stat(location); err == nil && info.IsDir() {
			candidate = filepath.Join(location, executableName("ffmpeg"))
		}
		result.Command = candidate
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			result.Available = true
			return result
		}
		result.Detail = fmt.Sprintf("ffmpeg_location %q has no executable ffmpeg", location)
		return result
	}

	ffmpegName := executableName("ffmpeg")
	if ffmpegPath, err := exec.LookPath(ffmpegName); err == nil {
		result.Command = ffmpegPath
		result.Available = true
		return result
	}

	result.Command = ffmpegName
	result.Detail = fmt.Sprintf("binary %q not found", ffmpegName)
	return result
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
