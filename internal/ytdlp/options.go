package ytdlp

import (
	"path/filepath"
	"strconv"
	"time"

	"tunegrab/internal/config"
)

// Options carries every knob that shapes a yt-dlp invocation.
type Options struct {
	Binary             string
	FFmpegLocation     string
	AudioFormat        string
	AudioQuality       int
	EmbedThumbnail     bool
	WriteInfoJSON      bool
	RestrictFilenames  bool
	Retries            int
	FragmentRetries    int
	Proxy              string
	RateLimit          string
	NoCheckCertificate bool
	ExtraArgs          []string
	URLTemplate        string
	StagingDir         string
	OutputEncoding     string
	Timeout            time.Duration
}

// OptionsFromConfig maps the [ytdlp] and [paths] sections onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	y := cfg.YtDlp
	return Options{
		Binary:             y.Binary,
		FFmpegLocation:     y.FFmpegLocation,
		AudioFormat:        y.AudioFormat,
		AudioQuality:       y.AudioQuality,
		EmbedThumbnail:     y.EmbedThumbnail,
		WriteInfoJSON:      y.WriteInfoJSON,
		RestrictFilenames:  y.RestrictFilenames,
		Retries:            y.Retries,
		FragmentRetries:    y.FragmentRetries,
		Proxy:              y.Proxy,
		RateLimit:          y.RateLimit,
		NoCheckCertificate: y.NoCheckCertificate,
		ExtraArgs:          append([]string(nil), y.ExtraArgs...),
		URLTemplate:        y.URLTemplate,
		StagingDir:         cfg.Paths.StagingDir,
		OutputEncoding:     y.OutputEncoding,
		Timeout:            time.Duration(y.TimeoutSeconds) * time.Second,
	}
}

// OutputTemplate is the yt-dlp output template used inside a job's staging
// directory.
const OutputTemplate = "%(title)s.%(ext)s"

// BuildArgs assembles the yt-dlp argument list for a single download into
// outputDir. The URL is always last.
func BuildArgs(opts Options, outputDir, url string) []string {
	args := []string{"--newline", "--no-playlist"}
	if opts.FFmpegLocation != "" {
		args = append(args, "--ffmpeg-location", opts.FFmpegLocation)
	}
	if opts.Proxy != "" {
		args = append(args, "--proxy", opts.Proxy)
	}
	args = append(args, "-x", "--audio-format", opts.AudioFormat, "--audio-quality", strconv.Itoa(opts.AudioQuality))
	if opts.EmbedThumbnail {
		args = append(args, "--embed-thumbnail")
	}
	if opts.WriteInfoJSON {
		args = append(args, "--write-info-json")
	}
	if opts.RestrictFilenames {
		args = append(args, "--restrict-filenames")
	}
	if opts.Retries > 0 {
		args = append(args, "--retries", strconv.Itoa(opts.Retries))
	}
	if opts.FragmentRetries > 0 {
		args = append(args, "--fragment-retries", strconv.Itoa(opts.FragmentRetries))
	}
	if opts.RateLimit != "" {
		args = append(args, "--limit-rate", opts.RateLimit)
	}
	if opts.NoCheckCertificate {
		args = append(args, "--no-check-certificate")
	}
	args = append(args, opts.ExtraArgs...)
	args = append(args, "--output", filepath.Join(outputDir, OutputTemplate), url)
	return args
}
