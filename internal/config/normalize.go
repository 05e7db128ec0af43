package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeYtDlp(); err != nil {
		return err
	}
	c.normalizeBatch()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizeNotifications() {
	n := &c.Notifications
	n.NtfyTopic = strings.TrimSpace(n.NtfyTopic)
	if n.NtfyTopic == "" {
		if value, ok := lookupEnv("TUNEGRAB_NTFY_TOPIC"); ok {
			n.NtfyTopic = value
		}
	}
	if n.RequestTimeoutSeconds <= 0 {
		n.RequestTimeoutSeconds = defaultNtfyTimeout
	}
}

func (c *Config) normalizePaths() error {
	if value, ok := lookupEnv("TUNEGRAB_LIBRARY_DIR"); ok {
		c.Paths.LibraryDir = value
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeYtDlp() error {
	y := &c.YtDlp
	if value, ok := lookupEnv("TUNEGRAB_YTDLP"); ok {
		y.Binary = value
	}
	y.Binary = strings.TrimSpace(y.Binary)
	if y.Binary == "" {
		y.Binary = defaultYtDlpBinary
	}

	if value, ok := lookupEnv("TUNEGRAB_FFMPEG"); ok && strings.TrimSpace(y.FFmpegLocation) == "" {
		y.FFmpegLocation = value
	}
	y.FFmpegLocation = strings.TrimSpace(y.FFmpegLocation)
	if y.FFmpegLocation != "" && strings.ContainsAny(y.FFmpegLocation, "/~") {
		var err error
		if y.FFmpegLocation, err = expandPath(y.FFmpegLocation); err != nil {
			return fmt.Errorf("ytdlp.ffmpeg_location: %w", err)
		}
	}

	y.Proxy = strings.TrimSpace(y.Proxy)
	if y.Proxy == "" {
		if value, ok := lookupEnv("TUNEGRAB_PROXY"); ok {
			y.Proxy = value
		} else if value, ok := lookupEnv("HTTPS_PROXY"); ok {
			y.Proxy = value
		}
	}

	y.Preset = strings.ToLower(strings.TrimSpace(y.Preset))
	if preset, ok := Presets[y.Preset]; ok {
		y.AudioFormat = preset.AudioFormat
		y.AudioQuality = preset.AudioQuality
	}
	y.AudioFormat = strings.ToLower(strings.TrimSpace(y.AudioFormat))
	if y.AudioFormat == "" {
		y.AudioFormat = defaultAudioFormat
	}

	y.RateLimit = strings.TrimSpace(y.RateLimit)
	y.URLTemplate = strings.TrimSpace(y.URLTemplate)
	if y.URLTemplate == "" {
		y.URLTemplate = defaultURLTemplate
	}
	y.OutputEncoding = strings.ToLower(strings.TrimSpace(y.OutputEncoding))
	switch y.OutputEncoding {
	case "", "utf8", "utf-8":
		y.OutputEncoding = outputEncodingDefault
	case "gb2312", "gb18030", outputEncodingGBK:
		y.OutputEncoding = outputEncodingGBK
	}

	args := make([]string, 0, len(y.ExtraArgs))
	for _, arg := range y.ExtraArgs {
		if arg = strings.TrimSpace(arg); arg != "" {
			args = append(args, arg)
		}
	}
	y.ExtraArgs = args
	if y.Retries < 0 {
		y.Retries = 0
	}
	if y.FragmentRetries < 0 {
		y.FragmentRetries = 0
	}
	if y.TimeoutSeconds < 0 {
		y.TimeoutSeconds = 0
	}
	return nil
}

func (c *Config) normalizeBatch() {
	if c.Batch.MaxConcurrency == 0 {
		c.Batch.MaxConcurrency = defaultConcurrency
	}
	c.Batch.MaxConcurrency = ClampConcurrency(c.Batch.MaxConcurrency)
	if c.Batch.FeedCapacity <= 0 {
		c.Batch.FeedCapacity = defaultFeedCapacity
	}
	if c.Batch.FeedCapacity < minimumFeedCapacity {
		c.Batch.FeedCapacity = minimumFeedCapacity
	}
	if c.Batch.StagingRetentionHours < 0 {
		c.Batch.StagingRetentionHours = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
