package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateYtDlp(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic %q must be a full http(s) URL", topic)
	}
	return nil
}

func (c *Config) validatePaths() error {
	for key, value := range map[string]string{
		"paths.library_dir": c.Paths.LibraryDir,
		"paths.staging_dir": c.Paths.StagingDir,
		"paths.data_dir":    c.Paths.DataDir,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	if c.Paths.LibraryDir == c.Paths.StagingDir {
		return errors.New("paths.staging_dir must differ from paths.library_dir")
	}
	return nil
}

func (c *Config) validateYtDlp() error {
	y := c.YtDlp
	if y.Preset != "" {
		if _, ok := Presets[y.Preset]; !ok {
			return fmt.Errorf("ytdlp.preset %q is unknown (valid: %s)", y.Preset, strings.Join(PresetNames(), ", "))
		}
	}
	if !slices.Contains(AudioFormats, y.AudioFormat) {
		return fmt.Errorf("ytdlp.audio_format %q is unsupported (valid: %s)", y.AudioFormat, strings.Join(AudioFormats, ", "))
	}
	if y.AudioQuality < 0 || y.AudioQuality > maximumAudioQuality {
		return fmt.Errorf("ytdlp.audio_quality must be between 0 and %d", maximumAudioQuality)
	}
	if y.OutputEncoding != outputEncodingDefault && y.OutputEncoding != outputEncodingGBK {
		return fmt.Errorf("ytdlp.output_encoding %q is unsupported (valid: utf-8, gbk)", y.OutputEncoding)
	}
	if strings.Count(y.URLTemplate, "%s") != 1 {
		return errors.New("ytdlp.url_template must contain exactly one %s placeholder")
	}
	// Both markers the acquisition step waits for depend on these flags.
	if !y.WriteInfoJSON {
		return errors.New("ytdlp.write_info_json must be true")
	}
	if !y.EmbedThumbnail {
		return errors.New("ytdlp.embed_thumbnail must be true")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if err := ensurePositiveMap(map[string]int{
		"batch.max_concurrency": c.Batch.MaxConcurrency,
		"batch.timeout_seconds": c.Batch.TimeoutSeconds,
		"batch.feed_capacity":   c.Batch.FeedCapacity,
	}); err != nil {
		return err
	}
	if c.Batch.MaxConcurrency > MaxConcurrency {
		return fmt.Errorf("batch.max_concurrency must be at most %d", MaxConcurrency)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is unsupported (valid: debug, info, warn, error)", c.Logging.Level)
	}
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
