package config

const (
	defaultConfigPath       = "~/.config/tunegrab/config.toml"
	defaultEnvFilePath      = "~/.config/tunegrab/.env"
	projectConfigName       = "tunegrab.toml"
	catalogFileName         = "catalog.db"
	lockFileName            = "tunegrab.lock"
	defaultLibraryDir       = "~/Music/tunegrab"
	defaultStagingDir       = "~/.local/share/tunegrab/staging"
	defaultDataDir          = "~/.local/share/tunegrab"
	defaultLogDir           = "~/.local/share/tunegrab/logs"
	defaultYtDlpBinary      = "yt-dlp"
	defaultAudioFormat      = "mp3"
	defaultRetries          = 3
	defaultFragRetries      = 10
	defaultURLTemplate      = "https://www.bilibili.com/video/%s"
	defaultOutputEncoding   = "utf-8"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30

	// MinConcurrency and MaxConcurrency bound the batch worker pool.
	MinConcurrency        = 1
	MaxConcurrency        = 10
	defaultConcurrency    = 3
	defaultBatchTimeout   = 2 * 60 * 60
	defaultFeedCapacity   = 1024
	defaultStagingHours   = 24
	defaultNtfyTimeout    = 10
	minimumFeedCapacity   = 16
	maximumAudioQuality   = 9
	defaultAudioQuality   = 0
	outputEncodingGBK     = "gbk"
	outputEncodingDefault = defaultOutputEncoding
)

// AudioFormats lists the audio formats yt-dlp can extract into.
var AudioFormats = []string{"mp3", "m4a", "opus", "flac", "wav"}

// Preset bundles an audio format with a quality level.
type Preset struct {
	AudioFormat  string
	AudioQuality int
}

// Presets maps preset names to their audio settings.
var Presets = map[string]Preset{
	"high_quality_mp3":   {AudioFormat: "mp3", AudioQuality: 0},
	"medium_quality_mp3": {AudioFormat: "mp3", AudioQuality: 2},
	"low_quality_mp3":    {AudioFormat: "mp3", AudioQuality: 9},
	"lossless_flac":      {AudioFormat: "flac", AudioQuality: 0},
	"small_size_opus":    {AudioFormat: "opus", AudioQuality: 5},
}

// DefaultEnvFilePath returns the dotenv file loaded when no explicit one is given.
func DefaultEnvFilePath() (string, error) {
	return expandPath(defaultEnvFilePath)
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			StagingDir: defaultStagingDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
		},
		YtDlp: YtDlp{
			Binary:          defaultYtDlpBinary,
			AudioFormat:     defaultAudioFormat,
			AudioQuality:    defaultAudioQuality,
			EmbedThumbnail:  true,
			WriteInfoJSON:   true,
			Retries:         defaultRetries,
			FragmentRetries: defaultFragRetries,
			URLTemplate:     defaultURLTemplate,
			OutputEncoding:  defaultOutputEncoding,
		},
		Batch: Batch{
			MaxConcurrency:        defaultConcurrency,
			TimeoutSeconds:        defaultBatchTimeout,
			FeedCapacity:          defaultFeedCapacity,
			StagingRetentionHours: defaultStagingHours,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeout,
		},
	}
}

// ClampConcurrency bounds a requested worker count to the supported range.
func ClampConcurrency(n int) int {
	switch {
	case n < MinConcurrency:
		return MinConcurrency
	case n > MaxConcurrency:
		return MaxConcurrency
	default:
		return n
	}
}
