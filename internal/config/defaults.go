package config

const (
	defaultFFmpegBinary    = "ffmpeg"
	defaultFFprobeBinary   = "ffprobe"
	defaultOutputDir       = "~/framelift"
	defaultLogDir          = "~/.local/share/framelift/logs"
	defaultCacheDir        = "~/.cache/framelift"
	defaultAudioFormat     = "m4a"
	defaultAudioMode       = "copy"
	defaultFrameInterval   = 10.0
	defaultFrameFormat     = "jpg"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultDurationCacheOn = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Tools: Tools{
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
		},
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			CacheDir:  defaultCacheDir,
		},
		Output: Output{
			NextToInput: true,
		},
		Audio: Audio{
			Enabled: true,
			Format:  defaultAudioFormat,
			Mode:    defaultAudioMode,
		},
		Frames: Frames{
			Enabled:         true,
			IntervalSeconds: defaultFrameInterval,
			Format:          defaultFrameFormat,
		},
		DurationCache: DurationCache{
			Enabled: defaultDurationCacheOn,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
