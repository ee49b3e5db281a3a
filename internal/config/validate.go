package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Tools.FFmpeg == "" {
		return errors.New("config: tools.ffmpeg must not be empty")
	}
	if c.Tools.FFprobe == "" {
		return errors.New("config: tools.ffprobe must not be empty")
	}
	if !c.Output.NextToInput && c.Paths.OutputDir == "" {
		return errors.New("config: paths.output_dir required when output.next_to_input is false")
	}

	if c.Audio.Enabled {
		switch c.Audio.Format {
		case "m4a", "mp3", "wav":
		default:
			return fmt.Errorf("config: audio.format must be m4a, mp3, or wav, got %q", c.Audio.Format)
		}
		switch c.Audio.Mode {
		case "copy", "transcode":
		default:
			return fmt.Errorf("config: audio.mode must be copy or transcode, got %q", c.Audio.Mode)
		}
	}

	if c.Frames.Enabled {
		if c.Frames.IntervalSeconds <= 0 {
			return fmt.Errorf("config: frames.interval_seconds must be positive, got %v", c.Frames.IntervalSeconds)
		}
		switch c.Frames.Format {
		case "jpg", "png":
		default:
			return fmt.Errorf("config: frames.format must be jpg or png, got %q", c.Frames.Format)
		}
		if (c.Frames.ResizeWidth > 0) != (c.Frames.ResizeHeight > 0) {
			return errors.New("config: frames.resize_width and frames.resize_height must be set together")
		}
		if c.Frames.ResizeWidth < 0 || c.Frames.ResizeHeight < 0 {
			return errors.New("config: frame resize dimensions must not be negative")
		}
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: logging.format must be console or json, got %q", c.Logging.Format)
	}

	return nil
}
