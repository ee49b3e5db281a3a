package config

import (
	"fmt"
	"strings"
)

// normalize expands path fields and lowercases enumerated values so the rest
// of the repository never sees tilde paths or mixed-case enums.
func (c *Config) normalize() error {
	var err error
	for _, field := range []struct {
		name  string
		value *string
	}{
		{"output_dir", &c.Paths.OutputDir},
		{"log_dir", &c.Paths.LogDir},
		{"cache_dir", &c.Paths.CacheDir},
		{"watch_dir", &c.Paths.WatchDir},
		{"duration_cache.path", &c.DurationCache.Path},
	} {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = ""
			continue
		}
		if *field.value, err = expandPath(*field.value); err != nil {
			return fmt.Errorf("normalize %s: %w", field.name, err)
		}
	}

	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	c.Audio.Format = strings.ToLower(strings.TrimSpace(c.Audio.Format))
	c.Audio.Mode = strings.ToLower(strings.TrimSpace(c.Audio.Mode))
	c.Frames.Format = strings.ToLower(strings.TrimSpace(c.Frames.Format))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	if c.Frames.Format == "jpeg" {
		c.Frames.Format = "jpg"
	}
	return nil
}
