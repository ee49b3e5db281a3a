package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"framelift/internal/queue"
)

//go:embed sample_config.toml
var sampleConfig string

// Tools contains external binary configuration.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	CacheDir  string `toml:"cache_dir"`
	WatchDir  string `toml:"watch_dir"`
}

// Output controls output placement and overwrite behavior.
type Output struct {
	NextToInput bool `toml:"next_to_input"`
	Overwrite   bool `toml:"overwrite_existing"`
}

// Audio controls audio-track extraction.
type Audio struct {
	Enabled bool   `toml:"enabled"`
	Format  string `toml:"format"`
	Mode    string `toml:"mode"`
}

// Frames controls periodic frame extraction.
type Frames struct {
	Enabled         bool    `toml:"enabled"`
	IntervalSeconds float64 `toml:"interval_seconds"`
	Format          string  `toml:"format"`
	ResizeWidth     int     `toml:"resize_width"`
	ResizeHeight    int     `toml:"resize_height"`
}

// DurationCache controls the on-disk cache of probed media durations.
type DurationCache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for framelift.
type Config struct {
	Tools         Tools         `toml:"tools"`
	Paths         Paths         `toml:"paths"`
	Output        Output        `toml:"output"`
	Audio         Audio         `toml:"audio"`
	Frames        Frames        `toml:"frames"`
	DurationCache DurationCache `toml:"duration_cache"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/framelift/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The second return reports the
// resolved path; the third whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("framelift.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run needs.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir, c.Paths.CacheDir}
	if !c.Output.NextToInput && strings.TrimSpace(c.Paths.OutputDir) != "" {
		dirs = append(dirs, c.Paths.OutputDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Settings returns the run settings snapshot derived from this config.
func (c *Config) Settings() queue.Settings {
	policy := queue.OutputExplicitDir
	if c.Output.NextToInput {
		policy = queue.OutputNextToInput
	}
	overwrite := queue.OverwriteSkip
	if c.Output.Overwrite {
		overwrite = queue.OverwriteOverwrite
	}
	return queue.Settings{
		FFmpegPath:      c.Tools.FFmpeg,
		FFprobePath:     c.Tools.FFprobe,
		OutputPolicy:    policy,
		OutputDir:       c.Paths.OutputDir,
		OverwritePolicy: overwrite,
		AudioEnabled:    c.Audio.Enabled,
		AudioFormat:     queue.AudioFormat(c.Audio.Format),
		AudioMode:       queue.AudioMode(c.Audio.Mode),
		FramesEnabled:   c.Frames.Enabled,
		FrameInterval:   c.Frames.IntervalSeconds,
		FrameFormat:     queue.ImageFormat(c.Frames.Format),
		ResizeWidth:     c.Frames.ResizeWidth,
		ResizeHeight:    c.Frames.ResizeHeight,
	}
}

// DurationCachePath returns the resolved duration cache location, or empty
// when the cache is disabled.
func (c *Config) DurationCachePath() string {
	if !c.DurationCache.Enabled {
		return ""
	}
	if strings.TrimSpace(c.DurationCache.Path) != "" {
		return c.DurationCache.Path
	}
	return filepath.Join(c.Paths.CacheDir, "durations.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
