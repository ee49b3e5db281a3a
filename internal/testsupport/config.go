package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"framelift/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.WatchDir = filepath.Join(base, "watch")
	cfgVal.Output.NextToInput = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAudio toggles audio extraction on the test config.
func WithAudio(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Audio.Enabled = enabled
	}
}

// WithFrames toggles frame extraction on the test config.
func WithFrames(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Frames.Enabled = enabled
	}
}

// WithOverwrite switches the config to overwrite existing outputs.
func WithOverwrite() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.Overwrite = true
	}
}

// WithDurationCacheDisabled turns the probe cache off.
func WithDurationCacheDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.DurationCache.Enabled = false
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}
