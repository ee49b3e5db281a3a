package queue

import (
	"errors"
	"fmt"
	"strings"
)

// OutputDirPolicy decides where extraction outputs land.
type OutputDirPolicy string

const (
	// OutputNextToInput places outputs in the input file's directory.
	OutputNextToInput OutputDirPolicy = "next_to_input"
	// OutputExplicitDir places outputs in Settings.OutputDir.
	OutputExplicitDir OutputDirPolicy = "explicit_dir"
)

// OverwritePolicy decides what happens when a target file already exists.
type OverwritePolicy string

const (
	OverwriteSkip      OverwritePolicy = "skip"
	OverwriteOverwrite OverwritePolicy = "overwrite"
)

// AudioFormat selects the audio output container.
type AudioFormat string

const (
	AudioM4A AudioFormat = "m4a"
	AudioMP3 AudioFormat = "mp3"
	AudioWAV AudioFormat = "wav"
)

// AudioMode selects stream copy versus re-encode.
type AudioMode string

const (
	AudioCopy      AudioMode = "copy"
	AudioTranscode AudioMode = "transcode"
)

// ImageFormat selects the frame image encoding.
type ImageFormat string

const (
	ImageJPEG ImageFormat = "jpg"
	ImagePNG  ImageFormat = "png"
)

// Settings is the read-only per-run snapshot taken at start time so mid-run
// edits from the controlling surface never corrupt an in-flight job.
type Settings struct {
	FFmpegPath  string
	FFprobePath string

	OutputPolicy    OutputDirPolicy
	OutputDir       string
	OverwritePolicy OverwritePolicy

	AudioEnabled bool
	AudioFormat  AudioFormat
	AudioMode    AudioMode

	FramesEnabled bool
	FrameInterval float64
	FrameFormat   ImageFormat
	ResizeWidth   int
	ResizeHeight  int
}

// Validate checks settings invariants shared by the builder and executor.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.FFmpegPath) == "" {
		return errors.New("settings: ffmpeg path required")
	}
	if strings.TrimSpace(s.FFprobePath) == "" {
		return errors.New("settings: ffprobe path required")
	}
	switch s.OutputPolicy {
	case OutputNextToInput:
	case OutputExplicitDir:
		if strings.TrimSpace(s.OutputDir) == "" {
			return errors.New("settings: explicit output policy requires output dir")
		}
	default:
		return fmt.Errorf("settings: unknown output policy %q", s.OutputPolicy)
	}
	switch s.OverwritePolicy {
	case OverwriteSkip, OverwriteOverwrite:
	default:
		return fmt.Errorf("settings: unknown overwrite policy %q", s.OverwritePolicy)
	}
	if s.AudioEnabled {
		switch s.AudioFormat {
		case AudioM4A, AudioMP3, AudioWAV:
		default:
			return fmt.Errorf("settings: unsupported audio format %q", s.AudioFormat)
		}
		switch s.AudioMode {
		case AudioCopy, AudioTranscode:
		default:
			return fmt.Errorf("settings: unsupported audio mode %q", s.AudioMode)
		}
	}
	if s.FramesEnabled {
		if s.FrameInterval <= 0 {
			return fmt.Errorf("settings: frame interval must be positive, got %v", s.FrameInterval)
		}
		switch s.FrameFormat {
		case ImageJPEG, ImagePNG:
		default:
			return fmt.Errorf("settings: unsupported frame format %q", s.FrameFormat)
		}
		if (s.ResizeWidth > 0) != (s.ResizeHeight > 0) {
			return errors.New("settings: resize requires both width and height")
		}
	}
	return nil
}

// AnyExtractionEnabled reports whether the settings can produce work. A job
// with neither extraction enabled is marked skipped without invoking ffmpeg.
func (s Settings) AnyExtractionEnabled() bool {
	return s.AudioEnabled || s.FramesEnabled
}
