package ffmpeg

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"framelift/internal/queue"
)

// InvocationKind labels which extraction an invocation performs.
type InvocationKind string

const (
	KindAudio  InvocationKind = "audio"
	KindFrames InvocationKind = "frames"
)

// Invocation is one fully-specified ffmpeg command, not yet executed. A skip
// sentinel (Skip == true) carries no arguments and signals "nothing to run,
// mark this extraction skipped".
type Invocation struct {
	Kind       InvocationKind
	Binary     string
	Args       []string
	OutputPath string
	Skip       bool
	SkipReason string
}

// Builder maps a job plus settings into ffmpeg invocations. Target existence
// is injected so Build stays deterministic and free of hidden I/O in tests.
type Builder struct {
	Exists func(path string) bool
}

// NewBuilder returns a builder backed by the real filesystem.
func NewBuilder() *Builder {
	return &Builder{Exists: fileExists}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Build returns the invocations for every enabled extraction, audio first.
// Calling Build twice with identical inputs yields identical results.
func (b *Builder) Build(job queue.Job, settings queue.Settings) []Invocation {
	var invocations []Invocation
	if settings.AudioEnabled {
		invocations = append(invocations, b.AudioInvocation(job, settings, false))
	}
	if settings.FramesEnabled {
		invocations = append(invocations, b.FramesInvocation(job, settings))
	}
	return invocations
}

// OutputRoot resolves the directory extraction outputs land in.
func OutputRoot(job queue.Job, settings queue.Settings) string {
	if settings.OutputPolicy == queue.OutputNextToInput {
		return filepath.Dir(job.InputPath)
	}
	return settings.OutputDir
}

// AudioTarget returns the audio output path for a job.
func AudioTarget(job queue.Job, settings queue.Settings) string {
	stem := inputStem(job.InputPath)
	return filepath.Join(OutputRoot(job, settings), stem+"."+string(settings.AudioFormat))
}

// FramesDir returns the dedicated frame-sequence directory for a job.
func FramesDir(job queue.Job, settings queue.Settings) string {
	return filepath.Join(OutputRoot(job, settings), inputStem(job.InputPath)+"_frames")
}

// FramesPattern returns the numbered image sequence pattern inside FramesDir.
func FramesPattern(job queue.Job, settings queue.Settings) string {
	return filepath.Join(FramesDir(job, settings), "frame_%06d."+string(settings.FrameFormat))
}

// AudioInvocation builds the audio-extraction command. forceTranscode re-encodes
// even in copy mode; the executor uses it to retry m4a copy failures.
func (b *Builder) AudioInvocation(job queue.Job, settings queue.Settings, forceTranscode bool) Invocation {
	target := AudioTarget(job, settings)
	inv := Invocation{Kind: KindAudio, Binary: settings.FFmpegPath, OutputPath: target}

	if settings.OverwritePolicy == queue.OverwriteSkip && b.exists(target) {
		inv.Skip = true
		inv.SkipReason = fmt.Sprintf("target exists: %s", target)
		return inv
	}

	args := baseArgs(settings, job.InputPath)
	args = append(args, "-vn")

	mode := settings.AudioMode
	if forceTranscode {
		mode = queue.AudioTranscode
	}
	switch settings.AudioFormat {
	case queue.AudioM4A:
		if mode == queue.AudioCopy {
			args = append(args, "-acodec", "copy")
		} else {
			args = append(args, "-codec:a", "aac", "-b:a", "192k")
		}
	case queue.AudioMP3:
		args = append(args, "-codec:a", "libmp3lame", "-q:a", "2")
	case queue.AudioWAV:
		args = append(args, "-ac", "2", "-ar", "44100")
	}

	inv.Args = append(args, target)
	return inv
}

// FramesInvocation builds the frame-extraction command.
func (b *Builder) FramesInvocation(job queue.Job, settings queue.Settings) Invocation {
	dir := FramesDir(job, settings)
	inv := Invocation{Kind: KindFrames, Binary: settings.FFmpegPath, OutputPath: dir}

	// The sequence directory itself is created idempotently; the overwrite
	// policy keys off the first numbered frame.
	firstFrame := filepath.Join(dir, fmt.Sprintf("frame_%06d.%s", 1, settings.FrameFormat))
	if settings.OverwritePolicy == queue.OverwriteSkip && b.exists(firstFrame) {
		inv.Skip = true
		inv.SkipReason = fmt.Sprintf("target exists: %s", firstFrame)
		return inv
	}

	filter := SampleFilter(settings)
	args := baseArgs(settings, job.InputPath)
	args = append(args, "-vf", filter, FramesPattern(job, settings))
	inv.Args = args
	return inv
}

// SampleFilter returns the -vf chain for interval sampling plus optional resize.
func SampleFilter(settings queue.Settings) string {
	filter := "fps=1/" + formatInterval(settings.FrameInterval)
	if settings.ResizeWidth > 0 && settings.ResizeHeight > 0 {
		filter += fmt.Sprintf(",scale=%d:%d", settings.ResizeWidth, settings.ResizeHeight)
	}
	return filter
}

// PredictedSamples returns how many frames interval sampling takes from a
// clip of the given duration: one at t=0, then one per elapsed interval
// strictly before the end of the clip.
func PredictedSamples(durationSeconds, intervalSeconds float64) int {
	if durationSeconds <= 0 || intervalSeconds <= 0 {
		return 0
	}
	return int(math.Ceil(durationSeconds / intervalSeconds))
}

func baseArgs(settings queue.Settings, inputPath string) []string {
	overwriteFlag := "-n"
	if settings.OverwritePolicy == queue.OverwriteOverwrite {
		overwriteFlag = "-y"
	}
	return []string{"-progress", "pipe:1", "-nostats", overwriteFlag, "-i", inputPath}
}

func (b *Builder) exists(path string) bool {
	if b.Exists != nil {
		return b.Exists(path)
	}
	return fileExists(path)
}

func inputStem(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return base
	}
	return stem
}

func formatInterval(interval float64) string {
	return strconv.FormatFloat(interval, 'f', -1, 64)
}
