package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"framelift/internal/durationcache"
	"framelift/internal/events"
	"framelift/internal/ffmpeg"
	"framelift/internal/logging"
	"framelift/internal/media"
	"framelift/internal/queue"
)

// InspectFunc probes a media file. Swappable in tests.
type InspectFunc func(ctx context.Context, binary, path string) (media.Result, error)

// Executor runs a single job to completion: it probes the input, builds the
// enabled extraction invocations, runs them sequentially, and settles the
// job into exactly one terminal status. It holds no queue state of its own.
type Executor struct {
	builder *ffmpeg.Builder
	runner  ffmpeg.Runner
	cache   *durationcache.Cache
	sink    events.Sink
	logger  *slog.Logger

	inspect  InspectFunc
	mkdirAll func(path string) error
}

// New constructs an executor. A nil cache disables probe caching and a nil
// sink discards events.
func New(runner ffmpeg.Runner, cache *durationcache.Cache, sink events.Sink, logger *slog.Logger) *Executor {
	if sink == nil {
		sink = events.Nop{}
	}
	return &Executor{
		builder:  ffmpeg.NewBuilder(),
		runner:   runner,
		cache:    cache,
		sink:     sink,
		logger:   logging.NewComponentLogger(logger, "executor"),
		inspect:  media.Inspect,
		mkdirAll: func(path string) error { return os.MkdirAll(path, 0o755) },
	}
}

// stepResult is the settled outcome of one extraction step.
type stepResult struct {
	outcome StepOutcome
	message string
}

// Run executes the job and mutates it into a terminal status. The settings
// are the snapshot taken when the queue run started; later settings edits
// never affect a job already handed to Run.
func (e *Executor) Run(ctx context.Context, job *queue.Job, settings queue.Settings) {
	log := e.logger.With(logging.String(logging.FieldJobID, job.ID), logging.String("input", job.InputPath))
	state := StateQueued

	if !settings.AnyExtractionEnabled() {
		log.Info("nothing to extract, both extractions disabled")
		job.Status = queue.StatusSkipped
		job.Progress = 1
		return
	}

	invocations := e.builder.Build(*job, settings)
	runnable := 0
	for _, inv := range invocations {
		if !inv.Skip {
			runnable++
		}
	}

	probe := durationcache.Entry{}
	if runnable > 0 {
		e.advance(&state, StateProbingDuration, log)
		entry, err := e.probeDuration(ctx, job.InputPath, settings.FFprobePath)
		if ctx.Err() != nil {
			e.settleCancelled(job, log)
			return
		}
		if err != nil {
			log.Error("media probe failed", logging.Error(err))
			job.SetFailed(fmt.Sprintf("probe %s: %v", job.InputPath, err))
			return
		}
		probe = entry
		log.Info("probed input",
			logging.Float64("duration_seconds", probe.DurationSeconds),
			logging.Bool("has_audio", probe.HasAudio))
	}

	weight := 1.0 / float64(len(invocations))
	offset := 0.0
	outcomes := map[ffmpeg.InvocationKind]stepResult{}
	cancelled := false

	for _, inv := range invocations {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		switch inv.Kind {
		case ffmpeg.KindAudio:
			e.advance(&state, StateRunningAudio, log)
		case ffmpeg.KindFrames:
			e.advance(&state, StateRunningFrames, log)
		}

		result := e.runStep(ctx, job, settings, inv, probe, offset, weight, log)
		outcomes[inv.Kind] = result
		if result.outcome == OutcomeCancelled {
			cancelled = true
			break
		}
		offset += weight
		job.SetProgress(offset)
	}
	e.advance(&state, StateDone, log)

	if cancelled {
		e.settleCancelled(job, log)
		return
	}
	e.settle(job, outcomes, log)
}

// advance moves the pipeline state forward, guarding against regressions.
func (e *Executor) advance(state *State, to State, log *slog.Logger) {
	if !ValidTransition(*state, to) {
		log.Warn("pipeline state regression blocked",
			logging.String("from", string(*state)),
			logging.String("to", string(to)))
		return
	}
	*state = to
}

// probeDuration resolves duration and audio presence, consulting the cache
// first. Cache write failures are logged, never fatal.
func (e *Executor) probeDuration(ctx context.Context, path, ffprobePath string) (durationcache.Entry, error) {
	if entry, ok := e.cache.Lookup(ctx, path); ok {
		return entry, nil
	}
	result, err := e.inspect(ctx, ffprobePath, path)
	if err != nil {
		return durationcache.Entry{}, err
	}
	entry := durationcache.Entry{
		DurationSeconds: result.DurationSeconds(),
		HasAudio:        result.HasAudioStream(),
	}
	if err := e.cache.Store(ctx, path, entry); err != nil {
		e.logger.Warn("probe cache store failed", logging.Error(err))
	}
	return entry, nil
}

func (e *Executor) runStep(ctx context.Context, job *queue.Job, settings queue.Settings, inv ffmpeg.Invocation, probe durationcache.Entry, offset, weight float64, log *slog.Logger) stepResult {
	stepLog := log.With(logging.String(logging.FieldStep, string(inv.Kind)))

	if inv.Skip {
		stepLog.Info("extraction skipped", logging.String("reason", inv.SkipReason))
		e.sink.JobLog(job.ID, fmt.Sprintf("%s skipped: %s", inv.Kind, inv.SkipReason), time.Now())
		return stepResult{outcome: OutcomeSkipped, message: inv.SkipReason}
	}

	if inv.Kind == ffmpeg.KindAudio && !probe.HasAudio {
		reason := "input has no audio stream"
		stepLog.Info("extraction skipped", logging.String("reason", reason))
		e.sink.JobLog(job.ID, "audio skipped: "+reason, time.Now())
		return stepResult{outcome: OutcomeSkipped, message: reason}
	}

	targetDir := ffmpeg.OutputRoot(*job, settings)
	if inv.Kind == ffmpeg.KindFrames {
		targetDir = ffmpeg.FramesDir(*job, settings)
		if predicted := ffmpeg.PredictedSamples(probe.DurationSeconds, settings.FrameInterval); predicted > 0 {
			stepLog.Info("extracting frames",
				logging.Int("predicted_samples", predicted),
				logging.Float64("interval_seconds", settings.FrameInterval))
		}
	}
	if err := e.mkdirAll(targetDir); err != nil {
		stepLog.Error("create output directory failed", logging.Error(err))
		return stepResult{outcome: OutcomeFailed, message: fmt.Sprintf("create %s: %v", targetDir, err)}
	}

	stepLog.Info("running extraction", logging.String("output", inv.OutputPath))
	result := e.runInvocation(ctx, job, inv, probe.DurationSeconds, offset, weight, stepLog)
	if result.outcome != OutcomeFailed {
		if result.outcome == OutcomeSucceeded {
			job.OutputPaths = append(job.OutputPaths, inv.OutputPath)
			stepLog.Info("extraction finished", logging.String("output", inv.OutputPath))
		}
		return result
	}

	// A failed stream copy usually means the source codec does not fit the
	// container; retry once with a real transcode.
	if inv.Kind == ffmpeg.KindAudio && settings.AudioFormat == queue.AudioM4A && settings.AudioMode == queue.AudioCopy {
		stepLog.Warn("stream copy failed, retrying with transcode", logging.String("error", result.message))
		e.sink.JobLog(job.ID, "audio copy failed, retrying with transcode", time.Now())
		retry := e.builder.AudioInvocation(*job, settings, true)
		result = e.runInvocation(ctx, job, retry, probe.DurationSeconds, offset, weight, stepLog)
		if result.outcome == OutcomeSucceeded {
			job.OutputPaths = append(job.OutputPaths, retry.OutputPath)
			stepLog.Info("extraction finished", logging.String("output", retry.OutputPath))
		}
	}
	return result
}

// runInvocation executes one command, streaming progress into the job and
// sink. Non-progress output lines flow through as job log events.
func (e *Executor) runInvocation(ctx context.Context, job *queue.Job, inv ffmpeg.Invocation, durationSeconds, offset, weight float64, stepLog *slog.Logger) stepResult {
	parser := ffmpeg.NewProgressParser(durationSeconds)
	sampler := logging.NewProgressSampler(0)

	onLine := func(line string) {
		update, ok := parser.Feed(line)
		if !ok {
			e.sink.JobLog(job.ID, line, time.Now())
			stepLog.Debug("tool output", logging.String("line", line))
			return
		}
		if update.Indeterminate {
			e.sink.JobProgress(job.ID, job.Progress, true)
			return
		}
		job.SetProgress(offset + update.Fraction*weight)
		e.sink.JobProgress(job.ID, job.Progress, false)
		if sampler.ShouldLog(job.Progress, string(inv.Kind)) {
			stepLog.Info("extraction progress", logging.Float64("fraction", job.Progress))
		}
	}

	result, err := e.runner.Run(ctx, inv, onLine)
	switch {
	case result.Cancelled || ctx.Err() != nil:
		return stepResult{outcome: OutcomeCancelled}
	case errors.Is(err, ffmpeg.ErrSpawn):
		return stepResult{outcome: OutcomeFailed, message: fmt.Sprintf("launch %s: %v", inv.Binary, err)}
	case err != nil:
		return stepResult{outcome: OutcomeFailed, message: err.Error()}
	case result.Code != 0:
		return stepResult{outcome: OutcomeFailed, message: fmt.Sprintf("%s exited with code %d", inv.Binary, result.Code)}
	default:
		return stepResult{outcome: OutcomeSucceeded}
	}
}

// settle maps per-step outcomes onto one terminal job status. Any failure
// fails the job while keeping outputs from steps that completed; a job with
// no failures succeeds when at least one step produced output and is skipped
// when every step was skipped.
func (e *Executor) settle(job *queue.Job, outcomes map[ffmpeg.InvocationKind]stepResult, log *slog.Logger) {
	var firstFailure string
	succeeded := 0
	for _, kind := range []ffmpeg.InvocationKind{ffmpeg.KindAudio, ffmpeg.KindFrames} {
		result, ok := outcomes[kind]
		if !ok {
			continue
		}
		switch result.outcome {
		case OutcomeFailed:
			if firstFailure == "" {
				firstFailure = fmt.Sprintf("%s: %s", kind, result.message)
			}
		case OutcomeSucceeded:
			succeeded++
		}
	}

	switch {
	case firstFailure != "":
		job.SetFailed(firstFailure)
		log.Error("job failed", logging.String("error", firstFailure))
	case succeeded > 0:
		job.Status = queue.StatusSucceeded
		job.Progress = 1
		log.Info("job succeeded", logging.Int("outputs", len(job.OutputPaths)))
	default:
		job.Status = queue.StatusSkipped
		job.Progress = 1
		log.Info("job skipped, nothing to do")
	}
}

func (e *Executor) settleCancelled(job *queue.Job, log *slog.Logger) {
	job.Status = queue.StatusCancelled
	log.Info("job cancelled", logging.Int("outputs_kept", len(job.OutputPaths)))
}
