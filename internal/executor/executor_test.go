package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"framelift/internal/events"
	"framelift/internal/ffmpeg"
	"framelift/internal/media"
	"framelift/internal/queue"
	"framelift/internal/testsupport"
)

func executorSettings(t *testing.T) queue.Settings {
	t.Helper()
	return queue.Settings{
		FFmpegPath:      "ffmpeg",
		FFprobePath:     "ffprobe",
		OutputPolicy:    queue.OutputExplicitDir,
		OutputDir:       t.TempDir(),
		OverwritePolicy: queue.OverwriteSkip,
		AudioEnabled:    true,
		AudioFormat:     queue.AudioM4A,
		AudioMode:       queue.AudioCopy,
		FramesEnabled:   true,
		FrameInterval:   5,
		FrameFormat:     queue.ImageJPEG,
	}
}

func newTestExecutor(runner ffmpeg.Runner, sink events.Sink, duration float64, hasAudio bool) *Executor {
	exec := New(runner, nil, sink, nil)
	exec.builder = &ffmpeg.Builder{Exists: func(string) bool { return false }}
	exec.inspect = func(ctx context.Context, binary, path string) (media.Result, error) {
		result := media.Result{}
		result.Format.Duration = fmt.Sprintf("%v", duration)
		if hasAudio {
			result.Streams = append(result.Streams, media.Stream{CodecType: "audio"})
		}
		result.Streams = append(result.Streams, media.Stream{CodecType: "video"})
		return result, nil
	}
	return exec
}

func newJob() queue.Job {
	return queue.Job{ID: "job-1", InputPath: "/videos/clip.mp4", Status: queue.StatusRunning}
}

func TestRunBothStepsSucceed(t *testing.T) {
	runner := &testsupport.FakeRunner{Script: func(inv ffmpeg.Invocation) ([]string, ffmpeg.ExitResult, error) {
		return []string{"out_time_us=5000000", "progress=end"}, ffmpeg.ExitResult{}, nil
	}}
	exec := newTestExecutor(runner, nil, 10, true)
	settings := executorSettings(t)

	job := newJob()
	exec.Run(context.Background(), &job, settings)

	if job.Status != queue.StatusSucceeded {
		t.Fatalf("status = %s, error = %q", job.Status, job.ErrorMessage)
	}
	if job.Progress != 1 {
		t.Fatalf("progress = %v, want 1", job.Progress)
	}
	if len(job.OutputPaths) != 2 {
		t.Fatalf("outputs = %v", job.OutputPaths)
	}
	kinds := runner.CallKinds()
	if len(kinds) != 2 || kinds[0] != ffmpeg.KindAudio || kinds[1] != ffmpeg.KindFrames {
		t.Fatalf("invocation order = %v", kinds)
	}
}

func TestRunNothingEnabledSkipsWithoutInvocations(t *testing.T) {
	runner := &testsupport.FakeRunner{}
	exec := newTestExecutor(runner, nil, 10, true)
	settings := executorSettings(t)
	settings.AudioEnabled = false
	settings.FramesEnabled = false

	job := newJob()
	exec.Run(context.Background(), &job, settings)

	if job.Status != queue.StatusSkipped {
		t.Fatalf("status = %s", job.Status)
	}
	if calls := runner.Calls(); len(calls) != 0 {
		t.Fatalf("runner invoked %d times for disabled extractions", len(calls))
	}
}

func TestRunAudioSkippedWhenNoStream(t *testing.T) {
	runner := &testsupport.FakeRunner{}
	exec := newTestExecutor(runner, nil, 10, false)
	settings := executorSettings(t)

	job := newJob()
	exec.Run(context.Background(), &job, settings)

	if job.Status != queue.StatusSucceeded {
		t.Fatalf("status = %s, error = %q", job.Status, job.ErrorMessage)
	}
	kinds := runner.CallKinds()
	if len(kinds) != 1 || kinds[0] != ffmpeg.KindFrames {
		t.Fatalf("expected frames only, got %v", kinds)
	}
	if len(job.OutputPaths) != 1 {
		t.Fatalf("outputs = %v", job.OutputPaths)
	}
}

func TestRunAllStepsSkippedMeansJobSkipped(t *testing.T) {
	runner := &testsupport.FakeRunner{}
	exec := newTestExecutor(runner, nil, 10, true)
	// Every target already exists under the skip policy.
	exec.builder = &ffmpeg.Builder{Exists: func(string) bool { return true }}

	job := newJob()
	exec.Run(context.Background(), &job, executorSettings(t))

	if job.Status != queue.StatusSkipped {
		t.Fatalf("status = %s", job.Status)
	}
	if calls := runner.Calls(); len(calls) != 0 {
		t.Fatalf("runner invoked for skip sentinels: %d", len(calls))
	}
}

func TestRunCopyFallbackToTranscode(t *testing.T) {
	var callArgs [][]string
	runner := &testsupport.FakeRunner{Script: func(inv ffmpeg.Invocation) ([]string, ffmpeg.ExitResult, error) {
		callArgs = append(callArgs, inv.Args)
		if inv.Kind == ffmpeg.KindAudio && strings.Contains(strings.Join(inv.Args, " "), "-acodec copy") {
			return nil, ffmpeg.ExitResult{Code: 1}, nil
		}
		return nil, ffmpeg.ExitResult{}, nil
	}}
	exec := newTestExecutor(runner, nil, 10, true)
	settings := executorSettings(t)
	settings.FramesEnabled = false

	job := newJob()
	exec.Run(context.Background(), &job, settings)

	if job.Status != queue.StatusSucceeded {
		t.Fatalf("status = %s, error = %q", job.Status, job.ErrorMessage)
	}
	if len(callArgs) != 2 {
		t.Fatalf("expected copy attempt plus transcode retry, got %d calls", len(callArgs))
	}
	retry := strings.Join(callArgs[1], " ")
	if !strings.Contains(retry, "-codec:a aac") {
		t.Fatalf("retry args %q are not a transcode", retry)
	}
}

func TestRunNoFallbackForTranscodeMode(t *testing.T) {
	runner := &testsupport.FakeRunner{Script: func(inv ffmpeg.Invocation) ([]string, ffmpeg.ExitResult, error) {
		return nil, ffmpeg.ExitResult{Code: 1}, nil
	}}
	exec := newTestExecutor(runner, nil, 10, true)
	settings := executorSettings(t)
	settings.AudioMode = queue.AudioTranscode
	settings.FramesEnabled = false

	job := newJob()
	exec.Run(context.Background(), &job, settings)

	if job.Status != queue.StatusFailed {
		t.Fatalf("status = %s", job.Status)
	}
	if calls := runner.Calls(); len(calls) != 1 {
		t.Fatalf("transcode failure must not retry, got %d calls", len(calls))
	}
}

func TestRunPartialFailureKeepsCompletedOutputs(t *testing.T) {
	runner := &testsupport.FakeRunner{Script: func(inv ffmpeg.Invocation) ([]string, ffmpeg.ExitResult, error) {
		if inv.Kind == ffmpeg.KindFrames {
			return nil, ffmpeg.ExitResult{Code: 1}, nil
		}
		return nil, ffmpeg.ExitResult{}, nil
	}}
	exec := newTestExecutor(runner, nil, 10, true)
	settings := executorSettings(t)
	settings.AudioMode = queue.AudioTranscode

	job := newJob()
	exec.Run(context.Background(), &job, settings)

	if job.Status != queue.StatusFailed {
		t.Fatalf("status = %s", job.Status)
	}
	if len(job.OutputPaths) != 1 || !strings.HasSuffix(job.OutputPaths[0], ".m4a") {
		t.Fatalf("audio output not kept: %v", job.OutputPaths)
	}
	if !strings.Contains(job.ErrorMessage, "frames") {
		t.Fatalf("error message %q does not identify failing step", job.ErrorMessage)
	}
}

func TestRunSpawnFailureFailsJob(t *testing.T) {
	runner := &testsupport.FakeRunner{Script: func(inv ffmpeg.Invocation) ([]string, ffmpeg.ExitResult, error) {
		return nil, ffmpeg.ExitResult{}, fmt.Errorf("%w: exec: not found", ffmpeg.ErrSpawn)
	}}
	exec := newTestExecutor(runner, nil, 10, true)
	settings := executorSettings(t)
	settings.AudioMode = queue.AudioTranscode
	settings.FramesEnabled = false

	job := newJob()
	exec.Run(context.Background(), &job, settings)

	if job.Status != queue.StatusFailed {
		t.Fatalf("status = %s", job.Status)
	}
	if !strings.Contains(job.ErrorMessage, "launch") {
		t.Fatalf("error message = %q", job.ErrorMessage)
	}
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &testsupport.FakeRunner{Script: func(inv ffmpeg.Invocation) ([]string, ffmpeg.ExitResult, error) {
		cancel()
		return nil, ffmpeg.ExitResult{Cancelled: true}, nil
	}}
	exec := newTestExecutor(runner, nil, 10, true)

	job := newJob()
	exec.Run(ctx, &job, executorSettings(t))

	if job.Status != queue.StatusCancelled {
		t.Fatalf("status = %s", job.Status)
	}
	if calls := runner.Calls(); len(calls) != 1 {
		t.Fatalf("cancelled run continued to next step: %d calls", len(calls))
	}
}

func TestRunProbeFailureFailsJob(t *testing.T) {
	runner := &testsupport.FakeRunner{}
	exec := newTestExecutor(runner, nil, 10, true)
	exec.inspect = func(ctx context.Context, binary, path string) (media.Result, error) {
		return media.Result{}, errors.New("ffprobe exploded")
	}

	job := newJob()
	exec.Run(context.Background(), &job, executorSettings(t))

	if job.Status != queue.StatusFailed {
		t.Fatalf("status = %s", job.Status)
	}
	if !strings.Contains(job.ErrorMessage, "probe") {
		t.Fatalf("error message = %q", job.ErrorMessage)
	}
	if calls := runner.Calls(); len(calls) != 0 {
		t.Fatalf("runner invoked despite probe failure: %d", len(calls))
	}
}

type recordingSink struct {
	events.Nop
	mu        sync.Mutex
	progress  []float64
	logLines  []string
	indetSeen bool
}

func (r *recordingSink) JobProgress(jobID string, fraction float64, indeterminate bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if indeterminate {
		r.indetSeen = true
		return
	}
	r.progress = append(r.progress, fraction)
}

func (r *recordingSink) JobLog(jobID, line string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logLines = append(r.logLines, line)
}

func TestRunProgressWeightingAcrossSteps(t *testing.T) {
	runner := &testsupport.FakeRunner{Script: func(inv ffmpeg.Invocation) ([]string, ffmpeg.ExitResult, error) {
		return []string{"out_time_us=5000000", "out_time_us=10000000"}, ffmpeg.ExitResult{}, nil
	}}
	sink := &recordingSink{}
	exec := newTestExecutor(runner, sink, 10, true)
	settings := executorSettings(t)
	settings.AudioMode = queue.AudioTranscode

	job := newJob()
	exec.Run(context.Background(), &job, settings)

	if job.Status != queue.StatusSucceeded {
		t.Fatalf("status = %s, error = %q", job.Status, job.ErrorMessage)
	}
	// Audio occupies [0, 0.5), frames [0.5, 1): halfway through the audio
	// step is 0.25 overall, halfway through frames is 0.75.
	want := []float64{0.25, 0.5, 0.75, 1}
	if len(sink.progress) != len(want) {
		t.Fatalf("progress samples = %v", sink.progress)
	}
	for i, fraction := range want {
		if diff := sink.progress[i] - fraction; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("progress[%d] = %v, want %v (all: %v)", i, sink.progress[i], fraction, sink.progress)
		}
	}
	for i := 1; i < len(sink.progress); i++ {
		if sink.progress[i] < sink.progress[i-1] {
			t.Fatalf("progress not monotone: %v", sink.progress)
		}
	}
}

func TestRunIndeterminateProgressWhenDurationUnknown(t *testing.T) {
	runner := &testsupport.FakeRunner{Script: func(inv ffmpeg.Invocation) ([]string, ffmpeg.ExitResult, error) {
		return []string{"out_time_us=5000000"}, ffmpeg.ExitResult{}, nil
	}}
	sink := &recordingSink{}
	exec := newTestExecutor(runner, sink, 0, true)
	settings := executorSettings(t)
	settings.AudioMode = queue.AudioTranscode
	settings.FramesEnabled = false

	job := newJob()
	exec.Run(context.Background(), &job, settings)

	if !sink.indetSeen {
		t.Fatal("expected indeterminate progress events")
	}
}

func TestRunNonProgressLinesBecomeLogs(t *testing.T) {
	runner := &testsupport.FakeRunner{Script: func(inv ffmpeg.Invocation) ([]string, ffmpeg.ExitResult, error) {
		return []string{"Stream mapping:", "out_time_us=10000000"}, ffmpeg.ExitResult{}, nil
	}}
	sink := &recordingSink{}
	exec := newTestExecutor(runner, sink, 10, true)
	settings := executorSettings(t)
	settings.AudioMode = queue.AudioTranscode
	settings.FramesEnabled = false

	job := newJob()
	exec.Run(context.Background(), &job, settings)

	found := false
	for _, line := range sink.logLines {
		if line == "Stream mapping:" {
			found = true
		}
	}
	if !found {
		t.Fatalf("log lines = %v", sink.logLines)
	}
}

func TestRunCreatesFramesDirectory(t *testing.T) {
	runner := &testsupport.FakeRunner{}
	exec := newTestExecutor(runner, nil, 10, false)
	settings := executorSettings(t)

	job := newJob()
	exec.Run(context.Background(), &job, settings)

	framesDir := ffmpeg.FramesDir(job, settings)
	if filepath.Dir(framesDir) != settings.OutputDir {
		t.Fatalf("frames dir %q not under output dir", framesDir)
	}
	info, err := os.Stat(framesDir)
	if err != nil || !info.IsDir() {
		t.Fatalf("frames dir not created: %v", err)
	}
}
