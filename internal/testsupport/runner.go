package testsupport

import (
	"context"
	"sync"

	"framelift/internal/ffmpeg"
)

// RunnerCall records one invocation handed to the fake runner.
type RunnerCall struct {
	Invocation ffmpeg.Invocation
}

// RunnerScript decides the outcome of a fake invocation. Lines are streamed
// to the caller before the exit result is returned.
type RunnerScript func(inv ffmpeg.Invocation) (lines []string, result ffmpeg.ExitResult, err error)

// FakeRunner satisfies ffmpeg.Runner without spawning processes. The default
// script reports a clean zero exit with no output.
type FakeRunner struct {
	Script RunnerScript

	mu    sync.Mutex
	calls []RunnerCall
}

// Run implements ffmpeg.Runner.
func (f *FakeRunner) Run(ctx context.Context, inv ffmpeg.Invocation, onLine ffmpeg.LineFunc) (ffmpeg.ExitResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, RunnerCall{Invocation: inv})
	f.mu.Unlock()

	if ctx.Err() != nil {
		return ffmpeg.ExitResult{Cancelled: true}, nil
	}

	var lines []string
	result := ffmpeg.ExitResult{}
	var err error
	if f.Script != nil {
		lines, result, err = f.Script(inv)
	}
	for _, line := range lines {
		if ctx.Err() != nil {
			return ffmpeg.ExitResult{Cancelled: true}, nil
		}
		if onLine != nil {
			onLine(line)
		}
	}
	if ctx.Err() != nil {
		return ffmpeg.ExitResult{Cancelled: true}, nil
	}
	return result, err
}

// Calls returns a copy of the recorded invocations.
func (f *FakeRunner) Calls() []RunnerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RunnerCall(nil), f.calls...)
}

// CallKinds lists the invocation kinds in call order.
func (f *FakeRunner) CallKinds() []ffmpeg.InvocationKind {
	kinds := make([]ffmpeg.InvocationKind, 0)
	for _, call := range f.Calls() {
		kinds = append(kinds, call.Invocation.Kind)
	}
	return kinds
}

var _ ffmpeg.Runner = (*FakeRunner)(nil)
