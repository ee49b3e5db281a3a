package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

var commandContext = exec.CommandContext

// ErrSpawn marks invocations whose child process could not be created at
// all, as opposed to tools that ran and reported a non-zero exit.
var ErrSpawn = errors.New("spawn failure")

// graceWindow is how long a cancelled child gets to exit after the
// interrupt signal before it is killed.
const graceWindow = 2 * time.Second

// ExitResult reports how an invocation's child process ended. A non-zero
// code is data, not an error.
type ExitResult struct {
	Code      int
	Cancelled bool
}

// LineFunc receives each decoded line of child output in arrival order.
type LineFunc func(line string)

// Runner executes one invocation and streams its text output.
type Runner interface {
	Run(ctx context.Context, inv Invocation, onLine LineFunc) (ExitResult, error)
}

// ProcessRunner launches invocations as real child processes, merging stdout
// and stderr into one line stream. Cancellation via ctx sends an interrupt
// and escalates to a kill after the grace window.
type ProcessRunner struct {
	Grace time.Duration
}

// NewProcessRunner returns a runner with the default grace window.
func NewProcessRunner() *ProcessRunner {
	return &ProcessRunner{Grace: graceWindow}
}

// Run implements Runner.
func (r *ProcessRunner) Run(ctx context.Context, inv Invocation, onLine LineFunc) (ExitResult, error) {
	if inv.Skip {
		return ExitResult{}, fmt.Errorf("refusing to run skip sentinel for %s", inv.Kind)
	}

	grace := r.Grace
	if grace <= 0 {
		grace = graceWindow
	}

	cmd := commandContext(ctx, inv.Binary, inv.Args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = grace

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return ExitResult{}, fmt.Errorf("%w: stdout pipe: %w", ErrSpawn, err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return ExitResult{}, fmt.Errorf("%w: %w", ErrSpawn, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanCarriageLines)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if onLine != nil {
			onLine(line)
		}
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return ExitResult{Code: exitCode(waitErr), Cancelled: true}, nil
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return ExitResult{Code: exitErr.ExitCode()}, nil
		}
		return ExitResult{}, fmt.Errorf("wait for %s: %w", inv.Binary, waitErr)
	}
	return ExitResult{}, nil
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 0
}

// scanCarriageLines splits on both \n and \r so ffmpeg's carriage-return
// rewritten status lines surface as individual lines.
func scanCarriageLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		// Treat \r\n as a single terminator.
		advance = i + 1
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			advance++
		}
		return advance, bytes.TrimSpace(data[:i]), nil
	}
	if atEOF {
		return len(data), bytes.TrimSpace(data), nil
	}
	return 0, nil, nil
}

var _ Runner = (*ProcessRunner)(nil)
