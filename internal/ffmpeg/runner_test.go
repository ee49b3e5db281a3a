package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"reflect"
	"testing"
	"time"
)

func useHelperProcess(t *testing.T, mode string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess", "--", mode)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
		return cmd
	}
	t.Cleanup(func() { commandContext = original })
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	mode := ""
	for i, arg := range os.Args {
		if arg == "--" && i+1 < len(os.Args) {
			mode = os.Args[i+1]
		}
	}
	switch mode {
	case "progress":
		fmt.Print("out_time_ms=5000000\nprogress=continue\nout_time_ms=10000000\nprogress=end\n")
		os.Exit(0)
	case "carriage":
		fmt.Print("first\rsecond\r\nthird\n")
		os.Exit(0)
	case "stderr":
		fmt.Fprint(os.Stderr, "encoder warning\n")
		os.Exit(0)
	case "fail":
		fmt.Print("something broke\n")
		os.Exit(3)
	case "hang":
		time.Sleep(30 * time.Second)
		os.Exit(0)
	default:
		os.Exit(0)
	}
}

func runnerInvocation() Invocation {
	return Invocation{Kind: KindAudio, Binary: "ffmpeg", Args: []string{"-i", "in.mp4", "out.m4a"}}
}

func TestProcessRunnerStreamsLines(t *testing.T) {
	useHelperProcess(t, "progress")
	runner := NewProcessRunner()

	var lines []string
	result, err := runner.Run(context.Background(), runnerInvocation(), func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Code != 0 || result.Cancelled {
		t.Fatalf("unexpected result %+v", result)
	}
	want := []string{"out_time_ms=5000000", "progress=continue", "out_time_ms=10000000", "progress=end"}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("lines = %v, want %v", lines, want)
	}
}

func TestProcessRunnerSplitsCarriageReturns(t *testing.T) {
	useHelperProcess(t, "carriage")
	runner := NewProcessRunner()

	var lines []string
	if _, err := runner.Run(context.Background(), runnerInvocation(), func(line string) {
		lines = append(lines, line)
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"first", "second", "third"}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("lines = %v, want %v", lines, want)
	}
}

func TestProcessRunnerMergesStderr(t *testing.T) {
	useHelperProcess(t, "stderr")
	runner := NewProcessRunner()

	var lines []string
	if _, err := runner.Run(context.Background(), runnerInvocation(), func(line string) {
		lines = append(lines, line)
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(lines) != 1 || lines[0] != "encoder warning" {
		t.Fatalf("stderr lines = %v", lines)
	}
}

func TestProcessRunnerNonZeroExitIsData(t *testing.T) {
	useHelperProcess(t, "fail")
	runner := NewProcessRunner()

	result, err := runner.Run(context.Background(), runnerInvocation(), nil)
	if err != nil {
		t.Fatalf("non-zero exit should not be an error: %v", err)
	}
	if result.Code != 3 {
		t.Fatalf("exit code = %d, want 3", result.Code)
	}
}

func TestProcessRunnerCancellation(t *testing.T) {
	useHelperProcess(t, "hang")
	runner := &ProcessRunner{Grace: 200 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	result, err := runner.Run(ctx, runnerInvocation(), nil)
	if err != nil {
		t.Fatalf("cancelled run returned error: %v", err)
	}
	if !result.Cancelled {
		t.Fatalf("expected cancelled result, got %+v", result)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancellation took too long: %v", elapsed)
	}
}

func TestProcessRunnerSpawnFailure(t *testing.T) {
	runner := NewProcessRunner()
	inv := Invocation{Kind: KindAudio, Binary: "/nonexistent/ffmpeg-binary", Args: []string{"-i", "x"}}

	_, err := runner.Run(context.Background(), inv, nil)
	if !errors.Is(err, ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
}

func TestProcessRunnerRefusesSkipSentinel(t *testing.T) {
	runner := NewProcessRunner()
	if _, err := runner.Run(context.Background(), Invocation{Kind: KindAudio, Skip: true}, nil); err == nil {
		t.Fatal("expected error for skip sentinel")
	}
}
