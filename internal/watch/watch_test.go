package watch

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"framelift/internal/testsupport"
)

func collectEnqueues() (EnqueueFunc, chan string) {
	ch := make(chan string, 16)
	return func(paths []string) {
		for _, path := range paths {
			ch <- path
		}
	}, ch
}

func startWatcher(t *testing.T, dir string, enqueue EnqueueFunc) context.CancelFunc {
	t.Helper()
	watcher, err := New(dir, enqueue, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	watcher.settle = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = watcher.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Give the notifier a moment to register before files arrive.
	time.Sleep(50 * time.Millisecond)
	return cancel
}

func TestWatcherEnqueuesSettledVideo(t *testing.T) {
	dir := t.TempDir()
	enqueue, arrivals := collectEnqueues()
	startWatcher(t, dir, enqueue)

	target := filepath.Join(dir, "incoming.mp4")
	testsupport.WriteFile(t, target, 1024)

	select {
	case got := <-arrivals:
		if got != target {
			t.Fatalf("enqueued %q, want %q", got, target)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("settled file never enqueued")
	}
}

func TestWatcherIgnoresNonVideoFiles(t *testing.T) {
	dir := t.TempDir()
	enqueue, arrivals := collectEnqueues()
	startWatcher(t, dir, enqueue)

	testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), 64)
	testsupport.WriteFile(t, filepath.Join(dir, "watched.mkv"), 64)

	select {
	case got := <-arrivals:
		if filepath.Ext(got) != ".mkv" {
			t.Fatalf("non-video file enqueued: %q", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("video file never enqueued")
	}

	select {
	case got := <-arrivals:
		t.Fatalf("unexpected second enqueue: %q", got)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherEnqueuesEachFileOnce(t *testing.T) {
	dir := t.TempDir()
	enqueue, arrivals := collectEnqueues()
	startWatcher(t, dir, enqueue)

	target := filepath.Join(dir, "clip.mov")
	testsupport.WriteFile(t, target, 256)
	// Rewrites before settling must not produce extra enqueues.
	testsupport.WriteFile(t, target, 512)

	select {
	case <-arrivals:
	case <-time.After(3 * time.Second):
		t.Fatal("file never enqueued")
	}
	select {
	case got := <-arrivals:
		t.Fatalf("file enqueued twice: %q", got)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNewRejectsMissingDirectory(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "absent"), func([]string) {}, nil); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestNewRejectsFilePath(t *testing.T) {
	target := filepath.Join(t.TempDir(), "file.mp4")
	testsupport.WriteFile(t, target, 1)
	if _, err := New(target, func([]string) {}, nil); err == nil {
		t.Fatal("expected error for non-directory path")
	}
}
