package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"framelift/internal/logging"
	"framelift/internal/media"
)

// settleDelay is how long a new file must sit quietly before it is handed
// to the queue. Copies and downloads write in bursts; acting on the first
// event would enqueue half-written files.
const settleDelay = 2 * time.Second

// EnqueueFunc receives paths ready for processing.
type EnqueueFunc func(paths []string)

// Watcher monitors a directory and feeds newly settled video files into the
// queue. It watches a single directory, non-recursively.
type Watcher struct {
	dir     string
	enqueue EnqueueFunc
	logger  *slog.Logger

	settle time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	seen    map[string]struct{}
	wg      sync.WaitGroup
}

// New constructs a watcher for dir. The directory must already exist.
func New(dir string, enqueue EnqueueFunc, logger *slog.Logger) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path %s is not a directory", dir)
	}
	return &Watcher{
		dir:     dir,
		enqueue: enqueue,
		logger:  logging.NewComponentLogger(logger, "watch"),
		settle:  settleDelay,
		pending: make(map[string]*time.Timer),
		seen:    make(map[string]struct{}),
	}, nil
}

// Run blocks watching the directory until ctx is cancelled. Files already
// present at startup are not enqueued; only new arrivals count.
func (w *Watcher) Run(ctx context.Context) error {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	defer notifier.Close()

	if err := notifier.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching for new media", logging.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			w.drainTimers()
			return ctx.Err()
		case event, ok := <-notifier.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-notifier.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("fs watcher error", logging.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}
	path := filepath.Clean(event.Name)
	if !media.IsVideoFile(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, done := w.seen[path]; done {
		return
	}
	// Each write resets the settle timer; the file is enqueued only after
	// it has been quiet for the full delay.
	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settle)
		return
	}
	w.wg.Add(1)
	w.pending[path] = time.AfterFunc(w.settle, func() {
		defer w.wg.Done()
		w.promote(path)
	})
}

// promote moves a settled file out of pending and into the queue.
func (w *Watcher) promote(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	if _, done := w.seen[path]; done {
		w.mu.Unlock()
		return
	}
	w.seen[path] = struct{}{}
	w.mu.Unlock()

	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return
	}
	w.logger.Info("new media settled", logging.String("path", path))
	w.enqueue([]string{path})
}

func (w *Watcher) drainTimers() {
	w.mu.Lock()
	for path, timer := range w.pending {
		// A false Stop means the callback already fired and will call Done.
		if timer.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}
