package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"framelift/internal/config"
	"framelift/internal/durationcache"
	"framelift/internal/events"
	"framelift/internal/executor"
	"framelift/internal/ffmpeg"
	"framelift/internal/logging"
	"framelift/internal/media"
	"framelift/internal/queue"
	"framelift/internal/scheduler"
	"framelift/internal/watch"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var watchMode bool
	var verbose bool
	var outputDir string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "run [path...]",
		Short: "Process video files through the extraction queue",
		Long: "Enqueues the given video files (directories are scanned for supported\n" +
			"extensions) and processes them one at a time, extracting the configured\n" +
			"audio track and frame sequence for each.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			inputs, unsupported, err := collectInputs(args)
			if err != nil {
				return err
			}
			if len(inputs) == 0 && !watchMode {
				return errors.New("no video files to process (use --watch to wait for arrivals)")
			}

			settings := cfg.Settings()
			if outputDir != "" {
				expanded, err := config.ExpandPath(outputDir)
				if err != nil {
					return fmt.Errorf("resolve output dir: %w", err)
				}
				settings.OutputPolicy = queue.OutputExplicitDir
				settings.OutputDir = expanded
			}
			if overwrite {
				settings.OverwritePolicy = queue.OverwriteOverwrite
			}
			if err := settings.Validate(); err != nil {
				return err
			}

			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return err
			}

			lock := flock.New(filepath.Join(cfg.Paths.LogDir, "framelift.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire run lock: %w", err)
			}
			if !locked {
				return errors.New("another framelift instance is already running")
			}
			defer func() { _ = lock.Unlock() }()

			cache, err := durationcache.Open(cfg.DurationCachePath(), logger)
			if err != nil {
				return fmt.Errorf("open duration cache: %w", err)
			}
			defer cache.Close()

			bus := events.NewBus(1024)
			relay := scheduler.NewProgressRelay(bus)
			exec := executor.New(ffmpeg.NewProcessRunner(), cache, relay, logger)
			sched := scheduler.New(exec, settings, bus, logger)
			relay.Bind(sched)

			out := cmd.OutOrStdout()
			for _, path := range unsupported {
				fmt.Fprintf(out, "Ignoring unsupported file %s\n", path)
			}
			sched.Enqueue(inputs)

			// Interrupt handling lives on the root context wired in main.
			runCtx := cmd.Context()

			renderer := newEventRenderer(out, sched, verbose)
			consumerCtx, cancelConsumer := context.WithCancel(context.Background())
			consumerDone := make(chan struct{})
			go func() {
				defer close(consumerDone)
				consumeEvents(consumerCtx, bus, renderer)
			}()
			defer func() {
				cancelConsumer()
				<-consumerDone
			}()

			if len(inputs) > 0 {
				if err := sched.Start(runCtx); err != nil {
					return err
				}
			}

			if watchMode {
				if err := runWatchMode(runCtx, cfg, sched, logger); err != nil {
					return err
				}
			} else {
				waitForDrain(runCtx, sched)
			}

			snapshot := sched.Snapshot()
			fmt.Fprintln(out, renderSummary(snapshot))
			counts := queue.CountJobs(snapshot.Jobs)
			if counts.Failed > 0 {
				return fmt.Errorf("%d of %d jobs failed", counts.Failed, counts.Total)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Keep running and enqueue new files from the watch directory")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print tool output lines while processing")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Place all outputs in this directory instead of next to inputs")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing outputs instead of skipping them")
	return cmd
}

// runWatchMode blocks feeding newly settled files into the queue until the
// context is cancelled, then stops any in-flight run.
func runWatchMode(ctx context.Context, cfg *config.Config, sched *scheduler.Scheduler, logger *slog.Logger) error {
	watcher, err := watch.New(cfg.Paths.WatchDir, func(paths []string) {
		sched.Enqueue(paths)
		if err := sched.Start(context.Background()); err != nil &&
			!errors.Is(err, scheduler.ErrAlreadyRunning) {
			logger.Warn("start queue for watched files", logging.Error(err))
		}
	}, logger)
	if err != nil {
		return err
	}

	watchErr := watcher.Run(ctx)
	sched.Stop()
	if watchErr != nil && !errors.Is(watchErr, context.Canceled) {
		return watchErr
	}
	return nil
}

// waitForDrain waits for the queue to empty, cancelling the in-flight job on
// interrupt and leaving pending jobs untouched.
func waitForDrain(ctx context.Context, sched *scheduler.Scheduler) {
	done := make(chan struct{})
	go func() {
		sched.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		sched.Stop()
		<-done
	}
}

// collectInputs resolves arguments to absolute video file paths. Directories
// are scanned one level deep wherever they appear; unsupported files are
// reported rather than silently dropped.
func collectInputs(args []string) (inputs, unsupported []string, err error) {
	for _, arg := range args {
		absPath, err := filepath.Abs(arg)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve path: %w", err)
		}
		info, err := os.Stat(absPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, nil, fmt.Errorf("path does not exist: %s", absPath)
			}
			return nil, nil, fmt.Errorf("inspect path: %w", err)
		}

		if !info.IsDir() {
			if media.IsVideoFile(absPath) {
				inputs = append(inputs, absPath)
			} else {
				unsupported = append(unsupported, absPath)
			}
			continue
		}

		entries, err := os.ReadDir(absPath)
		if err != nil {
			return nil, nil, fmt.Errorf("read directory %s: %w", absPath, err)
		}
		found := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			candidate := filepath.Join(absPath, entry.Name())
			if media.IsVideoFile(candidate) {
				found = append(found, candidate)
			}
		}
		sort.Strings(found)
		inputs = append(inputs, found...)
	}
	return inputs, unsupported, nil
}
