package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"framelift/internal/events"
	"framelift/internal/logging"
	"framelift/internal/media"
	"framelift/internal/queue"
)

// Runner state, coarser than per-job status.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

var (
	ErrAlreadyRunning  = errors.New("queue is already processing")
	ErrQueueEmpty      = errors.New("queue has no pending jobs")
	ErrToolUnavailable = errors.New("required tool unavailable")
)

// JobRunner executes one job against a settings snapshot. Satisfied by the
// executor; swapped for fakes in tests.
type JobRunner interface {
	Run(ctx context.Context, job *queue.Job, settings queue.Settings)
}

// Scheduler owns the in-memory queue and drains it one job at a time on a
// single background goroutine. All public methods are safe for concurrent
// use; readers only ever see cloned jobs.
type Scheduler struct {
	runner JobRunner
	sink   events.Sink
	logger *slog.Logger

	probeTool func(ctx context.Context, binary string) media.Capability

	mu        sync.Mutex
	jobs      []*queue.Job
	settings  queue.Settings
	state     State
	currentID string
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New constructs an idle scheduler with the given initial settings.
func New(runner JobRunner, settings queue.Settings, sink events.Sink, logger *slog.Logger) *Scheduler {
	if sink == nil {
		sink = events.Nop{}
	}
	return &Scheduler{
		runner:    runner,
		sink:      sink,
		logger:    logging.NewComponentLogger(logger, "scheduler"),
		probeTool: media.ProbeTool,
		settings:  settings,
		state:     StateIdle,
	}
}

// Enqueue appends one pending job per path and returns clones of the new
// jobs. Paths are accepted verbatim; callers filter for media files.
func (s *Scheduler) Enqueue(paths []string) []queue.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := make([]queue.Job, 0, len(paths))
	for _, path := range paths {
		job := &queue.Job{
			ID:         uuid.NewString(),
			InputPath:  path,
			Status:     queue.StatusPending,
			EnqueuedAt: time.Now(),
		}
		s.jobs = append(s.jobs, job)
		added = append(added, job.Clone())
	}
	if len(added) > 0 {
		s.logger.Info("jobs enqueued", logging.Int("count", len(added)))
	}
	return added
}

// UpdateSettings replaces the settings used by the NEXT Start call. A run in
// flight keeps the snapshot it started with.
func (s *Scheduler) UpdateSettings(settings queue.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return nil
}

// Settings returns the settings the next run will snapshot.
func (s *Scheduler) Settings() queue.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Start verifies tool availability, snapshots settings, and begins draining
// pending jobs in the background. It returns once the drain goroutine is
// launched.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	if s.countPendingLocked() == 0 {
		s.mu.Unlock()
		return ErrQueueEmpty
	}
	settings := s.settings
	s.mu.Unlock()

	if err := settings.Validate(); err != nil {
		return err
	}
	for _, binary := range []string{settings.FFmpegPath, settings.FFprobePath} {
		capability := s.probeTool(ctx, binary)
		if !capability.Available {
			return fmt.Errorf("%w: %s (%s)", ErrToolUnavailable, binary, capability.Detail)
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		cancel()
		return ErrAlreadyRunning
	}
	s.state = StateRunning
	s.cancel = cancel
	// Registered before the lock drops so a racing Stop always waits for the
	// drain goroutine.
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("queue processing started")
	go s.drain(runCtx, settings)
	return nil
}

// Stop requests cancellation of the in-flight job and waits for the drain
// goroutine to exit. Pending jobs stay pending. Stopping an idle scheduler
// is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.state = StateStopping
	cancel := s.cancel
	s.mu.Unlock()

	s.logger.Info("queue stop requested")
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Wait blocks until the current run finishes on its own.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// RemoveSelected deletes the named jobs unless they are running. It returns
// how many were removed.
func (s *Scheduler) RemoveSelected(ids []string) int {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(func(job *queue.Job) bool {
		_, ok := wanted[job.ID]
		return ok
	})
}

// Clear removes every job that is not currently running and returns the
// number removed.
func (s *Scheduler) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(func(*queue.Job) bool { return true })
}

func (s *Scheduler) removeLocked(match func(*queue.Job) bool) int {
	kept := s.jobs[:0]
	removed := 0
	for _, job := range s.jobs {
		if job.Status != queue.StatusRunning && match(job) {
			removed++
			continue
		}
		kept = append(kept, job)
	}
	s.jobs = kept
	if removed > 0 {
		s.logger.Info("jobs removed", logging.Int("count", removed))
	}
	return removed
}

// Snapshot returns a cloned view of the queue for display.
func (s *Scheduler) Snapshot() queue.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]queue.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.Clone())
	}
	return queue.Snapshot{
		Jobs:       jobs,
		CurrentID:  s.currentID,
		Overall:    queue.OverallProgress(jobs, s.currentID),
		Processing: s.state != StateIdle,
	}
}

// State returns the coarse run state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) countPendingLocked() int {
	pending := 0
	for _, job := range s.jobs {
		if job.Status == queue.StatusPending {
			pending++
		}
	}
	return pending
}

// drain runs pending jobs strictly one at a time in enqueue order.
func (s *Scheduler) drain(ctx context.Context, settings queue.Settings) {
	defer s.wg.Done()

	for ctx.Err() == nil {
		job := s.takeNext()
		if job == nil {
			break
		}

		s.sink.JobStarted(job.ID)
		s.sink.QueueProgress(s.overall())

		// The executor works on a private copy; progress flows back through
		// the sink wrapper and terminal fields are copied once it settles.
		working := job.Clone()
		s.runner.Run(ctx, &working, settings)
		s.finishJob(job, working)
	}

	s.mu.Lock()
	s.state = StateIdle
	s.currentID = ""
	s.cancel = nil
	s.mu.Unlock()

	s.sink.QueueProgress(s.overall())
	s.sink.QueueIdle()
	s.logger.Info("queue drained, scheduler idle")
}

// takeNext marks the oldest pending job running and returns it, or nil when
// the queue holds no more pending work.
func (s *Scheduler) takeNext() *queue.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		if job.Status != queue.StatusPending {
			continue
		}
		if !queue.ValidTransition(job.Status, queue.StatusRunning) {
			continue
		}
		job.Status = queue.StatusRunning
		s.currentID = job.ID
		s.logger.Info("job started",
			logging.String(logging.FieldJobID, job.ID),
			logging.String("input", job.InputPath))
		return job
	}
	return nil
}

// finishJob copies the executor's terminal result back into the stored job.
func (s *Scheduler) finishJob(stored *queue.Job, result queue.Job) {
	s.mu.Lock()
	if !result.Status.IsTerminal() {
		// The executor must settle every job; treat anything else as a fault.
		result.SetFailed("executor returned non-terminal status " + string(result.Status))
	}
	stored.Status = result.Status
	stored.Progress = result.Progress
	stored.OutputPaths = append([]string(nil), result.OutputPaths...)
	stored.ErrorMessage = result.ErrorMessage
	s.currentID = ""
	finished := stored.Clone()
	s.mu.Unlock()

	s.sink.JobFinished(finished)
	s.sink.QueueProgress(s.overall())
}

// SetProgress records live progress for the named job. The executor's sink
// wrapper calls this so snapshots stay current mid-run.
func (s *Scheduler) SetProgress(jobID string, fraction float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.ID == jobID {
			job.SetProgress(fraction)
			return
		}
	}
}

func (s *Scheduler) overall() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]queue.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}
	return queue.OverallProgress(jobs, s.currentID)
}

// ProgressRelay wraps a sink so job progress also lands in the scheduler's
// stored queue state and fans out as queue-level progress. Bind sets the
// scheduler after construction, which breaks the executor/scheduler
// construction cycle.
type ProgressRelay struct {
	events.Sink
	scheduler *Scheduler
}

// NewProgressRelay wraps the sink; call Bind before processing starts.
func NewProgressRelay(sink events.Sink) *ProgressRelay {
	if sink == nil {
		sink = events.Nop{}
	}
	return &ProgressRelay{Sink: sink}
}

// Bind attaches the scheduler whose queue state receives progress.
func (r *ProgressRelay) Bind(s *Scheduler) {
	r.scheduler = s
}

func (r *ProgressRelay) JobProgress(jobID string, fraction float64, indeterminate bool) {
	if r.scheduler != nil && !indeterminate {
		r.scheduler.SetProgress(jobID, fraction)
	}
	r.Sink.JobProgress(jobID, fraction, indeterminate)
	if r.scheduler != nil {
		r.Sink.QueueProgress(r.scheduler.overall())
	}
}
