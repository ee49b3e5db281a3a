package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queued job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusSucceeded,
	StatusFailed,
	StatusSkipped,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status is final. Terminal jobs are never
// re-run in place; re-queuing requires a new Job.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped, StatusCancelled:
		return true
	default:
		return false
	}
}

// ValidTransition reports whether a job may move from one status to another.
// Pending jobs start running or are cancelled wholesale; running jobs settle
// into exactly one terminal state.
func ValidTransition(from, to Status) bool {
	if from == to {
		return false
	}
	switch from {
	case StatusPending:
		return to == StatusRunning || to == StatusCancelled
	case StatusRunning:
		return to.IsTerminal()
	default:
		return false
	}
}

// Job is one input file's full extraction work item, tracked through the queue.
type Job struct {
	ID           string
	InputPath    string
	Status       Status
	Progress     float64
	OutputPaths  []string
	ErrorMessage string
	EnqueuedAt   time.Time
}

// Clone returns a deep copy safe to hand to readers outside the scheduler.
func (j Job) Clone() Job {
	cp := j
	if len(j.OutputPaths) > 0 {
		cp.OutputPaths = append([]string(nil), j.OutputPaths...)
	}
	return cp
}

// SetProgress raises the job's progress fraction. Progress is monotone while
// running, so lower values are ignored.
func (j *Job) SetProgress(fraction float64) {
	if fraction < 0 {
		return
	}
	if fraction > 1 {
		fraction = 1
	}
	if fraction > j.Progress {
		j.Progress = fraction
	}
}

// SetFailed marks the job failed with the given message.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
}
