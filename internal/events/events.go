package events

import (
	"time"

	"framelift/internal/queue"
)

// Type classifies messages emitted during queue execution.
type Type string

const (
	TypeJobStarted    Type = "job_started"
	TypeJobProgress   Type = "job_progress"
	TypeJobLog        Type = "job_log"
	TypeJobFinished   Type = "job_finished"
	TypeQueueProgress Type = "queue_progress"
	TypeQueueIdle     Type = "queue_idle"
)

// Event is a sequenced payload consumed by front-end subscribers.
type Event struct {
	Seq           uint64       `json:"seq"`
	Timestamp     time.Time    `json:"ts"`
	Type          Type         `json:"type"`
	JobID         string       `json:"job_id,omitempty"`
	Status        queue.Status `json:"status,omitempty"`
	Fraction      float64      `json:"fraction,omitempty"`
	Indeterminate bool         `json:"indeterminate,omitempty"`
	Line          string       `json:"line,omitempty"`
	Outputs       []string     `json:"outputs,omitempty"`
	Error         string       `json:"error,omitempty"`
}

// Sink receives status, log, and progress pushes from the scheduler and
// executor. Implementations must be safe for use from the scheduler's
// background goroutine; events for a given job arrive in order.
type Sink interface {
	JobStarted(jobID string)
	JobProgress(jobID string, fraction float64, indeterminate bool)
	JobLog(jobID, line string, at time.Time)
	JobFinished(job queue.Job)
	QueueProgress(fraction float64)
	QueueIdle()
}

// Nop is a Sink that drops everything.
type Nop struct{}

func (Nop) JobStarted(string)                 {}
func (Nop) JobProgress(string, float64, bool) {}
func (Nop) JobLog(string, string, time.Time)  {}
func (Nop) JobFinished(queue.Job)             {}
func (Nop) QueueProgress(float64)             {}
func (Nop) QueueIdle()                        {}

// Fanout delivers every event to each wrapped sink in order.
type Fanout []Sink

func (f Fanout) JobStarted(jobID string) {
	for _, s := range f {
		s.JobStarted(jobID)
	}
}

func (f Fanout) JobProgress(jobID string, fraction float64, indeterminate bool) {
	for _, s := range f {
		s.JobProgress(jobID, fraction, indeterminate)
	}
}

func (f Fanout) JobLog(jobID, line string, at time.Time) {
	for _, s := range f {
		s.JobLog(jobID, line, at)
	}
}

func (f Fanout) JobFinished(job queue.Job) {
	for _, s := range f {
		s.JobFinished(job)
	}
}

func (f Fanout) QueueProgress(fraction float64) {
	for _, s := range f {
		s.QueueProgress(fraction)
	}
}

func (f Fanout) QueueIdle() {
	for _, s := range f {
		s.QueueIdle()
	}
}
