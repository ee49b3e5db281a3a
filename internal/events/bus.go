package events

import (
	"context"
	"sync"
	"time"

	"framelift/internal/queue"
)

// Bus stores recent events in a bounded buffer and wakes waiters when new
// events arrive. It implements Sink, so it can sit directly behind the
// scheduler while front ends poll it incrementally.
type Bus struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Event
	nextSeq  uint64
}

// NewBus constructs a bounded in-memory event buffer.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 512
	}
	b := &Bus{capacity: capacity}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *Bus) publish(evt Event) {
	b.mu.Lock()
	b.nextSeq++
	evt.Seq = b.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(b.buffer) == b.capacity {
		copy(b.buffer, b.buffer[1:])
		b.buffer = b.buffer[:b.capacity-1]
	}
	b.buffer = append(b.buffer, evt)
	b.cond.Broadcast()
	b.mu.Unlock()
}

func (b *Bus) JobStarted(jobID string) {
	b.publish(Event{Type: TypeJobStarted, JobID: jobID, Status: queue.StatusRunning})
}

func (b *Bus) JobProgress(jobID string, fraction float64, indeterminate bool) {
	b.publish(Event{Type: TypeJobProgress, JobID: jobID, Fraction: fraction, Indeterminate: indeterminate})
}

func (b *Bus) JobLog(jobID, line string, at time.Time) {
	b.publish(Event{Type: TypeJobLog, JobID: jobID, Line: line, Timestamp: at})
}

func (b *Bus) JobFinished(job queue.Job) {
	b.publish(Event{
		Type:    TypeJobFinished,
		JobID:   job.ID,
		Status:  job.Status,
		Outputs: append([]string(nil), job.OutputPaths...),
		Error:   job.ErrorMessage,
	})
}

func (b *Bus) QueueProgress(fraction float64) {
	b.publish(Event{Type: TypeQueueProgress, Fraction: fraction})
}

func (b *Bus) QueueIdle() {
	b.publish(Event{Type: TypeQueueIdle})
}

// Since returns buffered events with sequence strictly greater than seq.
func (b *Bus) Since(seq uint64) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Event, 0, len(b.buffer))
	for _, evt := range b.buffer {
		if evt.Seq > seq {
			out = append(out, evt)
		}
	}
	return out
}

// Wait blocks until at least one event newer than seq is available or the
// context ends, then returns the newer events.
func (b *Bus) Wait(ctx context.Context, seq uint64) ([]Event, error) {
	cancelWait := make(chan struct{})
	if ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				b.cond.Broadcast()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		if b.nextSeq > seq {
			out := make([]Event, 0, len(b.buffer))
			for _, evt := range b.buffer {
				if evt.Seq > seq {
					out = append(out, evt)
				}
			}
			return out, nil
		}
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		b.cond.Wait()
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
}

// LastSeq reports the newest sequence number published so far.
func (b *Bus) LastSeq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nextSeq
}

var _ Sink = (*Bus)(nil)
