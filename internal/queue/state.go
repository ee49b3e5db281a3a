package queue

// Snapshot is an immutable view of the queue handed to readers outside the
// scheduler goroutine.
type Snapshot struct {
	Jobs       []Job
	CurrentID  string
	Overall    float64
	Processing bool
}

// Counts aggregates job totals per terminal outcome.
type Counts struct {
	Total     int
	Pending   int
	Running   int
	Succeeded int
	Failed    int
	Skipped   int
	Cancelled int
}

// CountJobs tallies status totals for a job list.
func CountJobs(jobs []Job) Counts {
	counts := Counts{Total: len(jobs)}
	for _, job := range jobs {
		switch job.Status {
		case StatusPending:
			counts.Pending++
		case StatusRunning:
			counts.Running++
		case StatusSucceeded:
			counts.Succeeded++
		case StatusFailed:
			counts.Failed++
		case StatusSkipped:
			counts.Skipped++
		case StatusCancelled:
			counts.Cancelled++
		}
	}
	return counts
}

// OverallProgress derives the queue-wide fraction as completed jobs plus the
// in-flight job's fraction over the total.
func OverallProgress(jobs []Job, currentID string) float64 {
	if len(jobs) == 0 {
		return 0
	}
	done := 0.0
	for _, job := range jobs {
		if job.Status.IsTerminal() {
			done++
			continue
		}
		if job.ID == currentID {
			done += job.Progress
		}
	}
	fraction := done / float64(len(jobs))
	if fraction > 1 {
		fraction = 1
	}
	return fraction
}
