package queue

import "testing"

func TestOverallProgress(t *testing.T) {
	jobs := []Job{
		{ID: "a", Status: StatusSucceeded, Progress: 1},
		{ID: "b", Status: StatusRunning, Progress: 0.5},
		{ID: "c", Status: StatusPending},
		{ID: "d", Status: StatusFailed},
	}
	got := OverallProgress(jobs, "b")
	want := (1 + 0.5 + 0 + 1) / 4.0
	if got != want {
		t.Fatalf("OverallProgress = %v, want %v", got, want)
	}
}

func TestOverallProgressEmptyQueue(t *testing.T) {
	if got := OverallProgress(nil, ""); got != 0 {
		t.Fatalf("empty queue progress = %v, want 0", got)
	}
}

func TestOverallProgressIgnoresNonCurrentRunning(t *testing.T) {
	jobs := []Job{{ID: "a", Status: StatusRunning, Progress: 0.9}}
	if got := OverallProgress(jobs, "other"); got != 0 {
		t.Fatalf("non-current running job counted, got %v", got)
	}
}

func TestCountJobs(t *testing.T) {
	jobs := []Job{
		{Status: StatusPending},
		{Status: StatusRunning},
		{Status: StatusSucceeded},
		{Status: StatusSucceeded},
		{Status: StatusFailed},
		{Status: StatusSkipped},
		{Status: StatusCancelled},
	}
	counts := CountJobs(jobs)
	if counts.Total != 7 || counts.Pending != 1 || counts.Running != 1 ||
		counts.Succeeded != 2 || counts.Failed != 1 || counts.Skipped != 1 || counts.Cancelled != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}
