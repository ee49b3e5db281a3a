// Package executor runs one job at a time through the extraction pipeline:
// duration probe, audio extraction, frame extraction. It owns per-job
// sequencing and terminal status mapping, leaving queue ordering to the
// scheduler.
package executor
