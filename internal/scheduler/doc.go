// Package scheduler owns the in-memory job queue: enqueue, removal, start
// and stop, and the single-slot drain loop that hands jobs to the executor
// one at a time.
package scheduler
