// Package queue defines the Job model, its status lifecycle, and the run
// Settings snapshot shared by the builder, executor, and scheduler.
package queue
