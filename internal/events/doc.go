// Package events carries status, log, and progress pushes from the execution
// engine to whatever front end consumes them.
package events
