// Package watch monitors a drop directory and enqueues newly arrived video
// files once their writes settle.
package watch
