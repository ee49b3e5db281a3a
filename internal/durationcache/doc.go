// Package durationcache keeps probed media durations in a small SQLite
// database so repeated runs over the same files skip the ffprobe call.
package durationcache
