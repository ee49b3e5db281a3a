// Package media wraps ffprobe inspection and external-tool capability
// probing. It parses ffprobe's JSON mode for duration and stream layout and
// checks binaries with a bounded version probe.
package media
