// Package ffmpeg builds, runs, and interprets ffmpeg invocations: a pure
// command builder with overwrite sentinels, a streaming process runner with
// cooperative cancellation, and an incremental progress parser for ffmpeg's
// machine-readable progress output.
package ffmpeg
