// Command framelift is the extraction queue CLI: it enqueues video files,
// runs ffmpeg to pull audio tracks and frame sequences, and reports
// per-file results.
package main
