package ffmpeg

import (
	"strconv"
	"strings"
)

// ProgressUpdate is a normalized fraction-complete signal derived from the
// tool's machine-readable progress output. Indeterminate updates carry no
// usable fraction (total duration unknown).
type ProgressUpdate struct {
	Fraction      float64
	Indeterminate bool
	End           bool
}

// ProgressParser incrementally parses one invocation's streamed output.
// ffmpeg is launched with "-progress pipe:1 -nostats", which emits key=value
// lines; everything else is a plain log line. The parser never fails on
// malformed input: a line that only partially matches is treated as a log
// line and produces no update.
type ProgressParser struct {
	duration float64
	last     float64
}

// NewProgressParser builds a parser for an invocation over media of the
// given total duration in seconds. A non-positive duration switches the
// parser to indeterminate reporting.
func NewProgressParser(durationSeconds float64) *ProgressParser {
	return &ProgressParser{duration: durationSeconds}
}

// Feed consumes one line of tool output. The second return reports whether
// the line produced a progress update; lines that do not are log lines.
func (p *ProgressParser) Feed(line string) (ProgressUpdate, bool) {
	line = strings.TrimSpace(line)

	switch {
	case strings.HasPrefix(line, "out_time_us="):
		return p.fromMicros(strings.TrimPrefix(line, "out_time_us="))
	case strings.HasPrefix(line, "out_time_ms="):
		// Despite the name, ffmpeg reports this key in microseconds.
		return p.fromMicros(strings.TrimPrefix(line, "out_time_ms="))
	case strings.HasPrefix(line, "out_time="):
		seconds, ok := parseClockTime(strings.TrimPrefix(line, "out_time="))
		if !ok {
			return ProgressUpdate{}, false
		}
		return p.advance(seconds), true
	case line == "progress=end":
		if p.duration <= 0 {
			return ProgressUpdate{Indeterminate: true, End: true}, true
		}
		p.last = 1
		return ProgressUpdate{Fraction: 1, End: true}, true
	default:
		return ProgressUpdate{}, false
	}
}

func (p *ProgressParser) fromMicros(raw string) (ProgressUpdate, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "N/A" {
		return ProgressUpdate{}, false
	}
	micros, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || micros < 0 {
		return ProgressUpdate{}, false
	}
	return p.advance(float64(micros) / 1e6), true
}

// advance converts elapsed seconds into a monotone fraction in [0,1].
func (p *ProgressParser) advance(elapsedSeconds float64) ProgressUpdate {
	if p.duration <= 0 {
		return ProgressUpdate{Indeterminate: true}
	}
	fraction := elapsedSeconds / p.duration
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	if fraction < p.last {
		fraction = p.last
	}
	p.last = fraction
	return ProgressUpdate{Fraction: fraction}
}

// parseClockTime converts ffmpeg's HH:MM:SS.xx form to seconds.
func parseClockTime(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "N/A" {
		return 0, false
	}
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return 0, false
	}
	hours, err1 := strconv.ParseFloat(parts[0], 64)
	minutes, err2 := strconv.ParseFloat(parts[1], 64)
	seconds, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return hours*3600 + minutes*60 + seconds, true
}
