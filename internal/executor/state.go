package executor

// State tracks where a running job is inside the executor pipeline. The
// pipeline is strictly forward: stages may be skipped but never revisited.
type State string

const (
	StateQueued          State = "queued"
	StateProbingDuration State = "probing_duration"
	StateRunningAudio    State = "running_audio"
	StateRunningFrames   State = "running_frames"
	StateDone            State = "done"
)

var stateOrder = map[State]int{
	StateQueued:          0,
	StateProbingDuration: 1,
	StateRunningAudio:    2,
	StateRunningFrames:   3,
	StateDone:            4,
}

// ValidTransition reports whether the pipeline may move from one state to
// another. Any forward move is legal, which lets disabled stages drop out.
func ValidTransition(from, to State) bool {
	fromIdx, okFrom := stateOrder[from]
	toIdx, okTo := stateOrder[to]
	if !okFrom || !okTo {
		return false
	}
	return toIdx > fromIdx
}

// StepOutcome records how a single extraction step ended.
type StepOutcome string

const (
	OutcomeNotRun    StepOutcome = "not_run"
	OutcomeSucceeded StepOutcome = "succeeded"
	OutcomeSkipped   StepOutcome = "skipped"
	OutcomeFailed    StepOutcome = "failed"
	OutcomeCancelled StepOutcome = "cancelled"
)
