package pipeline

import "fmt"

// State tracks an item's position in the processing lifecycle.
type State string

const (
	StatePending     State = "pending"
	StateExtracted   State = "extracted"
	StateBlocked     State = "blocked"
	StateCondensed   State = "condensed"
	StateSynthesized State = "synthesized"
	StateAssembled   State = "assembled"
	StateRecorded    State = "recorded"
	StateFailed      State = "failed"
)

// transitions lists the legal forward moves. Blocked, Recorded and
// Failed are terminal.
var transitions = map[State][]State{
	StatePending:     {StateExtracted},
	StateExtracted:   {StateBlocked, StateCondensed},
	StateCondensed:   {StateSynthesized},
	StateSynthesized: {StateAssembled},
	StateAssembled:   {StateRecorded},
}

// canTransition reports whether from -> to is a legal move. Failed is
// reachable from any non-terminal state.
func canTransition(from, to State) bool {
	if to == StateFailed {
		switch from {
		case StateBlocked, StateRecorded, StateFailed:
			return false
		}
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// itemState validates transitions as an item moves through the stages.
type itemState struct {
	current State
}

func newItemState() *itemState {
	return &itemState{current: StatePending}
}

func (s *itemState) advance(to State) error {
	if !canTransition(s.current, to) {
		return fmt.Errorf("illegal state transition %s -> %s", s.current, to)
	}
	s.current = to
	return nil
}
