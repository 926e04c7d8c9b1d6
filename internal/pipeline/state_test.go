package pipeline

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StatePending, StateExtracted, true},
		{StateExtracted, StateCondensed, true},
		{StateExtracted, StateBlocked, true},
		{StateCondensed, StateSynthesized, true},
		{StateSynthesized, StateAssembled, true},
		{StateAssembled, StateRecorded, true},

		{StatePending, StateCondensed, false},
		{StatePending, StateRecorded, false},
		{StateExtracted, StateRecorded, false},
		{StateCondensed, StateExtracted, false},
		{StateBlocked, StateCondensed, false},
		{StateRecorded, StateExtracted, false},

		{StatePending, StateFailed, true},
		{StateExtracted, StateFailed, true},
		{StateAssembled, StateFailed, true},
		{StateBlocked, StateFailed, false},
		{StateRecorded, StateFailed, false},
		{StateFailed, StateFailed, false},
		{StateFailed, StateExtracted, false},
	}
	for _, tt := range tests {
		if got := canTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("canTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestItemStateAdvance(t *testing.T) {
	s := newItemState()
	for _, to := range []State{StateExtracted, StateCondensed, StateSynthesized, StateAssembled, StateRecorded} {
		if err := s.advance(to); err != nil {
			t.Fatalf("advance to %s: %v", to, err)
		}
	}
	if err := s.advance(StateFailed); err == nil {
		t.Error("expected error advancing out of terminal state")
	}
}

func TestItemStateBlockedIsTerminal(t *testing.T) {
	s := newItemState()
	if err := s.advance(StateExtracted); err != nil {
		t.Fatal(err)
	}
	if err := s.advance(StateBlocked); err != nil {
		t.Fatal(err)
	}
	if err := s.advance(StateCondensed); err == nil {
		t.Error("expected error advancing out of blocked")
	}
}
