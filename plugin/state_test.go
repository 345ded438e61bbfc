package plugin

import "testing"

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateUninitialized, "UNINITIALIZED"},
		{StateInitializing, "INITIALIZING"},
		{StateReady, "READY"},
		{StateFailed, "FAILED"},
		{StateDestroyed, "DESTROYED"},
		{State(9), "STATE(9)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestState_Transitions(t *testing.T) {
	allowed := map[State][]State{
		StateUninitialized: {StateInitializing, StateDestroyed},
		StateInitializing:  {StateReady, StateFailed},
		StateReady:         {StateDestroyed},
		StateFailed:        {StateDestroyed},
		StateDestroyed:     {},
	}
	all := []State{StateUninitialized, StateInitializing, StateReady, StateFailed, StateDestroyed}

	for from, targets := range allowed {
		ok := make(map[State]bool)
		for _, to := range targets {
			ok[to] = true
		}
		for _, to := range all {
			if got := from.canTransition(to); got != ok[to] {
				t.Errorf("%s -> %s: canTransition = %v, want %v", from, to, got, ok[to])
			}
		}
	}

	if !StateDestroyed.IsTerminal() || StateFailed.IsTerminal() {
		t.Error("only DESTROYED should be terminal")
	}
}
