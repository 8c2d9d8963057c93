package engine

import (
	"testing"
	"time"
)

func TestTransportAnchorMath(t *testing.T) {
	var tr Transport
	base := time.Unix(1000, 0)

	if tr.State() != StateStopped {
		t.Fatalf("initial state = %v, want stopped", tr.State())
	}

	tr.Start(base, 0)
	if tr.State() != StatePlaying {
		t.Fatalf("state after Start = %v", tr.State())
	}
	if got := tr.Elapsed(base.Add(3 * time.Second)); got != 3 {
		t.Errorf("Elapsed = %v, want 3", got)
	}
}

func TestTransportResumeFromPosition(t *testing.T) {
	var tr Transport
	base := time.Unix(1000, 0)

	// Resume at position 10: elapsed continues from there, not from 0.
	tr.Start(base, 10)
	if got := tr.Elapsed(base); got != 10 {
		t.Errorf("Elapsed at resume instant = %v, want 10", got)
	}
	if got := tr.Elapsed(base.Add(2500 * time.Millisecond)); got != 12.5 {
		t.Errorf("Elapsed = %v, want 12.5", got)
	}
}

func TestTransportStateTransitions(t *testing.T) {
	var tr Transport
	base := time.Now()

	tr.Start(base, 0)
	tr.Pause()
	if tr.State() != StatePaused {
		t.Errorf("state after Pause = %v", tr.State())
	}

	tr.Start(base.Add(time.Minute), 4) // resume re-anchors
	if tr.State() != StatePlaying {
		t.Errorf("state after resume = %v", tr.State())
	}
	if got := tr.Elapsed(base.Add(time.Minute)); got != 4 {
		t.Errorf("Elapsed after re-anchor = %v, want 4", got)
	}

	tr.Stop()
	if tr.State() != StateStopped {
		t.Errorf("state after Stop = %v", tr.State())
	}
}

func TestTransportStateString(t *testing.T) {
	tests := []struct {
		state TransportState
		want  string
	}{
		{StateStopped, "stopped"},
		{StatePlaying, "playing"},
		{StatePaused, "paused"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
