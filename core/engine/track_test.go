package engine

import (
	"testing"
)

func TestSetSamplesDerivesDurationOnce(t *testing.T) {
	tr := NewTrack("clip")
	if tr.Playable() {
		t.Fatal("fresh track must not be playable")
	}

	if err := tr.SetSamples(bufferSeconds(5)); err != nil {
		t.Fatalf("SetSamples: %v", err)
	}
	if tr.Duration != 5 {
		t.Errorf("Duration = %v, want 5", tr.Duration)
	}
	if !tr.Playable() {
		t.Error("track with samples must be playable")
	}

	if err := tr.SetSamples(bufferSeconds(9)); err != ErrSamplesAlreadySet {
		t.Errorf("second SetSamples error = %v, want ErrSamplesAlreadySet", err)
	}
	if tr.Duration != 5 {
		t.Errorf("Duration changed to %v after rejected SetSamples", tr.Duration)
	}
}

func TestTrackClamping(t *testing.T) {
	tr := NewTrack("clip")

	tr.SetOffset(-3)
	if tr.Offset != 0 {
		t.Errorf("SetOffset(-3) stored %v, want 0", tr.Offset)
	}
	tr.SetOffset(7.5)
	if tr.Offset != 7.5 {
		t.Errorf("SetOffset(7.5) stored %v", tr.Offset)
	}

	gains := []struct{ in, want float64 }{
		{-0.5, 0},
		{0, 0},
		{0.4, 0.4},
		{1, 1},
		{1.7, 1},
	}
	for _, tt := range gains {
		tr.SetGain(tt.in)
		if tr.Gain != tt.want {
			t.Errorf("SetGain(%v) stored %v, want %v", tt.in, tr.Gain, tt.want)
		}
	}
}

func TestToggleFlagsHaveNoCrossTrackEffect(t *testing.T) {
	a := NewTrack("a")
	b := NewTrack("b")

	a.ToggleMute()
	a.ToggleSolo()
	if !a.Muted || !a.Soloed {
		t.Error("toggles did not flip flags")
	}
	if b.Muted || b.Soloed {
		t.Error("toggling one track touched another")
	}

	a.ToggleMute()
	if a.Muted {
		t.Error("second toggle did not flip back")
	}
}

func TestEndTimeAndActiveAt(t *testing.T) {
	tr := playableTrack(t, "clip", 2, 3)

	if tr.EndTime() != 5 {
		t.Fatalf("EndTime = %v, want 5", tr.EndTime())
	}

	tests := []struct {
		pos  float64
		want bool
	}{
		{1.999, false},
		{2, true},
		{4.999, true},
		{5.0, false}, // half-open: not active at its end instant
		{6, false},
	}
	for _, tt := range tests {
		if got := tr.ActiveAt(tt.pos); got != tt.want {
			t.Errorf("ActiveAt(%v) = %v, want %v", tt.pos, got, tt.want)
		}
	}
}

func TestNewTrackIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tr := NewTrack("x")
		if tr.ID == "" {
			t.Fatal("empty track id")
		}
		if seen[tr.ID] {
			t.Fatalf("duplicate id %s", tr.ID)
		}
		seen[tr.ID] = true
	}
}
