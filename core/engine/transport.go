package engine

import "time"

// TransportState is the play/pause/stop state machine position.
type TransportState int

const (
	StateStopped TransportState = iota
	StatePlaying
	StatePaused
)

func (s TransportState) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "stopped"
	}
}

// Transport tracks elapsed wall-clock time against a pause/resume/seek
// adjusted anchor. While playing, the authoritative timeline position is
// now minus the anchor; pausing freezes the position and re-anchoring on
// resume continues from it without drift.
type Transport struct {
	state  TransportState
	anchor time.Time
}

// State returns the current transport state.
func (tr *Transport) State() TransportState {
	return tr.state
}

// Start enters the playing state, anchored so that Elapsed(now) == position.
// Used both for stopped->playing and paused->playing (resume).
func (tr *Transport) Start(now time.Time, position float64) {
	tr.anchor = now.Add(-secondsToDuration(position))
	tr.state = StatePlaying
}

// Elapsed returns the transport position implied by the anchor. Only
// meaningful while playing.
func (tr *Transport) Elapsed(now time.Time) float64 {
	return now.Sub(tr.anchor).Seconds()
}

// Pause freezes the transport. The caller keeps the last computed position.
func (tr *Transport) Pause() {
	tr.state = StatePaused
}

// Stop resets the transport. The caller resets the position to zero.
func (tr *Transport) Stop() {
	tr.state = StateStopped
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
