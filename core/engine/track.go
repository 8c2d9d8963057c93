package engine

import (
	"errors"

	"github.com/google/uuid"

	"github.com/Benso1tana/MusicMasher/core/audio"
)

// ErrSamplesAlreadySet is returned when a track's sample buffer is assigned
// a second time. Duration must not change underneath a playing track.
var ErrSamplesAlreadySet = errors.New("engine: track samples already set")

// Track is one imported audio clip placed on the timeline: immutable
// identity plus mutable mix state. Tracks are owned by a Timeline and are
// only touched while the owning Session's lock is held.
type Track struct {
	ID   string
	Name string

	// Samples is nil until decoding completes; the track exists in the
	// timeline but is not yet playable.
	Samples *audio.Buffer

	Offset   float64 // timeline seconds where the clip begins, >= 0
	Duration float64 // clip length in seconds, fixed once samples are set
	Gain     float64 // [0, 1]
	Muted    bool
	Soloed   bool
}

// NewTrack creates a track with a fresh id, full gain, and no samples yet.
func NewTrack(name string) *Track {
	return &Track{
		ID:   uuid.NewString(),
		Name: name,
		Gain: 1,
	}
}

// SetSamples attaches the decoded buffer and derives the clip duration.
// Fails if samples were already attached.
func (t *Track) SetSamples(buf *audio.Buffer) error {
	if t.Samples != nil {
		return ErrSamplesAlreadySet
	}
	if buf == nil {
		return errors.New("engine: nil sample buffer")
	}
	t.Samples = buf
	t.Duration = buf.Duration()
	return nil
}

// SetOffset moves the clip on the timeline, clamped to >= 0.
func (t *Track) SetOffset(sec float64) {
	if sec < 0 {
		sec = 0
	}
	t.Offset = sec
}

// SetGain sets the track gain, clamped into [0, 1].
func (t *Track) SetGain(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	t.Gain = v
}

// ToggleMute flips the mute flag. Cross-track solo precedence is resolved
// by AudibleIDs, not here.
func (t *Track) ToggleMute() {
	t.Muted = !t.Muted
}

// ToggleSolo flips the solo flag.
func (t *Track) ToggleSolo() {
	t.Soloed = !t.Soloed
}

// EndTime returns the timeline instant the clip ends at.
func (t *Track) EndTime() float64 {
	return t.Offset + t.Duration
}

// Playable reports whether the track has decoded samples.
func (t *Track) Playable() bool {
	return t.Samples != nil
}

// ActiveAt reports whether the clip's half-open interval [Offset, EndTime)
// contains the given timeline position.
func (t *Track) ActiveAt(position float64) bool {
	return position >= t.Offset && position < t.EndTime()
}
