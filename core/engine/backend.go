package engine

import "github.com/Benso1tana/MusicMasher/core/audio"

// SourceHandle is an opaque reference to one in-progress playback unit
// inside the audio backend. Handles must be comparable so stale completion
// notifications can be told apart from current ones.
type SourceHandle interface{}

// Backend is the platform audio output stage. The scheduler issues
// fire-and-forget start/stop commands against it and never mixes samples
// itself.
//
// Start schedules a source to begin at the instant `at` on the backend's
// own clock (the same clock Now reads), playing `buf` from `offset` seconds
// in. Scheduling strictly in the future absorbs dispatch jitter, and
// starting several sources at one identical instant is what phase-locks
// them. A Start error means the source stays silent this tick and is
// retried on the next reconciliation. Stop on an already-ended source is a
// benign no-op.
type Backend interface {
	// Now returns the backend clock in seconds. Monotonic.
	Now() float64

	Start(trackID string, buf *audio.Buffer, gain, at, offset float64) (SourceHandle, error)
	Stop(h SourceHandle)
	SetGain(h SourceHandle, gain float64)
}
