package engine

import (
	"time"

	"github.com/Benso1tana/MusicMasher/logger"
)

// Scheduler reconciles the set of sounding sources against the set of
// tracks that should sound at the current transport position. It owns the
// sounding-source registry: at most one active source per track, enforced
// by checking membership before starting. All methods run under the owning
// Session's lock.
type Scheduler struct {
	backend   Backend
	lookAhead float64 // seconds added to Backend.Now for shared start instants

	sounding map[string]SourceHandle
}

// NewScheduler creates a scheduler issuing commands to the given backend.
func NewScheduler(backend Backend, lookAhead time.Duration) *Scheduler {
	return &Scheduler{
		backend:   backend,
		lookAhead: lookAhead.Seconds(),
		sounding:  make(map[string]SourceHandle),
	}
}

// Reconcile brings the sounding set in line with
// audible(tracks) ∩ active(position), each new source at the intra-clip
// offset position − track.Offset. Tracks already sounding are left
// untouched: restarting would reset their phase and click. All sources
// started within one call share a single future reference instant, so
// tracks becoming eligible together begin in the same audio frame.
func (s *Scheduler) Reconcile(tracks []*Track, position float64) {
	audible := AudibleIDs(tracks)

	wanted := make(map[string]*Track)
	for _, t := range tracks {
		if !t.Playable() {
			continue
		}
		if _, ok := audible[t.ID]; !ok {
			continue
		}
		if !t.ActiveAt(position) {
			continue
		}
		wanted[t.ID] = t
	}

	// Stop sources that are newly inaudible or past their end.
	for id, h := range s.sounding {
		if _, ok := wanted[id]; !ok {
			s.backend.Stop(h)
			delete(s.sounding, id)
			logger.Debug("source stopped", logger.String("track", id))
		}
	}

	// The shared instant is computed once per pass, lazily: reading the
	// backend clock only matters when something actually starts. The flag
	// rather than a sentinel value keeps the instant shared even on a
	// backend whose clock reads negative.
	var at float64
	atSet := false
	for id, t := range wanted {
		if _, already := s.sounding[id]; already {
			continue
		}

		bufferOffset := position - t.Offset
		if bufferOffset < 0 {
			bufferOffset = 0
		}
		// Scheduling granularity can leave a clip fully elapsed by the
		// time we get here; starting it would be a zero-length blip.
		if bufferOffset >= t.Duration {
			continue
		}

		if !atSet {
			at = s.backend.Now() + s.lookAhead
			atSet = true
		}

		h, err := s.backend.Start(t.ID, t.Samples, t.Gain, at, bufferOffset)
		if err != nil {
			// Start rejection is per-track and self-healing: the track
			// stays silent this tick and is retried on the next.
			logger.Warn("backend rejected start",
				logger.String("track", id),
				logger.ErrorField(err))
			continue
		}
		s.sounding[id] = h
		logger.Debug("source started",
			logger.String("track", id),
			logger.Float64("at", at),
			logger.Float64("bufferOffset", bufferOffset))
	}
}

// StopTrack stops and deregisters the track's source if one is sounding.
// Idempotent; callers invoke it before removing a track so no registry
// entry outlives its track.
func (s *Scheduler) StopTrack(id string) {
	h, ok := s.sounding[id]
	if !ok {
		return
	}
	s.backend.Stop(h)
	delete(s.sounding, id)
}

// StopAll stops every sounding source. Used on pause, stop, and seek.
func (s *Scheduler) StopAll() {
	for id, h := range s.sounding {
		s.backend.Stop(h)
		delete(s.sounding, id)
	}
}

// SetGain applies a live gain change to a sounding source. Volume changes
// never stop or restart a source.
func (s *Scheduler) SetGain(id string, gain float64) {
	if h, ok := s.sounding[id]; ok {
		s.backend.SetGain(h, gain)
	}
}

// HandleEnded removes the registry entry for a source that reached its
// natural end, so a later tick can restart the track if it comes back into
// range. A notification carrying a handle that no longer matches the
// registered one is stale — the track was already restarted — and ignored.
func (s *Scheduler) HandleEnded(trackID string, h SourceHandle) {
	cur, ok := s.sounding[trackID]
	if !ok || cur != h {
		return
	}
	delete(s.sounding, trackID)
	logger.Debug("source ended", logger.String("track", trackID))
}

// IsSounding reports whether the track currently has a registered source.
func (s *Scheduler) IsSounding(id string) bool {
	_, ok := s.sounding[id]
	return ok
}

// SoundingCount returns the number of registered sources.
func (s *Scheduler) SoundingCount() int {
	return len(s.sounding)
}
