package engine

import (
	"context"
	"sync"
	"time"

	"github.com/Benso1tana/MusicMasher/core/audio"
	"github.com/Benso1tana/MusicMasher/logger"
)

// Decoder turns raw imported file bytes into a PCM buffer. Decoding is the
// one suspending operation in the system; each import runs it off the
// session lock.
type Decoder interface {
	Decode(ctx context.Context, raw []byte) (*audio.Buffer, error)
}

// Session is the explicitly-owned aggregate wiring the timeline, transport
// clock, and playback scheduler to an audio backend. One mutex serializes
// every mutation, the periodic tick included, so no two reconciliation
// passes ever overlap and decode completions interleave safely with UI
// mutations.
//
// Every mutating operation ends by publishing a state snapshot to
// subscribers.
type Session struct {
	mu        sync.Mutex
	timeline  *Timeline
	transport *Transport
	sched     *Scheduler
	decoder   Decoder

	tick time.Duration
	now  func() time.Time // injectable for tests

	subs    map[int]func(Snapshot)
	nextSub int
	seq     uint64 // mutation counter stamped into every snapshot

	stopTick chan struct{} // non-nil while the ticker goroutine runs
}

// NewSession creates a session scheduling against the given backend.
func NewSession(backend Backend, dec Decoder, tickInterval, lookAhead time.Duration) *Session {
	return &Session{
		timeline:  NewTimeline(),
		transport: &Transport{},
		sched:     NewScheduler(backend, lookAhead),
		decoder:   dec,
		tick:      tickInterval,
		now:       time.Now,
		subs:      make(map[int]func(Snapshot)),
	}
}

// Subscribe registers a snapshot observer and returns an id for
// Unsubscribe. The current state is delivered immediately.
func (s *Session) Subscribe(fn func(Snapshot)) int {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	snap := s.snapshotLocked()
	s.mu.Unlock()

	fn(snap)
	return id
}

// Unsubscribe removes a snapshot observer.
func (s *Session) Unsubscribe(id int) {
	s.mu.Lock()
	delete(s.subs, id)
	s.mu.Unlock()
}

// Snapshot returns the current published state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Import decodes a file and places it on the timeline. The track appears
// immediately (not yet playable) at the end of the existing content, the
// way a clip lands when dropped without aiming; it becomes playable when
// decoding completes. On decode failure the placeholder is discarded and no
// partial state survives. Concurrent imports are independent.
func (s *Session) Import(ctx context.Context, name string, raw []byte) (string, error) {
	t := NewTrack(name)
	s.update(func() {
		t.SetOffset(s.timeline.ContentEnd())
		s.timeline.AddTrack(t)
	})

	buf, err := s.decoder.Decode(ctx, raw)
	if err != nil {
		s.update(func() {
			s.sched.StopTrack(t.ID)
			s.timeline.RemoveTrack(t.ID)
		})
		logger.Warn("import failed",
			logger.String("name", name),
			logger.ErrorField(err))
		return "", err
	}

	// Offset can move concurrently once the placeholder is visible, so it
	// is captured under the lock rather than read from the track afterwards.
	attached := false
	var offset float64
	s.update(func() {
		cur := s.timeline.Track(t.ID)
		if cur == nil {
			// Removed while decoding; a late completion mutates nothing.
			return
		}
		if err := cur.SetSamples(buf); err != nil {
			logger.Error("attach samples", logger.String("track", t.ID), logger.ErrorField(err))
			return
		}
		s.timeline.recompute()
		attached = true
		offset = cur.Offset
	})

	if attached {
		logger.Info("track imported",
			logger.String("track", t.ID),
			logger.String("name", name),
			logger.Float64("duration", buf.Duration()),
			logger.Float64("offset", offset))
	}
	return t.ID, nil
}

// SetTrackOffset repositions a clip on the timeline (clamped to >= 0).
// Returns false if the track does not exist.
func (s *Session) SetTrackOffset(id string, sec float64) bool {
	found := false
	s.update(func() {
		t := s.timeline.Track(id)
		if t == nil {
			return
		}
		found = true
		t.SetOffset(sec)
		s.timeline.recompute()
		s.reconcileIfPlayingLocked()
	})
	return found
}

// SetTrackGain sets a track's gain (clamped into [0,1]). A sounding source
// picks the change up live; gain never stops or restarts a source.
func (s *Session) SetTrackGain(id string, v float64) bool {
	found := false
	s.update(func() {
		t := s.timeline.Track(id)
		if t == nil {
			return
		}
		found = true
		t.SetGain(v)
		s.sched.SetGain(id, t.Gain)
	})
	return found
}

// ToggleMute flips a track's mute flag and, while playing, reconciles
// immediately. While paused it only affects future scheduling decisions.
func (s *Session) ToggleMute(id string) bool {
	found := false
	s.update(func() {
		t := s.timeline.Track(id)
		if t == nil {
			return
		}
		found = true
		t.ToggleMute()
		s.reconcileIfPlayingLocked()
	})
	return found
}

// ToggleSolo flips a track's solo flag; solo exclusivity across tracks is
// resolved at reconcile time, not stored.
func (s *Session) ToggleSolo(id string) bool {
	found := false
	s.update(func() {
		t := s.timeline.Track(id)
		if t == nil {
			return
		}
		found = true
		t.ToggleSolo()
		s.reconcileIfPlayingLocked()
	})
	return found
}

// RemoveTrack stops the track's source, then removes it. Never leaves a
// registry entry pointing at a removed track.
func (s *Session) RemoveTrack(id string) bool {
	found := false
	s.update(func() {
		if s.timeline.Track(id) == nil {
			return
		}
		found = true
		s.sched.StopTrack(id)
		s.timeline.RemoveTrack(id)
	})
	return found
}

// Clear stops everything and empties the timeline.
func (s *Session) Clear() {
	s.update(func() {
		s.sched.StopAll()
		s.timeline.Clear()
	})
}

// SetZoom sets the presentation scale.
func (s *Session) SetZoom(v float64) {
	s.update(func() {
		s.timeline.SetZoom(v)
	})
}

// Play starts (or resumes) the transport from the current position and
// immediately reconciles so tracks active there start sounding.
func (s *Session) Play() {
	s.update(func() {
		if s.transport.State() == StatePlaying {
			return
		}
		pos := s.timeline.Position()
		s.transport.Start(s.now(), pos)
		s.timeline.SetPlaying(true)
		s.startTickerLocked()
		s.sched.Reconcile(s.timeline.tracks, pos)
	})
}

// Pause freezes the transport at the current position and silences all
// sources. Resuming with Play continues from here.
func (s *Session) Pause() {
	s.update(func() {
		if s.transport.State() != StatePlaying {
			return
		}
		s.timeline.SetPosition(s.transport.Elapsed(s.now()))
		s.stopTickerLocked()
		s.transport.Pause()
		s.timeline.SetPlaying(false)
		s.sched.StopAll()
	})
}

// Stop halts playback and rewinds to zero.
func (s *Session) Stop() {
	s.update(func() {
		s.stopLocked()
	})
}

func (s *Session) stopLocked() {
	s.stopTickerLocked()
	s.transport.Stop()
	s.timeline.SetPlaying(false)
	s.sched.StopAll()
	s.timeline.SetPosition(0)
}

// Seek jumps to a position (clamped into the timeline). While playing this
// is pause + jump + resume: all sources stop and eligible ones restart
// phase-locked at the new position — never a live scrub.
func (s *Session) Seek(sec float64) {
	s.update(func() {
		if s.transport.State() == StatePlaying {
			s.sched.StopAll()
			pos := s.timeline.SetPosition(sec)
			s.transport.Start(s.now(), pos)
			s.sched.Reconcile(s.timeline.tracks, pos)
		} else {
			s.timeline.SetPosition(sec)
		}
	})
}

// TrackBuffer returns a track's decoded samples, or nil if the track is
// absent or not yet playable. Buffers are immutable, so sharing is safe.
func (s *Session) TrackBuffer(id string) *audio.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.timeline.Track(id)
	if t == nil {
		return nil
	}
	return t.Samples
}

// HandleEnded routes a backend completion notification to the scheduler.
func (s *Session) HandleEnded(trackID string, h SourceHandle) {
	s.mu.Lock()
	s.sched.HandleEnded(trackID, h)
	s.mu.Unlock()
}

// Close stops playback and the ticker goroutine.
func (s *Session) Close() {
	s.Stop()
}

// update runs a mutation under the lock, then publishes the resulting
// snapshot to all subscribers outside it. The sequence number advances
// under the lock, so snapshots delivered out of order are detectable.
func (s *Session) update(fn func()) {
	s.mu.Lock()
	fn()
	s.seq++
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, f := range s.subs {
		subs = append(subs, f)
	}
	s.mu.Unlock()

	for _, f := range subs {
		f(snap)
	}
}

func (s *Session) reconcileIfPlayingLocked() {
	if s.transport.State() == StatePlaying {
		s.sched.Reconcile(s.timeline.tracks, s.timeline.Position())
	}
}

func (s *Session) snapshotLocked() Snapshot {
	tracks := s.timeline.tracks
	audible := AudibleIDs(tracks)

	views := make([]TrackView, len(tracks))
	for i, t := range tracks {
		_, aud := audible[t.ID]
		views[i] = TrackView{
			ID:       t.ID,
			Name:     t.Name,
			Offset:   t.Offset,
			Duration: t.Duration,
			Gain:     t.Gain,
			Muted:    t.Muted,
			Soloed:   t.Soloed,
			Playable: t.Playable(),
			Audible:  aud,
		}
	}
	return Snapshot{
		Seq:           s.seq,
		Tracks:        views,
		Position:      s.timeline.Position(),
		TotalDuration: s.timeline.TotalDuration(),
		Zoom:          s.timeline.Zoom(),
		Playing:       s.timeline.Playing(),
	}
}

// startTickerLocked launches the periodic tick goroutine. The goroutine is
// the only periodic driver; the next tick cannot begin before the previous
// one returns.
func (s *Session) startTickerLocked() {
	if s.stopTick != nil {
		return
	}
	stop := make(chan struct{})
	s.stopTick = stop
	go s.run(stop)
}

func (s *Session) stopTickerLocked() {
	if s.stopTick != nil {
		close(s.stopTick)
		s.stopTick = nil
	}
}

func (s *Session) run(stop chan struct{}) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.onTick()
		}
	}
}

// onTick advances the transport position and reconciles. Hitting the end of
// the timeline is a full stop: sources silenced, position rewound.
func (s *Session) onTick() {
	s.update(func() {
		if s.transport.State() != StatePlaying {
			return
		}
		pos := s.transport.Elapsed(s.now())
		if pos >= s.timeline.TotalDuration() {
			s.stopLocked()
			return
		}
		s.timeline.SetPosition(pos)
		s.sched.Reconcile(s.timeline.tracks, pos)
	})
}
