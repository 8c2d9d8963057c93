package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Benso1tana/MusicMasher/core/audio"
)

// fakeBackend records every command the scheduler issues. Handles are plain
// ints so stale-handle comparisons behave like real opaque handles.
type fakeBackend struct {
	now         float64
	seq         int
	cmds        []backendCmd
	rejectStart bool
}

type backendCmd struct {
	op      string // start, stop, gain
	trackID string
	gain    float64
	at      float64
	offset  float64
	handle  SourceHandle
}

func (b *fakeBackend) Now() float64 { return b.now }

func (b *fakeBackend) Start(trackID string, buf *audio.Buffer, gain, at, offset float64) (SourceHandle, error) {
	if b.rejectStart {
		return nil, errors.New("output suspended")
	}
	b.seq++
	h := b.seq
	b.cmds = append(b.cmds, backendCmd{op: "start", trackID: trackID, gain: gain, at: at, offset: offset, handle: h})
	return h, nil
}

func (b *fakeBackend) Stop(h SourceHandle) {
	b.cmds = append(b.cmds, backendCmd{op: "stop", handle: h})
}

func (b *fakeBackend) SetGain(h SourceHandle, gain float64) {
	b.cmds = append(b.cmds, backendCmd{op: "gain", gain: gain, handle: h})
}

func (b *fakeBackend) ofOp(op string) []backendCmd {
	var out []backendCmd
	for _, c := range b.cmds {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (b *fakeBackend) reset() { b.cmds = nil }

// bufferSeconds builds a mono buffer of the given duration at 1 kHz.
func bufferSeconds(sec float64) *audio.Buffer {
	return &audio.Buffer{
		Samples:    make([]int16, int(sec*1000)),
		Channels:   1,
		SampleRate: 1000,
	}
}

func playableTrack(t *testing.T, name string, offset, duration float64) *Track {
	t.Helper()
	tr := NewTrack(name)
	if err := tr.SetSamples(bufferSeconds(duration)); err != nil {
		t.Fatalf("SetSamples: %v", err)
	}
	tr.SetOffset(offset)
	return tr
}

func TestReconcileStartsActiveAudibleTracks(t *testing.T) {
	backend := &fakeBackend{now: 100}
	s := NewScheduler(backend, 50*time.Millisecond)

	a := playableTrack(t, "a", 4, 10)  // active at 10, bufferOffset 6
	b := playableTrack(t, "b", 12, 10) // not yet reached at 10

	s.Reconcile([]*Track{a, b}, 10)

	starts := backend.ofOp("start")
	if len(starts) != 1 {
		t.Fatalf("expected 1 start, got %d", len(starts))
	}
	if starts[0].trackID != a.ID {
		t.Errorf("started wrong track: %s", starts[0].trackID)
	}
	if starts[0].offset != 6 {
		t.Errorf("bufferOffset = %v, want 6", starts[0].offset)
	}
	if got, want := starts[0].at, 100.05; math.Abs(got-want) > 1e-9 {
		t.Errorf("start instant = %v, want %v", got, want)
	}
	if s.IsSounding(b.ID) {
		t.Error("track b should not be sounding")
	}
}

func TestReconcileSharedStartInstant(t *testing.T) {
	backend := &fakeBackend{now: 7}
	s := NewScheduler(backend, 50*time.Millisecond)

	a := playableTrack(t, "a", 0, 5)
	b := playableTrack(t, "b", 3, 5)

	s.Reconcile([]*Track{a, b}, 4)

	starts := backend.ofOp("start")
	if len(starts) != 2 {
		t.Fatalf("expected 2 starts, got %d", len(starts))
	}
	if starts[0].at != starts[1].at {
		t.Errorf("starts not phase-locked: %v vs %v", starts[0].at, starts[1].at)
	}
}

func TestReconcileSharedInstantOnNegativeClock(t *testing.T) {
	backend := &fakeBackend{now: -100}
	s := NewScheduler(backend, 50*time.Millisecond)

	a := playableTrack(t, "a", 0, 5)
	b := playableTrack(t, "b", 3, 5)

	s.Reconcile([]*Track{a, b}, 4)

	starts := backend.ofOp("start")
	if len(starts) != 2 {
		t.Fatalf("expected 2 starts, got %d", len(starts))
	}
	if starts[0].at != starts[1].at {
		t.Errorf("starts not phase-locked on a negative clock: %v vs %v", starts[0].at, starts[1].at)
	}
	if got, want := starts[0].at, -99.95; math.Abs(got-want) > 1e-9 {
		t.Errorf("start instant = %v, want %v", got, want)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	backend := &fakeBackend{}
	s := NewScheduler(backend, 50*time.Millisecond)

	tracks := []*Track{
		playableTrack(t, "a", 0, 10),
		playableTrack(t, "b", 2, 10),
	}

	s.Reconcile(tracks, 5)
	issued := len(backend.cmds)

	s.Reconcile(tracks, 5)
	if len(backend.cmds) != issued {
		t.Errorf("second reconcile issued %d extra commands", len(backend.cmds)-issued)
	}
}

func TestReconcileNeverRestartsSoundingTrack(t *testing.T) {
	backend := &fakeBackend{}
	s := NewScheduler(backend, 50*time.Millisecond)

	a := playableTrack(t, "a", 0, 60)
	tracks := []*Track{a}

	for pos := 0.0; pos < 10; pos += 0.05 {
		s.Reconcile(tracks, pos)
	}

	if got := len(backend.ofOp("start")); got != 1 {
		t.Errorf("track started %d times, want 1", got)
	}
}

func TestReconcileStopsInaudibleAndPastEnd(t *testing.T) {
	backend := &fakeBackend{}
	s := NewScheduler(backend, 50*time.Millisecond)

	a := playableTrack(t, "a", 0, 5)
	b := playableTrack(t, "b", 0, 60)
	tracks := []*Track{a, b}

	s.Reconcile(tracks, 1)
	if !s.IsSounding(a.ID) || !s.IsSounding(b.ID) {
		t.Fatal("both tracks should be sounding")
	}

	// a ends at 5; b gets muted.
	b.ToggleMute()
	s.Reconcile(tracks, 6)

	if s.IsSounding(a.ID) {
		t.Error("track past its end still sounding")
	}
	if s.IsSounding(b.ID) {
		t.Error("muted track still sounding")
	}
	if got := len(backend.ofOp("stop")); got != 2 {
		t.Errorf("expected 2 stops, got %d", got)
	}
}

func TestReconcileSkipsFullyElapsedClip(t *testing.T) {
	backend := &fakeBackend{}
	s := NewScheduler(backend, 50*time.Millisecond)

	// Active interval is half-open, so position == EndTime is simply not
	// active; this exercises the guard for offsets that land exactly on
	// the duration through scheduling granularity.
	a := playableTrack(t, "a", 0, 5)
	s.Reconcile([]*Track{a}, 4.999999)
	if len(backend.ofOp("start")) != 1 {
		t.Fatal("expected a start just before the end")
	}

	backend.reset()
	s2 := NewScheduler(backend, 50*time.Millisecond)
	s2.Reconcile([]*Track{a}, 5)
	if len(backend.ofOp("start")) != 0 {
		t.Error("started a clip at its end instant")
	}
}

func TestReconcileSkipsUndecodedTrack(t *testing.T) {
	backend := &fakeBackend{}
	s := NewScheduler(backend, 50*time.Millisecond)

	pending := NewTrack("still decoding")
	s.Reconcile([]*Track{pending}, 0)

	if len(backend.cmds) != 0 {
		t.Errorf("issued %d commands for an undecoded track", len(backend.cmds))
	}
}

func TestStartRejectedRetriesNextTick(t *testing.T) {
	backend := &fakeBackend{rejectStart: true}
	s := NewScheduler(backend, 50*time.Millisecond)

	a := playableTrack(t, "a", 0, 10)
	tracks := []*Track{a}

	s.Reconcile(tracks, 1)
	if s.IsSounding(a.ID) {
		t.Fatal("rejected start must not register a source")
	}

	backend.rejectStart = false
	s.Reconcile(tracks, 1.05)
	if !s.IsSounding(a.ID) {
		t.Error("track not retried after rejection cleared")
	}
}

func TestHandleEndedRemovesOnlyCurrentHandle(t *testing.T) {
	backend := &fakeBackend{}
	s := NewScheduler(backend, 50*time.Millisecond)

	a := playableTrack(t, "a", 0, 10)
	s.Reconcile([]*Track{a}, 1)

	stale := SourceHandle(-1)
	s.HandleEnded(a.ID, stale)
	if !s.IsSounding(a.ID) {
		t.Fatal("stale ended notification removed a live source")
	}

	current := backend.ofOp("start")[0].handle
	s.HandleEnded(a.ID, current)
	if s.IsSounding(a.ID) {
		t.Error("current ended notification did not deregister")
	}

	// After the natural end, a later reconcile may start it again.
	s.Reconcile([]*Track{a}, 2)
	if !s.IsSounding(a.ID) {
		t.Error("track not restartable after natural end")
	}
}

func TestStopTrackAndStopAll(t *testing.T) {
	backend := &fakeBackend{}
	s := NewScheduler(backend, 50*time.Millisecond)

	a := playableTrack(t, "a", 0, 10)
	b := playableTrack(t, "b", 0, 10)
	s.Reconcile([]*Track{a, b}, 1)

	s.StopTrack(a.ID)
	if s.IsSounding(a.ID) {
		t.Error("StopTrack left the source registered")
	}
	s.StopTrack(a.ID) // idempotent

	s.StopAll()
	if s.SoundingCount() != 0 {
		t.Errorf("StopAll left %d sources", s.SoundingCount())
	}
	if got := len(backend.ofOp("stop")); got != 2 {
		t.Errorf("expected 2 stop commands, got %d", got)
	}
}

func TestSetGainOnlyTouchesSoundingSources(t *testing.T) {
	backend := &fakeBackend{}
	s := NewScheduler(backend, 50*time.Millisecond)

	a := playableTrack(t, "a", 0, 10)
	s.Reconcile([]*Track{a}, 1)

	s.SetGain(a.ID, 0.25)
	s.SetGain("no-such-track", 0.5)

	gains := backend.ofOp("gain")
	if len(gains) != 1 {
		t.Fatalf("expected 1 gain command, got %d", len(gains))
	}
	if gains[0].gain != 0.25 {
		t.Errorf("gain = %v, want 0.25", gains[0].gain)
	}
	if len(backend.ofOp("stop")) != 0 || len(backend.ofOp("start")) != 1 {
		t.Error("gain change stopped or restarted a source")
	}
}
