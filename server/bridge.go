package server

import (
	"sync/atomic"
	"time"

	"github.com/Benso1tana/MusicMasher/core/audio"
	"github.com/Benso1tana/MusicMasher/core/engine"
)

// Publisher is the slice of the hub the bridge needs.
type Publisher interface {
	BroadcastMessage(msgType MessageType, data interface{}) error
}

// AudioCommand is a backend command relayed to browser clients, which own
// the actual output stage (an AudioContext per client). Every command
// carries the engine clock so clients can keep their context clock mapped
// onto it; `at` is on that same engine clock.
type AudioCommand struct {
	Op       string  `json:"op"` // start, stop, gain
	SourceID uint64  `json:"sourceId"`
	TrackID  string  `json:"trackId,omitempty"`
	Gain     float64 `json:"gain,omitempty"`
	At       float64 `json:"at,omitempty"`     // engine-clock start instant
	Offset   float64 `json:"offset,omitempty"` // seconds into the clip
	Now      float64 `json:"now"`              // engine clock at send time
}

// EndedData is the client's natural end-of-source report.
type EndedData struct {
	TrackID  string `json:"trackId"`
	SourceID uint64 `json:"sourceId"`
}

// sourceRef is the bridge's comparable source handle.
type sourceRef struct {
	id      uint64
	trackID string
}

// WebAudioBridge implements engine.Backend by translating start/stop/gain
// into broadcast commands for the browser. Track sample data is not sent
// inline: clients fetch each track's decoded audio over HTTP once and key
// commands by track id. Start cannot be locally rejected — client-side
// failures surface as missing `ended` reports and self-heal through the
// registry.
type WebAudioBridge struct {
	pub   Publisher
	epoch time.Time
	seq   atomic.Uint64
}

// NewWebAudioBridge creates a bridge publishing through pub.
func NewWebAudioBridge(pub Publisher) *WebAudioBridge {
	return &WebAudioBridge{
		pub:   pub,
		epoch: time.Now(),
	}
}

// Now returns the engine clock: monotonic seconds since the bridge was
// created.
func (b *WebAudioBridge) Now() float64 {
	return time.Since(b.epoch).Seconds()
}

// Start schedules a source on every connected client.
func (b *WebAudioBridge) Start(trackID string, buf *audio.Buffer, gain, at, offset float64) (engine.SourceHandle, error) {
	id := b.seq.Add(1)
	b.pub.BroadcastMessage(MsgTypeAudio, &AudioCommand{
		Op:       "start",
		SourceID: id,
		TrackID:  trackID,
		Gain:     gain,
		At:       at,
		Offset:   offset,
		Now:      b.Now(),
	})
	return sourceRef{id: id, trackID: trackID}, nil
}

// Stop silences a source. Clients treat stop of an already-ended source as
// a no-op.
func (b *WebAudioBridge) Stop(h engine.SourceHandle) {
	ref, ok := h.(sourceRef)
	if !ok {
		return
	}
	b.pub.BroadcastMessage(MsgTypeAudio, &AudioCommand{
		Op:       "stop",
		SourceID: ref.id,
		TrackID:  ref.trackID,
		Now:      b.Now(),
	})
}

// SetGain adjusts a sounding source's gain live.
func (b *WebAudioBridge) SetGain(h engine.SourceHandle, gain float64) {
	ref, ok := h.(sourceRef)
	if !ok {
		return
	}
	b.pub.BroadcastMessage(MsgTypeAudio, &AudioCommand{
		Op:       "gain",
		SourceID: ref.id,
		TrackID:  ref.trackID,
		Gain:     gain,
		Now:      b.Now(),
	})
}
