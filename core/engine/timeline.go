package engine

// Timeline bounds.
const (
	// MinTotalDuration floors the timeline length so an empty or short
	// project still shows a usable ruler.
	MinTotalDuration = 60.0

	MinZoom     = 10.0  // pixels per second
	MaxZoom     = 200.0 // pixels per second
	DefaultZoom = 50.0
)

// Timeline is the aggregate owning the ordered track collection, the
// transport position, and the derived total duration. It has no lock of its
// own: the Session serializes every mutation.
type Timeline struct {
	tracks []*Track // insertion order = display order
	byID   map[string]*Track

	position float64
	total    float64
	zoom     float64
	playing  bool
}

// NewTimeline creates an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{
		byID:  make(map[string]*Track),
		total: MinTotalDuration,
		zoom:  DefaultZoom,
	}
}

// AddTrack appends a track and recomputes the total duration. A track whose
// id is already present is ignored.
func (tl *Timeline) AddTrack(t *Track) {
	if t == nil {
		return
	}
	if _, exists := tl.byID[t.ID]; exists {
		return
	}
	tl.tracks = append(tl.tracks, t)
	tl.byID[t.ID] = t
	tl.recompute()
}

// RemoveTrack removes the track with the given id and returns it, or nil if
// absent. The caller must stop any sounding source first.
func (tl *Timeline) RemoveTrack(id string) *Track {
	t, ok := tl.byID[id]
	if !ok {
		return nil
	}
	delete(tl.byID, id)
	for i, cur := range tl.tracks {
		if cur.ID == id {
			tl.tracks = append(tl.tracks[:i], tl.tracks[i+1:]...)
			break
		}
	}
	tl.recompute()
	return t
}

// Track returns the track with the given id, or nil.
func (tl *Timeline) Track(id string) *Track {
	return tl.byID[id]
}

// Tracks returns the tracks in display order. The slice is a copy; the
// tracks are not.
func (tl *Timeline) Tracks() []*Track {
	out := make([]*Track, len(tl.tracks))
	copy(out, tl.tracks)
	return out
}

// Len returns the number of tracks.
func (tl *Timeline) Len() int {
	return len(tl.tracks)
}

// Clear removes every track.
func (tl *Timeline) Clear() {
	tl.tracks = nil
	tl.byID = make(map[string]*Track)
	tl.recompute()
}

// ActiveAt returns the tracks whose half-open [Offset, EndTime) interval
// contains the given position, in display order.
func (tl *Timeline) ActiveAt(position float64) []*Track {
	var out []*Track
	for _, t := range tl.tracks {
		if t.ActiveAt(position) {
			out = append(out, t)
		}
	}
	return out
}

// ContentEnd returns the largest track end time with no floor applied.
// Newly imported tracks default to this position, so imports append.
func (tl *Timeline) ContentEnd() float64 {
	var end float64
	for _, t := range tl.tracks {
		if e := t.EndTime(); e > end {
			end = e
		}
	}
	return end
}

// TotalDuration returns the floored timeline length.
func (tl *Timeline) TotalDuration() float64 {
	return tl.total
}

// SetPosition moves the transport position, clamped into [0, TotalDuration].
// Returns the clamped value.
func (tl *Timeline) SetPosition(sec float64) float64 {
	if sec < 0 {
		sec = 0
	} else if sec > tl.total {
		sec = tl.total
	}
	tl.position = sec
	return sec
}

// Position returns the current transport position.
func (tl *Timeline) Position() float64 {
	return tl.position
}

// SetZoom sets the display scale in pixels per second, clamped into
// [MinZoom, MaxZoom]. Presentation-only; the scheduler never reads it.
func (tl *Timeline) SetZoom(v float64) float64 {
	if v < MinZoom {
		v = MinZoom
	} else if v > MaxZoom {
		v = MaxZoom
	}
	tl.zoom = v
	return v
}

// Zoom returns the display scale.
func (tl *Timeline) Zoom() float64 {
	return tl.zoom
}

// SetPlaying records the transport state flag.
func (tl *Timeline) SetPlaying(v bool) {
	tl.playing = v
}

// Playing reports the transport state flag.
func (tl *Timeline) Playing() bool {
	return tl.playing
}

// recompute refreshes the derived total duration and keeps the position
// inside the shrunken or grown range.
func (tl *Timeline) recompute() {
	total := tl.ContentEnd()
	if total < MinTotalDuration {
		total = MinTotalDuration
	}
	tl.total = total
	if tl.position > tl.total {
		tl.position = tl.total
	}
}
