package engine

// TrackView is a track's state as published to observers.
type TrackView struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Offset   float64 `json:"offset"`
	Duration float64 `json:"duration"`
	Gain     float64 `json:"gain"`
	Muted    bool    `json:"muted"`
	Soloed   bool    `json:"soloed"`
	Playable bool    `json:"playable"`
	Audible  bool    `json:"audible"`
}

// Snapshot is an immutable view of the whole session, published to
// subscribers after every mutation and on every tick while playing.
// At-least-once per mutation; intermediate states may be skipped by slow
// observers. Seq increases with every mutation, stamped while the session
// lock is held, so a consumer receiving two snapshots out of order can
// discard the one with the lower sequence.
type Snapshot struct {
	Seq           uint64      `json:"seq"`
	Tracks        []TrackView `json:"tracks"`
	Position      float64     `json:"position"`
	TotalDuration float64     `json:"totalDuration"`
	Zoom          float64     `json:"zoom"`
	Playing       bool        `json:"playing"`
}
