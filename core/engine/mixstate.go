package engine

// AudibleIDs computes the effective audibility of every track from the
// mute/solo flags. It is pure and holds no memory of prior state; callers
// re-evaluate it on every toggle and every scheduling tick.
//
// If any track is soloed, exactly the soloed tracks are audible. A track
// that is both soloed and muted still sounds: while a solo exists, mute is
// informational only. With no solo anywhere, all non-muted tracks sound.
func AudibleIDs(tracks []*Track) map[string]struct{} {
	audible := make(map[string]struct{})

	anySolo := false
	for _, t := range tracks {
		if t.Soloed {
			anySolo = true
			break
		}
	}

	for _, t := range tracks {
		if anySolo {
			if t.Soloed {
				audible[t.ID] = struct{}{}
			}
		} else if !t.Muted {
			audible[t.ID] = struct{}{}
		}
	}
	return audible
}
