package timeline

// Resolve returns the entry visible at absolute time t, its successor,
// and the normalized progress within the entry's cycle.
//
// Pure and side-effect free: export calls it per output frame at
// frameIndex/frameRate, live playback per display tick, and both may call
// it at arbitrary non-monotonic times. Past the final entry's end
// (rounding edge) it clamps to the last entry with progress 1.0.
func (tl *Timeline) Resolve(t float64) (current *Entry, next *Entry, progress float64) {
	if len(tl.Entries) == 0 {
		return nil, nil, 0
	}

	for i := range tl.Entries {
		e := &tl.Entries[i]
		if t < e.Start || t >= e.End() {
			continue
		}
		if i+1 < len(tl.Entries) {
			next = &tl.Entries[i+1]
		}
		if total := e.Total(); total > 0 {
			progress = (t - e.Start) / total
		}
		return e, next, progress
	}

	if t < 0 {
		e := &tl.Entries[0]
		if len(tl.Entries) > 1 {
			next = &tl.Entries[1]
		}
		return e, next, 0
	}

	return &tl.Entries[len(tl.Entries)-1], nil, 1.0
}
