package monitor

import (
	"sort"
	"time"
)

// Reading is one observed value and the time the workflow handled it.
type Reading struct {
	Value float64
	At    time.Time
}

// ReadingLog is an append-only, time-ordered log of readings. It is never
// pruned.
type ReadingLog struct {
	readings []Reading
}

// Append adds r to the end of the log. Timestamps must not go backwards.
func (l *ReadingLog) Append(r Reading) {
	l.readings = append(l.readings, r)
}

// Len returns the number of readings in the log.
func (l *ReadingLog) Len() int {
	return len(l.readings)
}

// Latest returns the most recent reading.
func (l *ReadingLog) Latest() (Reading, bool) {
	if len(l.readings) == 0 {
		return Reading{}, false
	}
	return l.readings[len(l.readings)-1], true
}

// Snapshot returns a copy of the log.
func (l *ReadingLog) Snapshot() []Reading {
	out := make([]Reading, len(l.readings))
	copy(out, l.readings)
	return out
}

// Detect reports whether the latest reading rose by at least delta over the
// oldest reading still inside window of it. The oldest in-window reading is
// found by binary search; a log whose only in-window reading is the latest
// one never fires.
func (l *ReadingLog) Detect(delta float64, window time.Duration) (Detection, bool) {
	n := len(l.readings)
	if n < 2 {
		return Detection{}, false
	}
	latest := l.readings[n-1]
	windowStart := latest.At.Add(-window)

	i := sort.Search(n, func(i int) bool {
		return !l.readings[i].At.Before(windowStart)
	})
	if i >= n-1 {
		return Detection{}, false
	}

	candidate := l.readings[i]
	d := Detection{Candidate: candidate, Latest: latest, Delta: latest.Value - candidate.Value}
	return d, d.Delta >= delta
}

// Detection describes the readings that satisfied (or were checked against)
// the rate-of-change threshold.
type Detection struct {
	Candidate Reading
	Latest    Reading
	Delta     float64
}
