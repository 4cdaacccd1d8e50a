// Package patience implements the Patience Gate described by spec.md §4.8:
// a rate limiter for UI progress updates, plus the rate/ETA text it is
// usually paired with.
package patience

import "time"

// Interval is the nominal UI refresh period (5 Hz).
const Interval = 200 * time.Millisecond

// Gate tracks whether enough wall time has passed to justify another UI
// update. The zero value is ready to use.
type Gate struct {
	last    time.Time
	hasLast bool
}

// HaveBeenPatient reports whether the caller should push another UI update
// now. The first call always returns true. A clock regression (now before
// the last recorded time) resets the gate and returns true. Otherwise it
// returns true at most once per Interval, phase-locking to Interval
// boundaries rather than drifting.
func (g *Gate) HaveBeenPatient() bool {
	now := time.Now()
	if !g.hasLast {
		g.last = now
		g.hasLast = true
		return true
	}
	if now.Before(g.last) {
		g.last = now
		return true
	}
	diff := now.Sub(g.last)
	if diff >= 5*Interval {
		g.last = now
		return true
	}
	if diff >= Interval {
		for g.last.Before(now) {
			g.last = g.last.Add(Interval)
		}
		return true
	}
	return false
}
