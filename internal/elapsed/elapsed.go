// Package elapsed tracks the moments the elapsed-time display can count from.
package elapsed

import (
	"time"

	"tools.zach/dev/idecord/internal/prefs"
)

// Anchors holds the three candidate start moments. Values are replaced, never
// mutated: every transition returns a new Anchors.
type Anchors struct {
	// OnStartup is fixed when the daemon starts.
	OnStartup time.Time
	// OnScopeEntry moves when the user enters a different scope.
	OnScopeEntry time.Time
	// OnResourceEntry moves on every activated resource.
	OnResourceEntry time.Time
}

// New returns anchors with all three moments at now.
func New(now time.Time) Anchors {
	return Anchors{OnStartup: now, OnScopeEntry: now, OnResourceEntry: now}
}

// WithNewSelection returns the anchors after a resource is activated at now.
// The scope anchor only moves when enteredNewScope is true. An anchor never
// moves backwards, so a clock stepping back keeps the previous value.
func (a Anchors) WithNewSelection(now time.Time, enteredNewScope bool) Anchors {
	a.OnResourceEntry = latest(a.OnResourceEntry, now)
	if enteredNewScope {
		a.OnScopeEntry = latest(a.OnScopeEntry, now)
	}
	return a
}

// Select returns the anchor matching the reset moment.
func (a Anchors) Select(m prefs.ResetMoment) time.Time {
	switch m {
	case prefs.ResetOnNewResource:
		return a.OnResourceEntry
	case prefs.ResetOnNewScope:
		return a.OnScopeEntry
	default:
		return a.OnStartup
	}
}

func latest(prev, now time.Time) time.Time {
	if now.Before(prev) {
		return prev
	}
	return now
}
