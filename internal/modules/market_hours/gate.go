// Package market_hours decides whether unforced price refreshes may run.
package market_hours

import (
	"time"
)

// ReferenceTimezone is the zone the trading window is expressed in.
const ReferenceTimezone = "America/New_York"

// Trading window in minutes since local midnight, both ends inclusive.
const (
	OpenMinute  = 9*60 + 30  // 09:30
	CloseMinute = 16*60 + 15 // 16:15
)

// Status is the detailed view of the gate at a point in time.
type Status struct {
	Open         bool   `json:"open"`
	Timezone     string `json:"timezone"`
	OpensAt      string `json:"opens_at"`
	ClosesAt     string `json:"closes_at"`
	NextOpenDate string `json:"next_open_date,omitempty"`
}

// Gate is a pure weekday/time-window predicate in a fixed reference zone.
// A nil or zero Gate falls back to the reference zone.
type Gate struct {
	loc *time.Location
}

// NewGate creates a gate for US Eastern time. If the zone database is
// unavailable it falls back to a fixed UTC-5 offset.
func NewGate() *Gate {
	loc, err := time.LoadLocation(ReferenceTimezone)
	if err != nil {
		loc = time.FixedZone("EST", -5*60*60)
	}
	return &Gate{loc: loc}
}

// NewGateIn creates a gate evaluated in the given location.
func NewGateIn(loc *time.Location) *Gate {
	return &Gate{loc: loc}
}

func (g *Gate) location() *time.Location {
	if g == nil || g.loc == nil {
		return NewGate().loc
	}
	return g.loc
}

// Location returns the zone the gate evaluates in.
func (g *Gate) Location() *time.Location {
	return g.location()
}

// IsOpen reports whether now falls inside the weekday trading window.
func (g *Gate) IsOpen(now time.Time) bool {
	local := now.In(g.location())

	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}

	minute := local.Hour()*60 + local.Minute()
	return minute >= OpenMinute && minute <= CloseMinute
}

// Status returns the open flag plus the window bounds and, when closed,
// the date of the next session.
func (g *Gate) Status(now time.Time) Status {
	loc := g.location()
	status := Status{
		Open:     g.IsOpen(now),
		Timezone: loc.String(),
		OpensAt:  formatMinute(OpenMinute),
		ClosesAt: formatMinute(CloseMinute),
	}
	if !status.Open {
		status.NextOpenDate = g.nextOpen(now).Format("2006-01-02")
	}
	return status
}

// nextOpen returns the start of the next trading window after now.
func (g *Gate) nextOpen(now time.Time) time.Time {
	loc := g.location()
	local := now.In(loc)

	// Check up to 7 days ahead; a weekday is always found within that range.
	for i := 0; i <= 7; i++ {
		day := local.AddDate(0, 0, i)
		open := time.Date(day.Year(), day.Month(), day.Day(), OpenMinute/60, OpenMinute%60, 0, 0, loc)
		if open.Weekday() == time.Saturday || open.Weekday() == time.Sunday {
			continue
		}
		if open.After(local) {
			return open
		}
	}
	return local
}

func formatMinute(minute int) string {
	return time.Date(2000, 1, 1, minute/60, minute%60, 0, 0, time.UTC).Format("15:04")
}
