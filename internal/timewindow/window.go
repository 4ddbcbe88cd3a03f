package timewindow

import (
	"fmt"
	"time"

	"github.com/salesboard/backend/internal/types"
)

// Kind selects how a window is anchored around the reference instant.
type Kind string

const (
	KindToday        Kind = "today"
	KindWeeklyFriday Kind = "weekly-friday"
	KindLastNDays    Kind = "last-n-days"
)

// Resolver computes UTC window boundaries from civil time in a fixed
// timezone. The timezone offset is derived per call via the location
// database, so windows on either side of a DST transition get the
// correct offset for their own civil date.
type Resolver struct {
	loc *time.Location
}

// NewResolver creates a Resolver anchored to the named timezone
func NewResolver(tzName string) (*Resolver, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tzName, err)
	}
	return &Resolver{loc: loc}, nil
}

// Location returns the anchor timezone.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Resolve returns the UTC window for the given kind. days is only
// consulted for KindLastNDays; values <= 0 are treated as 1.
func (r *Resolver) Resolve(kind Kind, now time.Time, days int) (types.Window, error) {
	switch kind {
	case KindToday:
		return r.Today(now), nil
	case KindWeeklyFriday:
		return r.WeeklyFriday(now), nil
	case KindLastNDays:
		return r.LastNDays(now, days), nil
	default:
		return types.Window{}, fmt.Errorf("unknown window kind %q", kind)
	}
}

// Today returns civil midnight of the anchor timezone through the
// reference instant, same civil day.
func (r *Resolver) Today(now time.Time) types.Window {
	local := now.In(r.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, r.loc)
	return types.Window{StartUTC: start.UTC(), EndUTC: now.UTC()}
}

// WeeklyFriday returns the most recent Friday 00:00:00 civil time
// through the following Friday 00:00:00 minus one second, covering
// Friday through Thursday. A Friday reference instant anchors to the
// same day's midnight.
func (r *Resolver) WeeklyFriday(now time.Time) types.Window {
	local := now.In(r.loc)
	back := (int(local.Weekday()) - int(time.Friday) + 7) % 7
	start := time.Date(local.Year(), local.Month(), local.Day()-back, 0, 0, 0, 0, r.loc)
	end := time.Date(local.Year(), local.Month(), local.Day()-back+7, 0, 0, 0, 0, r.loc).Add(-time.Second)
	return types.Window{StartUTC: start.UTC(), EndUTC: end.UTC()}
}

// LastNDays returns a trailing range at calendar-date granularity:
// civil midnight n days before the reference date through the
// reference instant. n <= 0 is treated as 1.
func (r *Resolver) LastNDays(now time.Time, n int) types.Window {
	if n <= 0 {
		n = 1
	}
	local := now.In(r.loc)
	start := time.Date(local.Year(), local.Month(), local.Day()-n, 0, 0, 0, 0, r.loc)
	return types.Window{StartUTC: start.UTC(), EndUTC: now.UTC()}
}
