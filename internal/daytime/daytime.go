// Package daytime resolves the daily production window of a solar
// installation: the local interval between 06:00 and 22:00, during
// which the panels can plausibly produce power.
package daytime

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimezone indicates a zone name that is not present in the
// IANA timezone database.
var ErrInvalidTimezone = errors.New("invalid timezone")

const (
	startHour = 6
	endHour   = 22
)

// Window is the daytime interval of a single calendar day. Start and
// End are absolute UTC instants; Zone is the local zone they were
// derived from.
type Window struct {
	Start time.Time
	End   time.Time
	Zone  *time.Location
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Resolve computes the daytime window for the calendar day containing
// now in the given zone. The window always refers to today's
// 06:00-22:00, even when now is before 06:00; a caller querying data
// for a window that extends into the future simply gets fewer samples.
func Resolve(now time.Time, zone *time.Location) Window {
	local := now.In(zone)
	y, m, d := local.Date()
	start := time.Date(y, m, d, startHour, 0, 0, 0, zone)
	end := time.Date(y, m, d, endHour, 0, 0, 0, zone)
	return Window{
		Start: start.UTC(),
		End:   end.UTC(),
		Zone:  zone,
	}
}

// LoadZone resolves an IANA region/city pair against the timezone
// database. Lookup failure is reported as ErrInvalidTimezone so callers
// can map it to a client error.
func LoadZone(region, city string) (*time.Location, error) {
	loc, err := time.LoadLocation(region + "/" + city)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrInvalidTimezone, region, city)
	}
	return loc, nil
}

// UntilDaytime reports how long until the next daytime window opens in
// the given zone. daytime is true when now is already within
// [06:00, 22:00) local, in which case wait is zero.
func UntilDaytime(now time.Time, zone *time.Location) (wait time.Duration, daytime bool) {
	local := now.In(zone)
	y, m, d := local.Date()
	morning := time.Date(y, m, d, startHour, 0, 0, 0, zone)
	evening := time.Date(y, m, d, endHour, 0, 0, 0, zone)

	switch {
	case local.Before(morning):
		return morning.Sub(local), false
	case local.Before(evening):
		return 0, true
	default:
		// time.Date normalizes d+1 across month and year boundaries
		nextMorning := time.Date(y, m, d+1, startHour, 0, 0, 0, zone)
		return nextMorning.Sub(local), false
	}
}
