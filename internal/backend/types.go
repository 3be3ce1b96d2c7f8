package backend

import "time"

// Sample is a single power reading, in watts.
type Sample struct {
	Time  time.Time
	Value int64
}

// Peak is the maximum power observed in a window and when it occurred.
// Timestamp is unix seconds; -1 marks the absent peak, which is
// distinct from a real zero-valued one.
type Peak struct {
	Timestamp int64
	Value     int64
}

// AbsentPeak is returned when the store has no peak for the window or
// the query could not be answered.
var AbsentPeak = Peak{Timestamp: -1}

// Absent reports whether the peak carries no observation.
func (p Peak) Absent() bool {
	return p.Timestamp < 0
}

// Point is one telemetry write: instantaneous power in watts and the
// day's cumulative energy counter in watt-hours.
type Point struct {
	Time      time.Time
	Power     float64
	DayEnergy float64
}
