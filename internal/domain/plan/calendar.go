package plan

import "time"

// Day arithmetic in the engine is always done on calendar days at midnight in
// a single configured location, never on wall-clock instants.  Comparing raw
// timestamps would let a time-of-day skew flip an installment between OPEN
// and OVERDUE depending on when during the day the computation runs.

// Midnight truncates t to 00:00 of its calendar day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// Today returns the current calendar day at midnight in loc.
func Today(loc *time.Location) time.Time {
	return Midnight(time.Now(), loc)
}

// DaysBetween returns the number of whole calendar days from a to b, both
// taken at midnight in loc.  Positive when b is after a.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	am := Midnight(a, loc)
	bm := Midnight(b, loc)
	// Both ends sit on midnight boundaries of the same location, so rounding
	// to whole days absorbs DST offsets of ±1h.
	return int(bm.Sub(am).Round(24*time.Hour) / (24 * time.Hour))
}
