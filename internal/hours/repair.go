package hours

import (
	"sort"
	"time"

	"diningstatus/internal/model"
)

// Day is the span added to a close time that does not come after its open
// time. A close landing exactly one Day after open marks 24-hour service.
const Day = 24 * time.Hour

// Repair returns a new slice where every interval has Close after Open and
// intervals are ordered by Open.
//
// A close at or before the open time means service runs past midnight (or
// around the clock when the two are equal), so the close moves forward one
// Day. Ordering is needed because the feed does not list a location's
// periods chronologically.
func Repair(raw []model.Interval) []model.Interval {
	out := make([]model.Interval, len(raw))
	for i, iv := range raw {
		if !iv.Close.After(iv.Open) {
			iv.Close = iv.Close.Add(Day)
		}
		out[i] = iv
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Open.Equal(out[j].Open) {
			return out[i].Close.Before(out[j].Close)
		}
		return out[i].Open.Before(out[j].Open)
	})
	return out
}

// Normalize is BuildIntervals followed by Repair.
func Normalize(events []model.Event, date time.Time) []model.Interval {
	return Repair(BuildIntervals(events, date))
}
