package hours

import (
	"strconv"
	"strings"
	"time"

	"diningstatus/internal/model"
)

// Clock is a wall-clock time of day parsed from an "HH:MM:SS" string.
type Clock struct {
	Hour   int
	Minute int
	Second int
}

// ParseClock splits an "HH:MM:SS" string into its components.
//
// Parsing is lenient: a component that is missing or not a number is taken
// as 0. Upstream data is known to be sloppy and a wrong-but-plausible time is
// preferred over dropping the location.
func ParseClock(s string) Clock {
	parts := strings.Split(strings.TrimSpace(s), ":")
	var c Clock
	c.Hour = atoiOrZero(parts, 0)
	c.Minute = atoiOrZero(parts, 1)
	c.Second = atoiOrZero(parts, 2)
	return c
}

func atoiOrZero(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
	if err != nil {
		return 0
	}
	return n
}

// On anchors the clock onto the calendar day of date, in date's location.
func (c Clock) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, c.Second, 0, date.Location())
}

// effectiveHours picks the start/end strings that apply to ev. The first
// exception, when present, replaces the event's own hours; a closed exception
// removes the event for the day.
func effectiveHours(ev model.Event) (start, end string, ok bool) {
	if len(ev.Exceptions) > 0 {
		ex := ev.Exceptions[0]
		if !ex.Open {
			return "", "", false
		}
		return ex.StartTime, ex.EndTime, true
	}
	return ev.StartTime, ev.EndTime, true
}

// BuildIntervals turns one location's events into raw (open, close) pairs on
// date. The result is neither sorted nor guaranteed to satisfy close > open;
// run it through Repair before classifying.
//
// An empty result means the location is closed all day.
func BuildIntervals(events []model.Event, date time.Time) []model.Interval {
	out := make([]model.Interval, 0, len(events))
	for _, ev := range events {
		start, end, ok := effectiveHours(ev)
		if !ok {
			continue
		}
		out = append(out, model.Interval{
			Open:  ParseClock(start).On(date),
			Close: ParseClock(end).On(date),
		})
	}
	return out
}
