package hours

import (
	"time"

	"diningstatus/internal/model"
)

// Lookahead is how far ahead of an opening or closing the status switches to
// openingSoon / closingSoon.
const Lookahead = 30 * time.Minute

// Classify returns the status of a location at now given its repaired
// intervals, using the default Lookahead.
func Classify(now time.Time, intervals []model.Interval) model.OpenStatus {
	return ClassifyWithin(now, intervals, Lookahead)
}

// ClassifyWithin scans intervals earliest first and returns the first verdict
// that is not closed. A gap between two periods must not hide a later
// period's openingSoon, so a closed verdict never stops the scan.
func ClassifyWithin(now time.Time, intervals []model.Interval, lookahead time.Duration) model.OpenStatus {
	for _, iv := range intervals {
		if st := classifyOne(now, iv, lookahead); st != model.StatusClosed {
			return st
		}
	}
	return model.StatusClosed
}

func classifyOne(now time.Time, iv model.Interval, lookahead time.Duration) model.OpenStatus {
	if !now.Before(iv.Open) && !now.After(iv.Close) {
		// Around-the-clock service never reports closingSoon at its
		// nominal reset hour.
		if iv.Close.Sub(iv.Open) == Day {
			return model.StatusOpen
		}
		if iv.Close.Sub(now) < lookahead {
			return model.StatusClosingSoon
		}
		return model.StatusOpen
	}
	if !iv.Open.After(now.Add(lookahead)) && iv.Close.After(now) {
		return model.StatusOpeningSoon
	}
	return model.StatusClosed
}
