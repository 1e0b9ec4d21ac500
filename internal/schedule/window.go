package schedule

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// DefaultWindowDays covers today and the six following days.
const DefaultWindowDays = 7

// WindowDates returns midnight of each day in the rolling window starting
// with today's date in loc. Days are calendar days, so a DST change yields a
// 23 or 25 hour step rather than a shifted midnight.
func WindowDates(today time.Time, days int, loc *time.Location) ([]time.Time, error) {
	if days <= 0 {
		return nil, fmt.Errorf("window: days must be positive, got %d", days)
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Count:   days,
		Dtstart: Midnight(today, loc),
	})
	if err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}
	return r.All(), nil
}
