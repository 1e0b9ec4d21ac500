package schedule

import (
	"time"

	"diningstatus/internal/hours"
	appLog "diningstatus/internal/log"
	"diningstatus/internal/menu"
	"diningstatus/internal/model"
)

// Midnight returns the start of t's calendar day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// NormalizeDay turns one day's raw location records into schedules anchored
// on date, with statuses classified at now.
//
// date's location is the facility time zone. A malformed visiting chef label
// stops menu parsing for that location only; the location itself is kept.
func NormalizeDay(locations []model.Location, date, now time.Time) []model.LocationSchedule {
	date = Midnight(date, date.Location())
	out := make([]model.LocationSchedule, 0, len(locations))

	for _, loc := range locations {
		intervals := hours.Normalize(loc.Events, date)

		menus, err := menu.Parse(loc.Menus, date, now)
		if err != nil {
			appLog.Warn("menu parsing stopped early",
				"location_id", loc.ID,
				"location", loc.Name,
				"err", err.Error(),
			)
		}

		out = append(out, model.LocationSchedule{
			ID:          loc.ID,
			Name:        loc.Name,
			Summary:     loc.Summary,
			Description: loc.Description,
			MapsURL:     loc.MapsURL,
			MdoID:       loc.MdoID,
			Date:        date,
			Intervals:   intervals,
			Status:      hours.Classify(now, intervals),
			Chefs:       menus.Chefs,
			Specials:    menus.Specials,
		})
	}
	return out
}

// RecomputeStatuses reclassifies every schedule at now in place. Intervals
// and chef windows are reused as-is; nothing is fetched or parsed. Calling it
// twice with the same now yields the same result.
func RecomputeStatuses(schedules []model.LocationSchedule, now time.Time) {
	for i := range schedules {
		schedules[i].Status = hours.Classify(now, schedules[i].Intervals)
		schedules[i].Chefs = menu.RecomputeChefs(schedules[i].Chefs, now)
	}
}
