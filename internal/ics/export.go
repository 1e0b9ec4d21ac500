package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "diningstatus/internal/log"
	"diningstatus/internal/model"
	"diningstatus/internal/schedule"
)

// ProductID identifies the generated calendars.
const ProductID = "-//diningstatus//Dining Hours//EN"

// ExportOptions configures Export.
type ExportOptions struct {
	// Name is the calendar display name.
	Name string
	// Timezone is advertised as X-WR-TIMEZONE. Times are always written in UTC.
	Timezone string
	// Chefs adds one event per visiting chef appearance.
	Chefs bool
}

// Export renders the rolling window of snap as an iCalendar feed: one event
// per service interval, plus chef appearances when requested.
func Export(snap schedule.Snapshot, opts ExportOptions) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	if opts.Timezone != "" {
		cal.SetXWRTimezone(opts.Timezone)
	}

	stamp := snap.LastRefreshed
	if stamp.IsZero() {
		stamp = time.Now()
	}

	count := 0
	for i, date := range snap.Dates {
		day := date.Format(schedule.DateLayout)
		for _, s := range snap.Day(i) {
			for n, iv := range s.Intervals {
				ev := cal.AddEvent(fmt.Sprintf("hours-%d-%s-%d@diningstatus", s.ID, day, n))
				ev.SetDtStampTime(stamp)
				ev.SetStartAt(iv.Open)
				ev.SetEndAt(iv.Close)
				ev.SetSummary(s.Name)
				ev.SetLocation(s.Name)
				if s.Summary != "" {
					ev.SetDescription(s.Summary)
				}
				if s.MapsURL != "" {
					ev.SetURL(s.MapsURL)
				}
				count++
			}
			if !opts.Chefs {
				continue
			}
			for n, c := range s.Chefs {
				ev := cal.AddEvent(fmt.Sprintf("chef-%d-%s-%d@diningstatus", s.ID, day, n))
				ev.SetDtStampTime(stamp)
				ev.SetStartAt(c.Open)
				ev.SetEndAt(c.Close)
				ev.SetSummary(chefSummary(c, s))
				ev.SetLocation(s.Name)
				if c.Description != "" {
					ev.SetDescription(c.Description)
				}
				count++
			}
		}
	}

	appLog.Debug("ics export built", "days", len(snap.Dates), "event_count", count)
	return cal.Serialize()
}

func chefSummary(c model.ChefAppearance, s model.LocationSchedule) string {
	return fmt.Sprintf("Visiting chef: %s at %s", c.Name, s.Name)
}
