package schedule

import (
	"sort"
	"strings"
	"time"

	"diningstatus/internal/model"
)

// HoursLayout formats one end of a service interval.
const HoursLayout = "3:04 PM"

// ClosedLabel is shown for a day without service.
const ClosedLabel = "Closed"

// DayHours is one row of a weekly hours table.
type DayHours struct {
	Date  time.Time `json:"date"`
	Hours []string  `json:"hours"`
}

// FormatInterval renders iv as "7:00 AM - 8:00 PM".
func FormatInterval(iv model.Interval) string {
	return iv.Open.Format(HoursLayout) + " - " + iv.Close.Format(HoursLayout)
}

// WeeklyHours lists, for every day of the snapshot window, the service
// intervals of location id. Days where the location has no intervals or is
// missing from the feed read "Closed".
func WeeklyHours(snap Snapshot, id int) []DayHours {
	out := make([]DayHours, 0, len(snap.Dates))
	for i, date := range snap.Dates {
		row := DayHours{Date: date}
		if s, ok := Find(snap.Day(i), id); ok {
			for _, iv := range s.Intervals {
				row.Hours = append(row.Hours, FormatInterval(iv))
			}
		}
		if len(row.Hours) == 0 {
			row.Hours = []string{ClosedLabel}
		}
		out = append(out, row)
	}
	return out
}

// Find returns the schedule with the given location id.
func Find(day []model.LocationSchedule, id int) (model.LocationSchedule, bool) {
	for _, s := range day {
		if s.ID == id {
			return s, true
		}
	}
	return model.LocationSchedule{}, false
}

// DirectoryQuery filters and orders a directory listing.
type DirectoryQuery struct {
	// Search is matched case-insensitively against the name.
	Search string
	// OpenOnly keeps open and closing-soon locations.
	OpenOnly bool
	// OpenFirst orders open locations before the others.
	OpenFirst bool
	// Favorites are location ids listed first.
	Favorites []int
}

// Directory returns a filtered, sorted copy of day.
func Directory(day []model.LocationSchedule, q DirectoryQuery) []model.LocationSchedule {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	fav := make(map[int]bool, len(q.Favorites))
	for _, id := range q.Favorites {
		fav[id] = true
	}

	out := make([]model.LocationSchedule, 0, len(day))
	for _, s := range day {
		if search != "" && !strings.Contains(strings.ToLower(s.Name), search) {
			continue
		}
		if q.OpenOnly && !s.Status.IsOpen() {
			continue
		}
		out = append(out, s.Clone())
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if fav[a.ID] != fav[b.ID] {
			return fav[a.ID]
		}
		if q.OpenFirst && a.Status.IsOpen() != b.Status.IsOpen() {
			return a.Status.IsOpen()
		}
		return sortName(a.Name) < sortName(b.Name)
	})
	return out
}

func sortName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimPrefix(name, "the ")
}

// LocationsWithChefs keeps only the locations hosting at least one visiting
// chef.
func LocationsWithChefs(day []model.LocationSchedule) []model.LocationSchedule {
	var out []model.LocationSchedule
	for _, s := range day {
		if len(s.Chefs) > 0 {
			out = append(out, s.Clone())
		}
	}
	return out
}

// WatchlistHit is a watched chef appearing at a location.
type WatchlistHit struct {
	Chef       model.ChefAppearance `json:"chef"`
	LocationID int                  `json:"location_id"`
	Location   string               `json:"location"`
}

// WatchlistHits returns the appearances in day whose chef name matches one
// of names, ignoring case and surrounding spaces.
func WatchlistHits(day []model.LocationSchedule, names []string) []WatchlistHit {
	if len(names) == 0 {
		return nil
	}
	watched := make(map[string]bool, len(names))
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			watched[n] = true
		}
	}

	var hits []WatchlistHit
	for _, s := range day {
		for _, c := range s.Chefs {
			if watched[strings.ToLower(strings.TrimSpace(c.Name))] {
				hits = append(hits, WatchlistHit{Chef: c, LocationID: s.ID, Location: s.Name})
			}
		}
	}
	return hits
}
