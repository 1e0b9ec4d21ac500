package model

// Location is a single dining location as returned by the day feed for one
// requested date. It is decoded as-is and never mutated; normalization
// produces a LocationSchedule from it.
type Location struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	MapsURL     string `json:"mapsUrl"`

	// MdoID keys the occupancy feed. Zero when the feed does not provide one.
	MdoID int `json:"mdoId,omitempty"`

	Events []Event `json:"events"`
	Menus  []Menu  `json:"menus"`
}

// Event is one scheduled opening rule for a location on the requested date.
type Event struct {
	StartTime  string           `json:"startTime"`
	EndTime    string           `json:"endTime"`
	Exceptions []HoursException `json:"exceptions,omitempty"`
}

// HoursException overrides an Event's hours for a date range. Open == false
// means the location is closed for the whole day.
type HoursException struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Open      bool   `json:"open"`
}

// Menu categories that carry parseable labels. Everything else is ignored.
const (
	CategoryVisitingChef  = "Visiting Chef"
	CategoryDailySpecials = "Daily Specials"
)

// Menu is a free-text menu entry. Visiting chefs carry a description,
// daily specials do not.
type Menu struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
}

// DayFeed is the envelope of the all-locations day feed.
type DayFeed struct {
	Locations []Location `json:"locations"`
}
