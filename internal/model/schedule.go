package model

import "time"

// Interval is one concrete service period anchored to a reference date.
// After repair, Close is always after Open.
type Interval struct {
	Open  time.Time `json:"open"`
	Close time.Time `json:"close"`
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return i.Close.Sub(i.Open)
}

// ChefAppearance is a visiting chef parsed from a menu label.
type ChefAppearance struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Open        time.Time  `json:"open"`
	Close       time.Time  `json:"close"`
	Status      ChefStatus `json:"status"`
}

// DailySpecial is a menu label split into name and type.
type DailySpecial struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// LocationSchedule is the normalized view of one location on one date.
//
// It is built fresh on every normalization pass. Only Status (and the chef
// statuses) are rewritten afterwards; Intervals never change.
type LocationSchedule struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	MapsURL     string `json:"maps_url"`
	MdoID       int    `json:"mdo_id,omitempty"`

	// Date is midnight of the reference day in the facility time zone.
	Date time.Time `json:"date"`

	// Intervals is empty when the location is closed all day.
	Intervals []Interval       `json:"intervals"`
	Status    OpenStatus       `json:"status"`
	Chefs     []ChefAppearance `json:"chefs,omitempty"`
	Specials  []DailySpecial   `json:"specials,omitempty"`
}

// Clone returns a copy that shares no mutable state with s.
func (s LocationSchedule) Clone() LocationSchedule {
	out := s
	if s.Intervals != nil {
		out.Intervals = append([]Interval(nil), s.Intervals...)
	}
	if s.Chefs != nil {
		out.Chefs = append([]ChefAppearance(nil), s.Chefs...)
	}
	if s.Specials != nil {
		out.Specials = append([]DailySpecial(nil), s.Specials...)
	}
	return out
}

// FoodTruckEvent is one weekend food truck gathering.
type FoodTruckEvent struct {
	// Date is midnight of the event day in the facility time zone.
	Date   time.Time `json:"date"`
	Open   time.Time `json:"open"`
	Close  time.Time `json:"close"`
	Trucks []string  `json:"trucks"`
}
