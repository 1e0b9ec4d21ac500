package menu

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"diningstatus/internal/hours"
	"diningstatus/internal/model"
)

// ErrMalformedChef is returned when a visiting chef label does not follow the
// "<Name> (<start>-<end>)" notation.
var ErrMalformedChef = errors.New("malformed visiting chef label")

const (
	amMarker = "a.m"
	pmOffset = 12
	maxHour  = 23
)

// splitLabel splits "<name> (<rest>)" on the first "(" and drops the trailing
// ")". ok is false when there is no "(".
func splitLabel(label string) (name, rest string, ok bool) {
	before, after, found := strings.Cut(label, "(")
	if !found {
		return strings.TrimSpace(label), "", false
	}
	return strings.TrimSpace(before), strings.TrimSuffix(strings.TrimSpace(after), ")"), true
}

// digits keeps only the ASCII digits of s and parses them.
func digits(s string) (int, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

// afternoon moves a 1-11 o'clock hour past noon. 12 is already noon.
func afternoon(hour int) int {
	if hour < pmOffset {
		return hour + pmOffset
	}
	return hour
}

// ChefWindow parses a visiting chef label into the chef's name and the open
// and close hours on date.
//
// Hours are whole hours only. A start without an "a.m." marker is taken as
// p.m., and the end is always p.m.: observed appearances never end before
// noon. 12 is noon. "Example Chef (4-7p.m.)" yields 16:00-19:00,
// "Example Chef (11a.m.-2p.m.)" yields 11:00-14:00 and
// "Example Chef (12-3p.m.)" yields 12:00-15:00. Hours that do not land
// on the clock, such as the 430 read from "4:30", are malformed.
func ChefWindow(label string, date time.Time) (name string, window model.Interval, err error) {
	name, rest, ok := splitLabel(label)
	if !ok {
		return "", model.Interval{}, fmt.Errorf("%w: %q has no time range", ErrMalformedChef, label)
	}

	startTok, endTok, found := strings.Cut(rest, "-")
	if !found {
		return "", model.Interval{}, fmt.Errorf("%w: %q has no end time", ErrMalformedChef, label)
	}

	startHour, ok := digits(startTok)
	if !ok {
		return "", model.Interval{}, fmt.Errorf("%w: %q has no start hour", ErrMalformedChef, label)
	}
	if !strings.Contains(startTok, amMarker) {
		startHour = afternoon(startHour)
	}

	endHour, ok := digits(endTok)
	if !ok {
		return "", model.Interval{}, fmt.Errorf("%w: %q has no end hour", ErrMalformedChef, label)
	}
	endHour = afternoon(endHour)

	if startHour > maxHour || endHour > maxHour {
		return "", model.Interval{}, fmt.Errorf("%w: %q has an hour outside the day", ErrMalformedChef, label)
	}

	window = hours.Repair([]model.Interval{{
		Open:  hours.Clock{Hour: startHour}.On(date),
		Close: hours.Clock{Hour: endHour}.On(date),
	}})[0]
	if !window.Close.After(window.Open) {
		return "", model.Interval{}, fmt.Errorf("%w: %q does not end after it starts", ErrMalformedChef, label)
	}
	return name, window, nil
}

// ChefStatusFor maps the classifier's verdict for window at now onto the
// chef-specific states.
func ChefStatusFor(now time.Time, window model.Interval) model.ChefStatus {
	switch hours.Classify(now, []model.Interval{window}) {
	case model.StatusOpen:
		return model.ChefHereNow
	case model.StatusClosingSoon:
		return model.ChefLeavingSoon
	case model.StatusOpeningSoon:
		return model.ChefArrivingSoon
	default:
		if now.Before(window.Open) {
			return model.ChefArrivingLater
		}
		return model.ChefGone
	}
}

// ParseChef parses one visiting chef menu entry for date and classifies it
// at now.
func ParseChef(entry model.Menu, date, now time.Time) (model.ChefAppearance, error) {
	name, window, err := ChefWindow(entry.Name, date)
	if err != nil {
		return model.ChefAppearance{}, err
	}
	return model.ChefAppearance{
		Name:        name,
		Description: entry.Description,
		Open:        window.Open,
		Close:       window.Close,
		Status:      ChefStatusFor(now, window),
	}, nil
}
