package source

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"diningstatus/internal/hours"
	appLog "diningstatus/internal/log"
	"diningstatus/internal/model"
)

const (
	// DefaultFoodTruckSelector scopes the scrape to the page body, away from
	// navigation and footer lists.
	DefaultFoodTruckSelector = "main"

	foodTruckUserAgent = "diningstatus/0.1"
	// Headings carry no year; a date more than this far from now belongs to
	// the neighbouring year.
	yearRollover       = 180 * 24 * time.Hour
)

var errNoPage = errors.New("no food truck page configured")

// timeRange matches "5-9 pm", "11 am - 3 pm" or "5:30 to 9 pm" once dots are
// stripped and the text is lowercased.
var timeRange = regexp.MustCompile(`(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\s*(?:-|–|—|to)\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)`)

var dateLayouts = []string{
	"Monday, January 2, 2006",
	"Monday, January 2",
	"Monday, Jan 2, 2006",
	"Monday, Jan 2",
	"Mon, Jan 2, 2006",
	"Mon, Jan 2",
	"January 2, 2006",
	"January 2",
	"Jan 2",
}

// FoodTruckOptions configures a FoodTruckScraper.
type FoodTruckOptions struct {
	URL string
	// Selector defaults to DefaultFoodTruckSelector.
	Selector string
	Timeout  time.Duration
}

// FoodTruckScraper reads the weekend food truck schedule from the events
// web page. The page is expected to list each date as a heading, followed
// by a paragraph with the hours and a list of trucks.
type FoodTruckScraper struct {
	url      string
	selector string
	timeout  time.Duration
}

// NewFoodTruckScraper creates a FoodTruckScraper.
func NewFoodTruckScraper(opts FoodTruckOptions) *FoodTruckScraper {
	if opts.Selector == "" {
		opts.Selector = DefaultFoodTruckSelector
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &FoodTruckScraper{url: opts.URL, selector: opts.Selector, timeout: opts.Timeout}
}

// pageBlock is one heading, paragraph or list item in document order.
type pageBlock struct {
	tag  string
	text string
}

// FoodTrucks scrapes the page and returns its events in date order. Dates
// are placed in now's location.
func (s *FoodTruckScraper) FoodTrucks(ctx context.Context, now time.Time) ([]model.FoodTruckEvent, error) {
	if s.url == "" {
		return nil, &FetchError{Op: "food-trucks", Err: errNoPage}
	}

	// A fresh collector per scrape keeps callbacks from piling up.
	c := colly.NewCollector(
		colly.UserAgent(foodTruckUserAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.timeout)

	var blocks []pageBlock
	c.OnHTML(s.selector, func(e *colly.HTMLElement) {
		e.ForEach("h2, h3, h4, p, li", func(_ int, el *colly.HTMLElement) {
			text := strings.Join(strings.Fields(el.Text), " ")
			if text != "" {
				blocks = append(blocks, pageBlock{tag: el.Name, text: text})
			}
		})
	})

	var status int
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(s.url); err != nil {
		if status != 0 {
			return nil, &FetchError{Op: "food-trucks", URL: s.url, StatusCode: status, Err: errUnexpectedStatus}
		}
		return nil, &FetchError{Op: "food-trucks", URL: s.url, Err: err}
	}

	events := parseFoodTrucks(blocks, now)
	appLog.Debug("food trucks scraped", "blocks", len(blocks), "events", len(events))
	return events, nil
}

// parseFoodTrucks groups blocks under their date heading. The first time
// range after a heading sets the hours and list items name the trucks.
// Dates without hours are dropped.
func parseFoodTrucks(blocks []pageBlock, now time.Time) []model.FoodTruckEvent {
	var (
		events  []model.FoodTruckEvent
		current *model.FoodTruckEvent
		hasTime bool
	)
	flush := func() {
		if current == nil {
			return
		}
		if !hasTime {
			appLog.Debug("food truck date without hours skipped", "date", current.Date.Format("2006-01-02"))
		} else {
			events = append(events, *current)
		}
		current, hasTime = nil, false
	}

	for _, b := range blocks {
		clean := strings.ToLower(strings.ReplaceAll(b.text, ".", ""))
		if strings.HasPrefix(b.tag, "h") {
			if date, ok := parseEventDate(clean, now); ok {
				flush()
				current = &model.FoodTruckEvent{Date: date, Trucks: []string{}}
			}
		}
		if current == nil {
			continue
		}
		if !hasTime {
			if iv, ok := parseTimeRange(clean, current.Date); ok {
				current.Open, current.Close = iv.Open, iv.Close
				hasTime = true
				continue
			}
		}
		if b.tag == "li" {
			current.Trucks = append(current.Trucks, b.text)
		}
	}
	flush()
	return events
}

// parseEventDate reads a heading such as "Saturday, October 11" up to any
// time range that follows it.
func parseEventDate(clean string, now time.Time) (time.Time, bool) {
	if loc := timeRange.FindStringIndex(clean); loc != nil {
		clean = clean[:loc[0]]
	}
	clean = strings.TrimRight(strings.TrimSpace(clean), " |:-–—")

	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, clean, now.Location())
		if err != nil {
			continue
		}
		if !strings.Contains(layout, "2006") {
			t = t.AddDate(now.Year()-t.Year(), 0, 0)
			switch {
			case now.Sub(t) > yearRollover:
				t = t.AddDate(1, 0, 0)
			case t.Sub(now) > yearRollover:
				t = t.AddDate(-1, 0, 0)
			}
		}
		return t, true
	}
	return time.Time{}, false
}

// parseTimeRange reads "5-9 pm" style hours on date. A start without its own
// marker shares the end's, unless that would put it after the end.
func parseTimeRange(clean string, date time.Time) (model.Interval, bool) {
	m := timeRange.FindStringSubmatch(clean)
	if m == nil {
		return model.Interval{}, false
	}
	startHour, _ := strconv.Atoi(m[1])
	startMin, _ := strconv.Atoi(m[2])
	endHour, _ := strconv.Atoi(m[4])
	endMin, _ := strconv.Atoi(m[5])
	if startHour < 1 || startHour > 12 || endHour < 1 || endHour > 12 || startMin > 59 || endMin > 59 {
		return model.Interval{}, false
	}

	startMeridiem := m[3]
	if startMeridiem == "" {
		startMeridiem = m[6]
		if startHour%12 > endHour%12 {
			startMeridiem = "am"
		}
	}

	iv := model.Interval{
		Open:  hours.Clock{Hour: to24(startHour, startMeridiem), Minute: startMin}.On(date),
		Close: hours.Clock{Hour: to24(endHour, m[6]), Minute: endMin}.On(date),
	}
	return hours.Repair([]model.Interval{iv})[0], true
}

func to24(hour int, meridiem string) int {
	hour %= 12
	if meridiem == "pm" {
		hour += 12
	}
	return hour
}
