package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	appLog "diningstatus/internal/log"
	"diningstatus/internal/model"
)

// FetchError is the typed failure surfaced for any transport, status or
// decoding problem with an upstream feed.
type FetchError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

var (
	errUnexpectedStatus = errors.New("unexpected status")
	errNoOccupancy      = errors.New("no occupancy data")
)

// Options configures a Client.
type Options struct {
	BaseURL      string
	OccupancyURL string
	Timeout      time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client talks to the dining feeds. It keeps no state between calls.
type Client struct {
	http         *http.Client
	baseURL      string
	occupancyURL string
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		http:         hc,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		occupancyURL: opts.OccupancyURL,
	}
}

// DiningDay fetches every location's records for date (YYYY-MM-DD).
// *Client implements schedule.DataSource.
func (c *Client) DiningDay(ctx context.Context, date string) ([]model.Location, error) {
	u := c.baseURL + "/dining-all?" + url.Values{"date": {date}}.Encode()

	var feed model.DayFeed
	if err := c.getJSON(ctx, "dining-all", u, &feed); err != nil {
		return nil, err
	}
	appLog.Debug("dining day fetched", "date", date, "locations", len(feed.Locations))
	return feed.Locations, nil
}

type occupancyRecord struct {
	Count    int    `json:"count"`
	Location string `json:"location"`
	MaxOcc   int    `json:"max_occ"`
}

// Occupancy returns how full a location is, in percent of its maximum.
func (c *Client) Occupancy(ctx context.Context, mdoID int) (float64, error) {
	if c.occupancyURL == "" {
		return 0, &FetchError{Op: "occupancy", Err: errNoOccupancy}
	}
	u := c.occupancyURL + "?" + url.Values{"mdo": {strconv.Itoa(mdoID)}}.Encode()

	var records []occupancyRecord
	if err := c.getJSON(ctx, "occupancy", u, &records); err != nil {
		return 0, err
	}
	if len(records) == 0 || records[0].MaxOcc <= 0 {
		return 0, &FetchError{Op: "occupancy", URL: u, Err: errNoOccupancy}
	}

	pct := float64(records[0].Count) / float64(records[0].MaxOcc) * 100
	appLog.Debug("occupancy fetched", "mdo_id", mdoID, "count", records[0].Count, "max", records[0].MaxOcc)
	return pct, nil
}

func (c *Client) getJSON(ctx context.Context, op, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &FetchError{Op: op, URL: u, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &FetchError{Op: op, URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return &FetchError{Op: op, URL: u, StatusCode: resp.StatusCode, Err: errUnexpectedStatus}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Op: op, URL: u, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}
