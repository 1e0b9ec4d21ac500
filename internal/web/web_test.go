package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diningstatus/internal/config"
	"diningstatus/internal/ics"
	"diningstatus/internal/model"
	"diningstatus/internal/schedule"
)

var facility = time.FixedZone("EST", -5*60*60)

func at(h, m int) time.Time {
	return time.Date(2025, 10, 6, h, m, 0, 0, facility)
}

type fakeSource struct {
	mu   sync.Mutex
	fail error
}

func (f *fakeSource) DiningDay(_ context.Context, date string) ([]model.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	locs := []model.Location{
		{
			ID:      1,
			Name:    "Gracie's",
			MdoID:   7,
			MapsURL: "https://maps.example/gracies",
			Events:  []model.Event{{StartTime: "07:00:00", EndTime: "22:00:00"}},
			Menus: []model.Menu{
				{Name: "Example Chef (4-7p.m.)", Category: model.CategoryVisitingChef},
			},
		},
		{
			ID:     2,
			Name:   "The Ritz",
			MdoID:  8,
			Events: []model.Event{{StartTime: "22:00:00", EndTime: "02:00:00"}},
		},
	}
	if date != "2025-10-06" {
		locs = locs[1:]
	}
	return locs, nil
}

func (f *fakeSource) setFail(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

type fakeOccupancy struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeOccupancy) Occupancy(_ context.Context, mdoID int) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return float64(mdoID) * 5, nil
}

type fakeFoodTrucks struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeFoodTrucks) FoodTrucks(_ context.Context, now time.Time) ([]model.FoodTruckEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	day := time.Date(2025, 10, 11, 0, 0, 0, 0, now.Location())
	return []model.FoodTruckEvent{{
		Date:   day,
		Open:   day.Add(17 * time.Hour),
		Close:  day.Add(21 * time.Hour),
		Trucks: []string{"KO-BQ", "Macarollin'"},
	}}, nil
}

type fixture struct {
	src *fakeSource
	occ *fakeOccupancy
	agg *schedule.Aggregator
	srv *Server
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{src: &fakeSource{}, occ: &fakeOccupancy{}}
	f.agg = schedule.NewAggregator(f.src, schedule.Options{Location: facility, WindowDays: 3})
	require.NoError(t, f.agg.Refresh(context.Background(), at(12, 0)))

	if opts.Now == nil {
		opts.Now = func() time.Time { return at(12, 0) }
	}
	if opts.Occupancy == nil {
		opts.Occupancy = f.occ
	}
	f.srv = NewServer(f.agg, opts)
	return f
}

func (f *fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestLocations(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.do(t, http.MethodGet, "/api/locations")
	require.Equal(t, http.StatusOK, rec.Code)
	locs := decode[[]model.LocationSchedule](t, rec)
	require.Len(t, locs, 2)
	assert.Equal(t, "Gracie's", locs[0].Name)
	assert.Equal(t, model.StatusOpen, locs[0].Status)
	assert.Equal(t, "The Ritz", locs[1].Name)

	rec = f.do(t, http.MethodGet, "/api/locations?q=ritz&day=1")
	require.Equal(t, http.StatusOK, rec.Code)
	locs = decode[[]model.LocationSchedule](t, rec)
	require.Len(t, locs, 1)
	assert.Equal(t, 2, locs[0].ID)

	rec = f.do(t, http.MethodGet, "/api/locations?open_only=true")
	locs = decode[[]model.LocationSchedule](t, rec)
	require.Len(t, locs, 1)
	assert.Equal(t, 1, locs[0].ID)

	rec = f.do(t, http.MethodGet, "/api/locations?favorites=2")
	locs = decode[[]model.LocationSchedule](t, rec)
	assert.Equal(t, 2, locs[0].ID)
}

func TestLocationsBadDay(t *testing.T) {
	f := newFixture(t, Options{})
	for _, day := range []string{"3", "-1", "x"} {
		rec := f.do(t, http.MethodGet, "/api/locations?day="+day)
		assert.Equal(t, http.StatusBadRequest, rec.Code, day)
	}
}

func TestNotLoaded(t *testing.T) {
	agg := schedule.NewAggregator(&fakeSource{}, schedule.Options{Location: facility})
	srv := NewServer(agg, Options{})

	for _, target := range []string{"/api/locations", "/api/locations/1/week", "/api/chefs"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"last_refreshed":null`)
}

func TestLocation(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.do(t, http.MethodGet, "/api/locations/1")
	require.Equal(t, http.StatusOK, rec.Code)
	loc := decode[model.LocationSchedule](t, rec)
	assert.Equal(t, "Gracie's", loc.Name)
	require.Len(t, loc.Chefs, 1)
	assert.Equal(t, model.ChefArrivingLater, loc.Chefs[0].Status)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/locations/1?day=1").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/locations/99").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/locations/abc").Code)
}

func TestWeek(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.do(t, http.MethodGet, "/api/locations/1/week")
	require.Equal(t, http.StatusOK, rec.Code)
	week := decode[[]schedule.DayHours](t, rec)
	require.Len(t, week, 3)
	assert.Equal(t, []string{"7:00 AM - 10:00 PM"}, week[0].Hours)
	assert.Equal(t, []string{"Closed"}, week[1].Hours)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/locations/99/week").Code)
}

func TestOccupancy(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.do(t, http.MethodGet, "/api/locations/1/occupancy")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"available": true, "percent": 35}`, rec.Body.String())

	// Cached within the TTL.
	f.do(t, http.MethodGet, "/api/locations/1/occupancy")
	assert.Equal(t, 1, f.occ.calls)

	// Closed locations are never looked up.
	rec = f.do(t, http.MethodGet, "/api/locations/2/occupancy")
	assert.JSONEq(t, `{"available": false}`, rec.Body.String())
	assert.Equal(t, 1, f.occ.calls)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/locations/99/occupancy").Code)
}

func TestOccupancyUpstreamError(t *testing.T) {
	occ := &fakeOccupancy{err: errors.New("no data")}
	f := newFixture(t, Options{Occupancy: occ})

	rec := f.do(t, http.MethodGet, "/api/locations/1/occupancy")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"available": false}`, rec.Body.String())
}

func TestFoodTrucks(t *testing.T) {
	trucks := &fakeFoodTrucks{}
	f := newFixture(t, Options{FoodTrucks: trucks})

	rec := f.do(t, http.MethodGet, "/api/foodtrucks")
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[[]model.FoodTruckEvent](t, rec)
	require.Len(t, events, 1)
	assert.Equal(t, []string{"KO-BQ", "Macarollin'"}, events[0].Trucks)
	assert.True(t, time.Date(2025, 10, 11, 17, 0, 0, 0, facility).Equal(events[0].Open))

	// Served from cache.
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/foodtrucks").Code)
	assert.Equal(t, 1, trucks.calls)
}

func TestFoodTrucksUnavailable(t *testing.T) {
	f := newFixture(t, Options{})
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/api/foodtrucks").Code)

	f = newFixture(t, Options{FoodTrucks: &fakeFoodTrucks{err: errors.New("page moved")}})
	rec := f.do(t, http.MethodGet, "/api/foodtrucks")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error": "food truck schedule unavailable"}`, rec.Body.String())
}

func TestChefs(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.do(t, http.MethodGet, "/api/chefs")
	require.Equal(t, http.StatusOK, rec.Code)
	locs := decode[[]model.LocationSchedule](t, rec)
	require.Len(t, locs, 1)
	assert.Equal(t, "Example Chef", locs[0].Chefs[0].Name)

	rec = f.do(t, http.MethodGet, "/api/chefs?day=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/chefs?day=2").Code)
}

func TestStatus(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.do(t, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[statusResponse](t, rec)
	require.NotNil(t, st.LastRefreshed)
	assert.True(t, at(12, 0).Equal(*st.LastRefreshed))
	assert.Equal(t, 3, st.WindowDays)
	assert.Equal(t, "30m0s", st.Lookahead)
	assert.Equal(t, []string{"2025-10-06", "2025-10-07", "2025-10-08"}, st.Days)
}

func TestRefresh(t *testing.T) {
	var refreshed []schedule.Snapshot
	f := newFixture(t, Options{
		Now:       func() time.Time { return at(13, 0) },
		OnRefresh: func(s schedule.Snapshot) { refreshed = append(refreshed, s) },
	})

	rec := f.do(t, http.MethodPost, "/api/refresh")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, refreshed, 1)
	last, _ := f.agg.LastRefreshed()
	assert.True(t, at(13, 0).Equal(last))

	f.src.setFail(errors.New("upstream down"))
	rec = f.do(t, http.MethodPost, "/api/refresh")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "upstream down")
	assert.Len(t, refreshed, 1)
	assert.Len(t, f.agg.Snapshot().Day(0), 2)

	assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodGet, "/api/refresh").Code)
}

type busyStore struct {
	*schedule.Aggregator
}

func (busyStore) Refresh(context.Context, time.Time) error {
	return schedule.ErrRefreshInProgress
}

func TestRefreshConflict(t *testing.T) {
	agg := schedule.NewAggregator(&fakeSource{}, schedule.Options{Location: facility})
	srv := NewServer(busyStore{agg}, Options{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCalendar(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.do(t, http.MethodGet, "/api/calendar.ics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/calendar"))

	cal, err := ical.ParseCalendar(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	// Gracie's today, The Ritz on three days, one chef.
	assert.Len(t, cal.Events(), 5)
	assert.Contains(t, rec.Body.String(), ics.ProductID)

	rec = f.do(t, http.MethodGet, "/api/calendar.ics?chefs=0")
	cal, err = ical.ParseCalendar(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Len(t, cal.Events(), 4)
}

func TestBoard(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.do(t, http.MethodGet, "/board")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-ready="true"`)
	assert.Contains(t, body, "Monday, October 6")
	assert.Contains(t, body, "Gracie&#39;s")
	assert.Contains(t, body, "7:00 AM - 10:00 PM")
	assert.Contains(t, body, "Example Chef (Arriving Later)")
	assert.Less(t, strings.Index(body, "Gracie"), strings.Index(body, "The Ritz"))
}

func TestBasicAuth(t *testing.T) {
	f := newFixture(t, Options{BasicAuth: config.BasicAuthConfig{Username: "admin", Password: "secret"}})

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/status").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.SetBasicAuth("admin", "wrong")
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
