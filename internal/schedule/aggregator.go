package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	appLog "diningstatus/internal/log"
	"diningstatus/internal/model"
)

// ErrRefreshInProgress is returned by Refresh when another refresh is running.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// DataSource supplies one day's raw location records. Retries, caching and
// timeouts are its own business.
type DataSource interface {
	DiningDay(ctx context.Context, date string) ([]model.Location, error)
}

// DateLayout is the date parameter format of DataSource.
const DateLayout = "2006-01-02"

// Options configures an Aggregator.
type Options struct {
	// Location is the facility time zone. Defaults to time.Local.
	Location *time.Location
	// WindowDays defaults to DefaultWindowDays.
	WindowDays int
	// Parallel fetches all days of a refresh concurrently.
	Parallel bool
}

// Aggregator owns the day-indexed schedules of the rolling window.
//
// Refresh replaces the whole collection at once, and only after every day
// was fetched; RecomputeStatuses rewrites statuses of today's entries. Both
// may run concurrently. Readers get copies.
type Aggregator struct {
	src      DataSource
	loc      *time.Location
	days     int
	parallel bool

	refreshing sync.Mutex

	mu            sync.RWMutex
	byDay         [][]model.LocationSchedule
	dates         []time.Time
	lastRefreshed time.Time
}

// NewAggregator creates an empty Aggregator. Nothing is fetched until Refresh.
func NewAggregator(src DataSource, opts Options) *Aggregator {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultWindowDays
	}
	return &Aggregator{
		src:      src,
		loc:      opts.Location,
		days:     opts.WindowDays,
		parallel: opts.Parallel,
	}
}

// Location returns the facility time zone.
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// WindowDays returns the configured window length.
func (a *Aggregator) WindowDays() int {
	return a.days
}

// Refresh fetches and normalizes every day of the window starting at now's
// calendar day. On any failure the previous collection is left untouched and
// the error is returned; no retries are made.
func (a *Aggregator) Refresh(ctx context.Context, now time.Time) error {
	if !a.refreshing.TryLock() {
		return ErrRefreshInProgress
	}
	defer a.refreshing.Unlock()

	now = now.In(a.loc)
	dates, err := WindowDates(now, a.days, a.loc)
	if err != nil {
		return err
	}

	started := time.Now()
	byDay := make([][]model.LocationSchedule, len(dates))

	fetch := func(ctx context.Context, i int) error {
		date := dates[i].Format(DateLayout)
		locations, err := a.src.DiningDay(ctx, date)
		if err != nil {
			return fmt.Errorf("refresh %s: %w", date, err)
		}
		byDay[i] = NormalizeDay(locations, dates[i], now)
		return nil
	}

	if a.parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i := range dates {
			g.Go(func() error { return fetch(gctx, i) })
		}
		err = g.Wait()
	} else {
		for i := range dates {
			if err = fetch(ctx, i); err != nil {
				break
			}
		}
	}
	if err != nil {
		appLog.Error("refresh failed; keeping previous schedule", err, "days", len(dates))
		return err
	}

	a.mu.Lock()
	a.byDay = byDay
	a.dates = dates
	a.lastRefreshed = now
	a.mu.Unlock()

	appLog.Info("refresh completed",
		"days", len(dates),
		"locations_today", len(byDay[0]),
		"parallel", a.parallel,
		"elapsed", time.Since(started).String(),
	)
	return nil
}

// RecomputeStatuses reclassifies today's schedules at now without
// refetching. It is a no-op before the first successful Refresh.
func (a *Aggregator) RecomputeStatuses(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.byDay) == 0 {
		return
	}
	RecomputeStatuses(a.byDay[0], now.In(a.loc))
}

// Snapshot is a read-only copy of the aggregator state.
type Snapshot struct {
	// LocationsByDay is indexed like Dates; index 0 is today.
	LocationsByDay [][]model.LocationSchedule
	Dates          []time.Time
	// LastRefreshed is zero until the first successful Refresh.
	LastRefreshed time.Time
}

// Day returns the schedules of day i, or nil when out of range.
func (s Snapshot) Day(i int) []model.LocationSchedule {
	if i < 0 || i >= len(s.LocationsByDay) {
		return nil
	}
	return s.LocationsByDay[i]
}

// Snapshot returns a deep copy of the current state.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snap := Snapshot{
		LocationsByDay: make([][]model.LocationSchedule, len(a.byDay)),
		Dates:          append([]time.Time(nil), a.dates...),
		LastRefreshed:  a.lastRefreshed,
	}
	for i, day := range a.byDay {
		cp := make([]model.LocationSchedule, len(day))
		for j, s := range day {
			cp[j] = s.Clone()
		}
		snap.LocationsByDay[i] = cp
	}
	return snap
}

// LastRefreshed returns the time of the last successful refresh.
func (a *Aggregator) LastRefreshed() (time.Time, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastRefreshed, !a.lastRefreshed.IsZero()
}
