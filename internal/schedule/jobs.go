package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "diningstatus/internal/log"
)

// JobOptions configures the background jobs.
type JobOptions struct {
	// RefreshSpec is a five-field cron spec for full refreshes.
	RefreshSpec string
	// StatusInterval is how often today's statuses are recomputed.
	StatusInterval time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
	// OnRefresh runs after every successful scheduled refresh.
	OnRefresh func(Snapshot)
}

// Jobs runs the periodic refresh and status recompute.
type Jobs struct {
	cron *cron.Cron
}

// StartJobs registers both jobs on a cron scheduler in the aggregator's time
// zone and starts it. ctx bounds each refresh.
func StartJobs(ctx context.Context, agg *Aggregator, opts JobOptions) (*Jobs, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StatusInterval <= 0 {
		return nil, fmt.Errorf("jobs: status interval must be positive, got %s", opts.StatusInterval)
	}

	c := cron.New(
		cron.WithLocation(agg.Location()),
		cron.WithLogger(cronLogger{}),
	)

	if _, err := c.AddFunc(opts.RefreshSpec, func() {
		err := agg.Refresh(ctx, opts.Now())
		switch {
		case errors.Is(err, ErrRefreshInProgress):
			appLog.Debug("scheduled refresh skipped; one is already running")
		case err != nil:
			// Refresh logged it already; the next tick retries.
		case opts.OnRefresh != nil:
			opts.OnRefresh(agg.Snapshot())
		}
	}); err != nil {
		return nil, fmt.Errorf("jobs: refresh spec %q: %w", opts.RefreshSpec, err)
	}

	if _, err := c.AddFunc("@every "+opts.StatusInterval.String(), func() {
		agg.RecomputeStatuses(opts.Now())
	}); err != nil {
		return nil, fmt.Errorf("jobs: status interval: %w", err)
	}

	c.Start()
	appLog.Info("background jobs started",
		"refresh", opts.RefreshSpec,
		"status_interval", opts.StatusInterval.String(),
	)
	return &Jobs{cron: c}, nil
}

// Stop stops scheduling and waits for running jobs up to ctx's deadline.
func (j *Jobs) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		appLog.Warn("background jobs still running at shutdown")
	}
}

// cronLogger routes the scheduler's own messages to the app log.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	appLog.Error("cron: "+msg, err, kv...)
}
