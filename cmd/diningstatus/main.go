package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"diningstatus/internal/capture"
	"diningstatus/internal/config"
	appLog "diningstatus/internal/log"
	"diningstatus/internal/schedule"
	"diningstatus/internal/source"
	"diningstatus/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	envPath    string
	listen     string
	once       bool
	snapshot   string
}

func main() {
	flags := parseFlags()

	loadEnvFile(flags.envPath)

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	appLog.SetOutput(os.Stderr, conf.Log.Console)
	appLog.SetLevel(appLog.ParseLevel(conf.Log.Level))
	appLog.Info("diningstatus starting", "version", version)

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	loc, err := conf.Location()
	if err != nil {
		appLog.Error("failed to load timezone", err, "timezone", conf.Timezone)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"window_days", conf.WindowDays,
		"refresh", conf.RefreshCron,
		"status_interval", conf.StatusInterval.String(),
		"source", conf.Source.BaseURL,
		"parallel", conf.Source.Parallel,
		"watchlist_count", len(conf.ChefWatchlist),
		"once", flags.once,
		"snapshot", flags.snapshot,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	client := source.NewClient(source.Options{
		BaseURL:      conf.Source.BaseURL,
		OccupancyURL: conf.Source.OccupancyURL,
		Timeout:      conf.Source.Timeout,
	})
	trucks := source.NewFoodTruckScraper(source.FoodTruckOptions{
		URL:     conf.Source.FoodTruckURL,
		Timeout: conf.Source.Timeout,
	})
	agg := schedule.NewAggregator(client, schedule.Options{
		Location:   loc,
		WindowDays: conf.WindowDays,
		Parallel:   conf.Source.Parallel,
	})
	onRefresh := func(snap schedule.Snapshot) {
		reportWatchlist(snap, conf.ChefWatchlist)
	}

	if err := agg.Refresh(ctx, time.Now()); err != nil {
		if flags.once || flags.snapshot != "" {
			os.Exit(1)
		}
		appLog.Warn("initial refresh failed; serving empty schedule until the next refresh")
	} else {
		onRefresh(agg.Snapshot())
	}

	if flags.once {
		logToday(agg.Snapshot())
		return
	}

	server := web.NewServer(agg, web.Options{
		Listen:     conf.Listen,
		BasicAuth:  conf.BasicAuth,
		Occupancy:  client,
		FoodTrucks: trucks,
		OnRefresh:  onRefresh,
	})
	addr, err := server.Listen()
	if err != nil {
		appLog.Error("failed to bind HTTP listener", err, "listen", conf.Listen)
		os.Exit(1)
	}

	if flags.snapshot != "" {
		os.Exit(runSnapshot(ctx, server, addr, conf, flags.snapshot))
	}

	jobs, err := schedule.StartJobs(ctx, agg, schedule.JobOptions{
		RefreshSpec:    conf.RefreshCron,
		StatusInterval: conf.StatusInterval,
		OnRefresh:      onRefresh,
	})
	if err != nil {
		appLog.Error("failed to start background jobs", err)
		os.Exit(1)
	}

	if err := server.Run(ctx); err != nil {
		appLog.Error("HTTP server failed", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	jobs.Stop(stopCtx)
	appLog.Info("diningstatus exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/diningstatus/config.yaml", "Path to config file")
	flag.StringVar(&cfg.envPath, "env", ".env", "Optional .env file with DINING_* overrides")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh, log today's statuses and exit")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Capture the status board to this PNG path and exit")

	flag.Parse()

	return cfg
}

// loadEnvFile loads path into the process environment. A missing file is
// not an error.
func loadEnvFile(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		appLog.Error("failed to load env file", err, "path", path)
	}
}

// runSnapshot serves the board just long enough to capture it.
func runSnapshot(ctx context.Context, server *web.Server, addr net.Addr, conf *config.Config, out string) int {
	srvCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.Run(srvCtx); err != nil {
			appLog.Error("HTTP server failed", err)
		}
	}()
	defer func() {
		stop()
		<-done
	}()

	err := capture.CaptureBoardPNG(ctx, capture.CaptureOptions{
		URL:        "http://" + loopback(addr) + "/board",
		OutputPath: out,
		Width:      conf.Capture.Width,
		Height:     conf.Capture.Height,
		Timeout:    conf.Capture.Timeout,
		Username:   conf.BasicAuth.Username,
		Password:   conf.BasicAuth.Password,
	})
	if err != nil {
		appLog.Error("board capture failed", err, "output", out)
		return 1
	}
	return 0
}

// loopback rewrites a wildcard listen address to one a local browser can
// dial.
func loopback(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok || !tcp.IP.IsUnspecified() {
		return addr.String()
	}
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(tcp.Port))
}

func reportWatchlist(snap schedule.Snapshot, names []string) {
	for day := 0; day < len(snap.Dates) && day < 2; day++ {
		for _, hit := range schedule.WatchlistHits(snap.Day(day), names) {
			appLog.Info("watched chef scheduled",
				"chef", hit.Chef.Name,
				"location", hit.Location,
				"location_id", hit.LocationID,
				"date", snap.Dates[day].Format(schedule.DateLayout),
				"from", hit.Chef.Open.Format(schedule.HoursLayout),
				"until", hit.Chef.Close.Format(schedule.HoursLayout),
			)
		}
	}
}

func logToday(snap schedule.Snapshot) {
	for _, s := range schedule.Directory(snap.Day(0), schedule.DirectoryQuery{OpenFirst: true}) {
		hours := make([]string, 0, len(s.Intervals))
		for _, iv := range s.Intervals {
			hours = append(hours, schedule.FormatInterval(iv))
		}
		appLog.Info("location",
			"id", s.ID,
			"name", s.Name,
			"status", s.Status.Label(),
			"hours", hours,
			"chefs", len(s.Chefs),
		)
	}
}
