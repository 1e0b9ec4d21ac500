package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"diningstatus/internal/config"
	appLog "diningstatus/internal/log"
	"diningstatus/internal/schedule"
)

// Store is the schedule state the API reads from. *schedule.Aggregator
// implements it.
type Store interface {
	Snapshot() schedule.Snapshot
	Refresh(ctx context.Context, now time.Time) error
	Location() *time.Location
	WindowDays() int
}

// OccupancyReader reports how full a location is, in percent.
type OccupancyReader interface {
	Occupancy(ctx context.Context, mdoID int) (float64, error)
}

// Options configures a Server.
type Options struct {
	Listen    string
	BasicAuth config.BasicAuthConfig
	// Occupancy is optional; without it occupancy is never available.
	Occupancy OccupancyReader
	// FoodTrucks is optional; without it /api/foodtrucks answers 503.
	FoodTrucks FoodTruckReader
	// Now defaults to time.Now.
	Now func() time.Time
	// OnRefresh runs after a successful refresh requested through the API.
	OnRefresh func(schedule.Snapshot)
}

// Server exposes read-only schedule snapshots over HTTP.
type Server struct {
	store      Store
	occupancy  OccupancyReader
	foodTrucks FoodTruckReader
	now        func() time.Time
	onRefresh  func(schedule.Snapshot)
	listen     string
	echo       *echo.Echo

	occ    *occupancyCache
	trucks *foodTruckCache
}

// NewServer constructs a new Server.
func NewServer(store Store, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		store:      store,
		occupancy:  opts.Occupancy,
		foodTrucks: opts.FoodTrucks,
		now:        opts.Now,
		onRefresh:  opts.OnRefresh,
		listen:     opts.Listen,
		echo:       echo.New(),
		occ:        newOccupancyCache(occupancyCacheTTL),
		trucks:     &foodTruckCache{ttl: foodTruckCacheTTL},
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Renderer = newBoardRenderer()

	s.echo.Use(middleware.Recover())
	s.echo.Use(requestLogger())
	if opts.BasicAuth.Enabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+opts.Listen)
		s.echo.Use(basicAuth(opts.BasicAuth))
	}

	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Listen binds the listen address ahead of Run and returns the bound
// address, so callers can reach the server before Run is scheduled.
func (s *Server) Listen() (net.Addr, error) {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return nil, err
	}
	s.echo.Listener = ln
	return ln.Addr(), nil
}

// Run serves until ctx is canceled, then shuts down gracefully. It uses the
// listener from Listen when one was bound.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.listen)
		errCh <- s.echo.Start(s.listen)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("stopping HTTP server")
	return s.echo.Shutdown(shutdownCtx)
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/board", s.handleBoard)

	api := s.echo.Group("/api")
	api.GET("/status", s.handleStatus)
	api.POST("/refresh", s.handleRefresh)
	api.GET("/locations", s.handleLocations)
	api.GET("/locations/:id", s.handleLocation)
	api.GET("/locations/:id/week", s.handleWeek)
	api.GET("/locations/:id/occupancy", s.handleOccupancy)
	api.GET("/chefs", s.handleChefs)
	api.GET("/calendar.ics", s.handleCalendar)
	api.GET("/foodtrucks", s.handleFoodTrucks)
}

// basicAuth guards every route except /health.
func basicAuth(cfg config.BasicAuthConfig) echo.MiddlewareFunc {
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
		Realm: "DiningStatus",
		Validator: func(u, p string, _ echo.Context) (bool, error) {
			return secureCompare(u, cfg.Username) && secureCompare(p, cfg.Password), nil
		},
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				appLog.Error("http request failed", v.Error,
					"method", v.Method, "uri", v.URI, "status", v.Status)
				return nil
			}
			appLog.Debug("http request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.String(),
			)
			return nil
		},
	})
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}
