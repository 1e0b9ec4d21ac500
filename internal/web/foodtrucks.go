package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	appLog "diningstatus/internal/log"
	"diningstatus/internal/model"
)

// The food truck page changes a few times a week.
const foodTruckCacheTTL = 15 * time.Minute

// FoodTruckReader lists the weekend food truck events.
type FoodTruckReader interface {
	FoodTrucks(ctx context.Context, now time.Time) ([]model.FoodTruckEvent, error)
}

// foodTruckCache holds the last successful scrape.
type foodTruckCache struct {
	ttl time.Duration

	mu        sync.Mutex
	events    []model.FoodTruckEvent
	updatedAt time.Time
}

// get returns the cached events while they are younger than the TTL.
// Failures are not cached.
func (c *foodTruckCache) get(ctx context.Context, r FoodTruckReader, now time.Time) ([]model.FoodTruckEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.updatedAt.IsZero() && now.Sub(c.updatedAt) < c.ttl {
		return c.events, nil
	}

	events, err := r.FoodTrucks(ctx, now)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.FoodTruckEvent{}
	}
	c.events, c.updatedAt = events, now
	return events, nil
}

// handleFoodTrucks lists the weekend food truck events.
//
// GET /api/foodtrucks
//   - 200 with the events in date order
//   - 503 when no food truck page is configured
//   - 502 when the page cannot be read
func (s *Server) handleFoodTrucks(c echo.Context) error {
	if s.foodTrucks == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "food truck schedule not configured")
	}
	events, err := s.trucks.get(c.Request().Context(), s.foodTrucks, s.now())
	if err != nil {
		appLog.Warn("food truck schedule unavailable", "err", err.Error())
		return errorJSON(c, http.StatusBadGateway, "food truck schedule unavailable")
	}
	return c.JSON(http.StatusOK, events)
}
