package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"diningstatus/internal/hours"
	"diningstatus/internal/ics"
	appLog "diningstatus/internal/log"
	"diningstatus/internal/model"
	"diningstatus/internal/schedule"
)

// chefDays limits the visiting chefs view to today and tomorrow.
const chefDays = 2

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// statusResponse is the JSON response shape for /api/status.
type statusResponse struct {
	LastRefreshed *time.Time `json:"last_refreshed"`
	WindowDays    int        `json:"window_days"`
	Timezone      string     `json:"timezone"`
	Lookahead     string     `json:"lookahead"`
	Days          []string   `json:"days"`
}

func (s *Server) status(snap schedule.Snapshot) statusResponse {
	resp := statusResponse{
		WindowDays: s.store.WindowDays(),
		Timezone:   s.store.Location().String(),
		Lookahead:  hours.Lookahead.String(),
		Days:       make([]string, 0, len(snap.Dates)),
	}
	if !snap.LastRefreshed.IsZero() {
		last := snap.LastRefreshed
		resp.LastRefreshed = &last
	}
	for _, d := range snap.Dates {
		resp.Days = append(resp.Days, d.Format(schedule.DateLayout))
	}
	return resp
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.status(s.store.Snapshot()))
}

// handleRefresh runs a full refresh in the request's context.
//
// POST /api/refresh
//   - 200 with the new status on success
//   - 409 when a refresh is already running
//   - 502 when the data source failed; the previous schedule stays in place
func (s *Server) handleRefresh(c echo.Context) error {
	err := s.store.Refresh(c.Request().Context(), s.now())
	switch {
	case errors.Is(err, schedule.ErrRefreshInProgress):
		return errorJSON(c, http.StatusConflict, err.Error())
	case err != nil:
		return errorJSON(c, http.StatusBadGateway, "refresh failed: "+err.Error())
	}

	snap := s.store.Snapshot()
	if s.onRefresh != nil {
		s.onRefresh(snap)
	}
	return c.JSON(http.StatusOK, s.status(snap))
}

// handleLocations lists one day of the window.
//
// GET /api/locations?day=0&q=&open_only=1&open_first=1&favorites=1,2
func (s *Server) handleLocations(c echo.Context) error {
	snap, day, aerr := s.snapshotDay(c, 0)
	if aerr != nil {
		return errorJSON(c, aerr.status, aerr.msg)
	}

	q := schedule.DirectoryQuery{
		Search:    c.QueryParam("q"),
		OpenOnly:  parseBool(c.QueryParam("open_only")),
		OpenFirst: parseBool(c.QueryParam("open_first")),
		Favorites: parseIDs(c.QueryParam("favorites")),
	}
	return c.JSON(http.StatusOK, schedule.Directory(snap.Day(day), q))
}

func (s *Server) handleLocation(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid location id")
	}
	snap, day, aerr := s.snapshotDay(c, 0)
	if aerr != nil {
		return errorJSON(c, aerr.status, aerr.msg)
	}

	loc, ok := schedule.Find(snap.Day(day), id)
	if !ok {
		return errorJSON(c, http.StatusNotFound, "location not found")
	}
	return c.JSON(http.StatusOK, loc)
}

func (s *Server) handleWeek(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid location id")
	}
	snap := s.store.Snapshot()
	if len(snap.Dates) == 0 {
		return errorJSON(c, errNotLoaded.status, errNotLoaded.msg)
	}

	found := false
	for i := range snap.Dates {
		if _, ok := schedule.Find(snap.Day(i), id); ok {
			found = true
			break
		}
	}
	if !found {
		return errorJSON(c, http.StatusNotFound, "location not found")
	}
	return c.JSON(http.StatusOK, schedule.WeeklyHours(snap, id))
}

// occupancyResponse is the JSON response shape for the occupancy endpoint.
type occupancyResponse struct {
	Available bool     `json:"available"`
	Percent   *float64 `json:"percent,omitempty"`
}

// handleOccupancy reports today's occupancy. It is only looked up while the
// location is serving and has an occupancy id.
func (s *Server) handleOccupancy(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid location id")
	}
	snap := s.store.Snapshot()
	if len(snap.Dates) == 0 {
		return errorJSON(c, errNotLoaded.status, errNotLoaded.msg)
	}

	loc, ok := schedule.Find(snap.Day(0), id)
	if !ok {
		return errorJSON(c, http.StatusNotFound, "location not found")
	}
	if s.occupancy == nil || loc.MdoID == 0 || !loc.Status.IsOpen() {
		return c.JSON(http.StatusOK, occupancyResponse{})
	}

	pct, err := s.occ.get(c.Request().Context(), s.occupancy, loc.MdoID, s.now())
	if err != nil {
		appLog.Warn("occupancy unavailable", "location_id", loc.ID, "mdo_id", loc.MdoID, "err", err.Error())
		return c.JSON(http.StatusOK, occupancyResponse{})
	}
	return c.JSON(http.StatusOK, occupancyResponse{Available: true, Percent: &pct})
}

// handleChefs lists locations hosting visiting chefs, today (day=0) or
// tomorrow (day=1).
func (s *Server) handleChefs(c echo.Context) error {
	snap, day, aerr := s.snapshotDay(c, chefDays)
	if aerr != nil {
		return errorJSON(c, aerr.status, aerr.msg)
	}
	chefs := schedule.LocationsWithChefs(snap.Day(day))
	if chefs == nil {
		chefs = []model.LocationSchedule{}
	}
	return c.JSON(http.StatusOK, chefs)
}

// handleCalendar exports the window as iCalendar. chefs=0 leaves out visiting
// chef appearances.
func (s *Server) handleCalendar(c echo.Context) error {
	body := ics.Export(s.store.Snapshot(), ics.ExportOptions{
		Name:     "Dining Hours",
		Timezone: s.store.Location().String(),
		Chefs:    c.QueryParam("chefs") != "0",
	})
	c.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="dining.ics"`)
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

// apiError is a failed request check, written with errorJSON.
type apiError struct {
	status int
	msg    string
}

var errNotLoaded = &apiError{http.StatusServiceUnavailable, "schedule not loaded yet"}

// snapshotDay reads the day query parameter against the current snapshot.
// limit caps the accepted days when positive.
func (s *Server) snapshotDay(c echo.Context, limit int) (schedule.Snapshot, int, *apiError) {
	snap := s.store.Snapshot()
	if len(snap.Dates) == 0 {
		return snap, 0, errNotLoaded
	}

	days := len(snap.Dates)
	if limit > 0 && limit < days {
		days = limit
	}

	day := 0
	if raw := c.QueryParam("day"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n >= days {
			return snap, 0, &apiError{http.StatusBadRequest, "day must be between 0 and " + strconv.Itoa(days-1)}
		}
		day = n
	}
	return snap, day, nil
}

func parseBool(raw string) bool {
	b, err := strconv.ParseBool(raw)
	return err == nil && b
}

func parseIDs(raw string) []int {
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			ids = append(ids, n)
		}
	}
	return ids
}
