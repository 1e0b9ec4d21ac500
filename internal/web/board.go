package web

import (
	"embed"
	"html/template"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"diningstatus/internal/model"
	"diningstatus/internal/schedule"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	boardTemplate   = "board.html"
	boardDateLayout = "Monday, January 2"
	boardTimeLayout = "3:04:05 PM"
)

// boardRenderer implements echo.Renderer over the embedded templates.
type boardRenderer struct {
	templates *template.Template
}

func newBoardRenderer() *boardRenderer {
	return &boardRenderer{
		templates: template.Must(template.ParseFS(templatesFS, "templates/*.html")),
	}
}

func (r *boardRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

type boardRow struct {
	Name   string
	Status model.OpenStatus
	Hours  []string
	Chefs  []model.ChefAppearance
}

type boardData struct {
	Date    string
	Updated string
	Rows    []boardRow
}

// handleBoard renders today's locations, serving ones first. It is the page
// the PNG capture loads.
func (s *Server) handleBoard(c echo.Context) error {
	snap := s.store.Snapshot()
	data := boardData{
		Date: s.now().In(s.store.Location()).Format(boardDateLayout),
	}
	if !snap.LastRefreshed.IsZero() {
		data.Updated = snap.LastRefreshed.In(s.store.Location()).Format(boardTimeLayout)
	}

	for _, loc := range schedule.Directory(snap.Day(0), schedule.DirectoryQuery{OpenFirst: true}) {
		row := boardRow{Name: loc.Name, Status: loc.Status, Chefs: loc.Chefs}
		for _, iv := range loc.Intervals {
			row.Hours = append(row.Hours, schedule.FormatInterval(iv))
		}
		if len(row.Hours) == 0 {
			row.Hours = []string{schedule.ClosedLabel}
		}
		data.Rows = append(data.Rows, row)
	}
	return c.Render(http.StatusOK, boardTemplate, data)
}
