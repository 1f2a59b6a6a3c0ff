package api

import (
	"net/http"

	"github.com/okian/sportsmeet/internal/adapters/report"
	"github.com/okian/sportsmeet/internal/domain/errs"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePNG  = "image/png"
)

// ScoreboardHandler serves the standings as JSON, a workbook and a chart.
type ScoreboardHandler struct {
	deps    ScoreboardDependencies
	palette report.Palette
}

// NewScoreboardHandler creates a new scoreboard handler.
func NewScoreboardHandler(deps ScoreboardDependencies) *ScoreboardHandler {
	return &ScoreboardHandler{deps: deps, palette: report.DefaultPalette()}
}

// HandleGetScoreboard handles GET /scoreboard requests.
func (h *ScoreboardHandler) HandleGetScoreboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.deps.Scoreboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// HandleExport handles GET /scoreboard/export.xlsx requests.
func (h *ScoreboardHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_scoreboard"
	board, err := h.deps.Scoreboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	body, err := report.Workbook(board)
	if err != nil {
		writeError(w, errs.Wrap(op, err))
		return
	}
	writeBinary(w, contentTypeXLSX, "scoreboard.xlsx", body)
}

// HandleChart handles GET /scoreboard/chart.png requests.
func (h *ScoreboardHandler) HandleChart(w http.ResponseWriter, r *http.Request) {
	const op = "api.scoreboard_chart"
	board, err := h.deps.Scoreboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	body, err := report.TopSchoolsChart(board, h.palette)
	if err != nil {
		writeError(w, errs.Wrap(op, err))
		return
	}
	writeBinary(w, contentTypePNG, "", body)
}
