package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/okian/sportsmeet/internal/app/results"
	"github.com/okian/sportsmeet/internal/domain/dedupe"
	"github.com/okian/sportsmeet/internal/domain/errs"
	"github.com/okian/sportsmeet/internal/domain/model"
)

// scoreRequest mirrors the OpenAPI schema for POST /score.
type scoreRequest struct {
	EventType string            `json:"eventType" validate:"omitempty,oneof=individual team"`
	EventName string            `json:"eventName" validate:"required"`
	Winners   []winnerRequest   `json:"winners" validate:"omitempty,dive"`
	TeamEntry *teamEntryRequest `json:"teamEntry,omitempty"`
}

type winnerRequest struct {
	Position int    `json:"position" validate:"required,min=1"`
	ChestNo  string `json:"chestNo" validate:"required"`
	Name     string `json:"name" validate:"required"`
	School   string `json:"school" validate:"required"`
	Points   *int   `json:"points,omitempty" validate:"omitempty,min=0"`
}

type teamEntryRequest struct {
	TeamName string `json:"teamName" validate:"required"`
	School   string `json:"school" validate:"required"`
	Points   int    `json:"points" validate:"required,min=1"`
}

func (req scoreRequest) submission() results.Submission {
	in := results.Submission{
		EventType: model.EventType(req.EventType).OrIndividual(),
		EventName: req.EventName,
	}
	for _, w := range req.Winners {
		in.Winners = append(in.Winners, results.Winner{
			Position: w.Position,
			ChestNo:  w.ChestNo,
			Name:     w.Name,
			School:   w.School,
			Points:   w.Points,
		})
	}
	if req.TeamEntry != nil {
		in.Team = &results.TeamEntry{
			TeamName: req.TeamEntry.TeamName,
			School:   req.TeamEntry.School,
			Points:   req.TeamEntry.Points,
		}
	}
	return in
}

// editRequest mirrors the OpenAPI schema for POST /score/edit.
type editRequest struct {
	EventID     string `json:"eventId" validate:"required"`
	PositionID  string `json:"positionId" validate:"required"`
	EventName   string `json:"eventName" validate:"required"`
	Position    int    `json:"position" validate:"required,min=1"`
	ChestNo     string `json:"chestNo" validate:"required"`
	StudentName string `json:"studentName" validate:"required"`
	SchoolName  string `json:"schoolName" validate:"required"`
	Points      *int   `json:"points,omitempty" validate:"omitempty,min=0"`
}

// deleteRequest mirrors the OpenAPI schema for POST /score/delete.
type deleteRequest struct {
	EventName   string `json:"eventName" validate:"required"`
	Position    int    `json:"position" validate:"required,min=1"`
	ChestNo     string `json:"chestNo" validate:"required"`
	StudentName string `json:"studentName" validate:"required"`
	SchoolName  string `json:"schoolName" validate:"required"`
	PositionID  string `json:"positionId,omitempty"`
}

type submitResponse struct {
	Message string `json:"message"`
	results.SubmitResult
}

type editResponse struct {
	Message string            `json:"message"`
	Record  model.ScoreRecord `json:"record"`
}

// IdempotencyKeyHeader lets a client retry POST /score without recording twice.
const IdempotencyKeyHeader = "Idempotency-Key"

// ScoresHandler handles result submission and correction.
type ScoresHandler struct {
	deps  ScoreDependencies
	guard dedupe.Guard
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoreDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// HandleSubmit handles POST /score requests.
func (h *ScoresHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_score"
	var req scoreRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, err)
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if key != "" && h.guard != nil && h.guard.Claim(r.Context(), key) {
		writeError(w, errs.Newf(op, errs.ErrConflict, "submission with idempotency key %q was already accepted", key))
		return
	}

	res, err := h.deps.SubmitScores(r.Context(), req.submission())
	if err != nil {
		var partial *errs.PartialError
		if errors.As(err, &partial) {
			// Some slots were written, so the key stays claimed.
			writePartial(w, err, res.ItemsSaved)
			return
		}
		if key != "" && h.guard != nil {
			h.guard.Release(r.Context(), key)
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Message: "Scores saved successfully", SubmitResult: res})
}

// HandleEdit handles POST /score/edit requests.
func (h *ScoresHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	const op = "api.edit_winner"
	var req editRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, err)
		return
	}
	rec, err := h.deps.EditWinner(r.Context(), results.Edit{
		EventID:     req.EventID,
		PositionID:  req.PositionID,
		EventName:   req.EventName,
		Position:    req.Position,
		ChestNo:     req.ChestNo,
		StudentName: req.StudentName,
		SchoolName:  req.SchoolName,
		Points:      req.Points,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, editResponse{Message: "Winner updated successfully", Record: rec})
}

// HandleDelete handles POST /score/delete requests.
func (h *ScoresHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_winner"
	var req deleteRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, err)
		return
	}
	err := h.deps.DeleteWinner(r.Context(), results.Removal{
		EventName:   req.EventName,
		Position:    req.Position,
		ChestNo:     req.ChestNo,
		StudentName: req.StudentName,
		SchoolName:  req.SchoolName,
		PositionID:  req.PositionID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Winner deleted successfully"})
}
