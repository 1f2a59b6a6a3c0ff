package api

import (
	"context"
	"net/http"

	"github.com/okian/sportsmeet/internal/app/attendance"
	"github.com/okian/sportsmeet/internal/domain/model"
)

// lookupRequest accepts the identifier under either name; older clients
// send clearId.
type lookupRequest struct {
	Identifier string `json:"identifier" validate:"required_without=ClearID"`
	ClearID    string `json:"clearId" validate:"required_without=Identifier"`
}

func (req lookupRequest) identifier() string {
	if req.Identifier != "" {
		return req.Identifier
	}
	return req.ClearID
}

type attendanceRequest struct {
	Identifier string `json:"identifier" validate:"required_without=ClearID"`
	ClearID    string `json:"clearId" validate:"required_without=Identifier"`
	EventID    string `json:"eventId" validate:"required"`
}

func (req attendanceRequest) identifier() string {
	if req.Identifier != "" {
		return req.Identifier
	}
	return req.ClearID
}

type chestNumberRequest struct {
	ClearID     string `json:"clearId" validate:"required"`
	ChestNumber string `json:"chestNumber" validate:"required,numeric,min=3,max=4"`
}

type attendanceResponse struct {
	Message string `json:"message"`
	attendance.Result
}

type chestNumberResponse struct {
	Message     string            `json:"message"`
	Participant model.Participant `json:"user"`
}

// ParticipantsHandler handles identity lookup, attendance and chest numbers.
type ParticipantsHandler struct {
	deps ParticipantDependencies
}

// NewParticipantsHandler creates a new participants handler.
func NewParticipantsHandler(deps ParticipantDependencies) *ParticipantsHandler {
	return &ParticipantsHandler{deps: deps}
}

// HandleLookup handles POST /identity/lookup requests.
func (h *ParticipantsHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	const op = "api.identity_lookup"
	var req lookupRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, err)
		return
	}
	profile, err := h.deps.LookupParticipant(r.Context(), req.identifier())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleMark handles POST /attendance/mark requests.
func (h *ParticipantsHandler) HandleMark(w http.ResponseWriter, r *http.Request) {
	h.handleAttendance(w, r, "api.attendance_mark", h.deps.MarkAttendance, "Attendance marked successfully")
}

// HandleUnmark handles POST /attendance/unmark requests.
func (h *ParticipantsHandler) HandleUnmark(w http.ResponseWriter, r *http.Request) {
	h.handleAttendance(w, r, "api.attendance_unmark", h.deps.UnmarkAttendance, "Attendance cleared successfully")
}

type attendanceFunc func(ctx context.Context, identifier, eventID string) (attendance.Result, error)

func (h *ParticipantsHandler) handleAttendance(w http.ResponseWriter, r *http.Request, op string, fn attendanceFunc, msg string) {
	var req attendanceRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := fn(r.Context(), req.identifier(), req.EventID)
	if err != nil {
		if res.FailedCount > 0 {
			writeFanOut(w, err, res.UpdatedCount, res.FailedCount)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attendanceResponse{Message: msg, Result: res})
}

// HandleAssignChestNumber handles POST /chest-number/assign requests.
func (h *ParticipantsHandler) HandleAssignChestNumber(w http.ResponseWriter, r *http.Request) {
	const op = "api.assign_chest_number"
	var req chestNumberRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.deps.AssignChestNumber(r.Context(), req.ClearID, req.ChestNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chestNumberResponse{Message: "Chest number updated successfully", Participant: p})
}
